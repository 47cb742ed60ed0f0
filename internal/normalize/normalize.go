// Package normalize reshapes backend JSON into canonical entities. The
// backend speaks two dialects: the native API and the
// Mastodon-compatible one. Shape detection is by marker fields (users
// carry "acct" only on the compatible API, notifications carry "ntype"
// only on the native one) and every parser tolerates missing optional
// fields by defaulting to empty/false.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"soundreel/internal/model"
)

// strID accepts JSON string or number ids and keeps them as strings.
type strID string

func (s *strID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = strID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = strID(n.String())
	return nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.RFC1123, time.RFC1123Z} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

type rawReel2bits struct {
	Title       string `json:"title"`
	PictureURL  string `json:"picture_url"`
	MediaOrig   string `json:"media_orig"`
	MediaTrans  string `json:"media_transcoded"`
	Waveform    string `json:"waveform"`
	Private     bool   `json:"private"`
	AlbumID     strID  `json:"album_id"`
	Type        string `json:"type"`
	Slug        string `json:"slug"`
	TracksCount int    `json:"tracks_count"`
	AlbumsCount int    `json:"albums_count"`
	Lang        string `json:"lang"`
	Processing  *struct {
		Basic           string `json:"basic"`
		TranscodeState  string `json:"transcode_state"`
		TranscodeNeeded bool   `json:"transcode_needed"`
		Done            bool   `json:"done"`
	} `json:"processing"`
	Metadatas *struct {
		Licence     int     `json:"licence"`
		Duration    float64 `json:"duration"`
		Type        string  `json:"type"`
		Codec       string  `json:"codec"`
		Format      string  `json:"format"`
		Channels    int     `json:"channels"`
		Rate        int     `json:"rate"`
		Bitrate     int     `json:"bitrate"`
		BitrateMode string  `json:"bitrate_mode"`
	} `json:"metadatas"`
}

type rawUser struct {
	ID strID `json:"id"`

	// Mastodon-compatible shape markers and fields.
	Acct        *string `json:"acct"`
	Avatar      *string `json:"avatar"`
	URL         string  `json:"url"`
	DisplayName string  `json:"display_name"`
	Note        string  `json:"note"`
	Header      string  `json:"header"`
	FollowingCt int     `json:"following_count"`
	Bot         bool    `json:"bot"`
	Source      *struct {
		Note    string `json:"note"`
		Privacy string `json:"privacy"`
	} `json:"source"`

	// Native shape.
	ScreenName        string `json:"screen_name"`
	Name              string `json:"name"`
	NameHTML          string `json:"name_html"`
	Description       string `json:"description"`
	DescriptionHTML   string `json:"description_html"`
	ProfileImageURL   string `json:"profile_image_url"`
	ProfileImageOrig  string `json:"profile_image_url_original"`
	CoverPhoto        string `json:"cover_photo"`
	FriendsCount      int    `json:"friends_count"`
	ProfileURL        string `json:"statusnet_profile_url"`
	StatusnetBlocking bool   `json:"statusnet_blocking"`
	IsLocal           *bool  `json:"is_local"`
	FollowsYou        bool   `json:"follows_you"`
	Muted             bool   `json:"muted"`
	Following         *bool  `json:"following"`
	DefaultScope      string `json:"default_scope"`

	// Common.
	CreatedAt      string        `json:"created_at"`
	Locked         bool          `json:"locked"`
	FollowersCount int           `json:"followers_count"`
	StatusesCount  int           `json:"statuses_count"`
	Reel2bits      *rawReel2bits `json:"reel2bits"`
}

// ParseUser normalizes either account shape into the canonical user.
func ParseUser(raw json.RawMessage) *model.User {
	var d rawUser
	out := &model.User{}
	if err := json.Unmarshal(raw, &d); err != nil {
		return out
	}
	out.ID = string(d.ID)

	masto := d.Acct != nil
	// Users embedded in status mentions on the compatible API come as a
	// short form without avatar and carry nothing else worth keeping.
	mastoShort := masto && d.Avatar == nil

	if masto {
		out.ScreenName = *d.Acct
		out.ProfileURL = d.URL
		if mastoShort {
			return out
		}
		out.Name = d.DisplayName
		out.NameHTML = d.DisplayName
		out.Description = d.Note
		out.DescriptionHTML = d.Note
		out.ProfileImageURL = *d.Avatar
		out.ProfileImageURLOriginal = *d.Avatar
		out.CoverPhoto = d.Header
		out.FriendsCount = d.FollowingCt
		out.Bot = d.Bot
		if d.Source != nil {
			out.Description = d.Source.Note
			out.DefaultScope = d.Source.Privacy
		}
		out.IsLocal = !strings.Contains(out.ScreenName, "@")
	} else {
		out.ScreenName = d.ScreenName
		out.Name = d.Name
		out.NameHTML = d.NameHTML
		out.Description = d.Description
		out.DescriptionHTML = d.DescriptionHTML
		out.ProfileImageURL = d.ProfileImageURL
		out.ProfileImageURLOriginal = d.ProfileImageOrig
		out.CoverPhoto = d.CoverPhoto
		out.FriendsCount = d.FriendsCount
		out.ProfileURL = d.ProfileURL
		out.DefaultScope = d.DefaultScope
		if d.IsLocal != nil {
			out.IsLocal = *d.IsLocal
		}
		// The native shape carries the relationship inline.
		if d.Following != nil {
			out.Following = *d.Following
			out.FollowsYou = d.FollowsYou
			out.Muted = d.Muted
			out.Blocking = d.StatusnetBlocking
			out.HasRelationship = true
		}
	}

	out.CreatedAt = parseTime(d.CreatedAt)
	out.Locked = d.Locked
	out.FollowersCount = d.FollowersCount
	out.StatusesCount = d.StatusesCount
	if d.Reel2bits != nil {
		out.AlbumsCount = d.Reel2bits.AlbumsCount
		out.Lang = d.Reel2bits.Lang
		if out.Lang == "" {
			out.Lang = "en"
		}
	}
	return out
}

// ParseRelationship normalizes a Mastodon relationship object into a
// user carrying only id and relationship flags.
func ParseRelationship(raw json.RawMessage) *model.User {
	var d struct {
		ID         strID `json:"id"`
		Following  bool  `json:"following"`
		FollowedBy bool  `json:"followed_by"`
		Requested  bool  `json:"requested"`
		Muting     bool  `json:"muting"`
		Blocking   bool  `json:"blocking"`
	}
	out := &model.User{}
	if err := json.Unmarshal(raw, &d); err != nil {
		return out
	}
	out.ID = string(d.ID)
	out.Following = d.Following
	out.FollowsYou = d.FollowedBy
	out.Requested = d.Requested
	out.Muted = d.Muting
	out.Blocking = d.Blocking
	out.HasRelationship = true
	return out
}

type rawAttachment struct {
	URL         string `json:"url"`
	Mimetype    string `json:"mimetype"`
	ContentType string `json:"content_type"`
	Description string `json:"description"`
	NSFW        bool   `json:"nsfw"`
}

type rawStatus struct {
	ID         strID  `json:"id"`
	URI        string `json:"uri"`
	Type       string `json:"type"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	Visibility string `json:"visibility"`

	Account json.RawMessage `json:"account"`
	User    json.RawMessage `json:"user"`

	FavouritesCount *int `json:"favourites_count"`
	ReblogsCount    *int `json:"reblogs_count"`
	Favorited       bool `json:"favorited"`
	Favourited      bool `json:"favourited"`
	Reblogged       bool `json:"reblogged"`
	Pinned          bool `json:"pinned"`
	Muted           bool `json:"muted"`
	NSFW            bool `json:"nsfw"`
	Sensitive       bool `json:"sensitive"`

	ConversationID strID `json:"statusnet_conversation_id"`

	Attentions       []json.RawMessage `json:"attentions"`
	Mentions         []json.RawMessage `json:"mentions"`
	Attachments      []rawAttachment   `json:"attachments"`
	MediaAttachments []rawAttachment   `json:"media_attachments"`

	RetweetedStatus json.RawMessage `json:"retweeted_status"`
	Reblog          json.RawMessage `json:"reblog"`

	UploadedElapsed string        `json:"uploaded_elapsed"`
	Reel2bits       *rawReel2bits `json:"reel2bits"`
}

func (d *rawStatus) toStatus() *model.Status {
	out := &model.Status{
		ID:             string(d.ID),
		URI:            d.URI,
		Kind:           "status",
		Content:        d.Content,
		Visibility:     d.Visibility,
		CreatedAt:      parseTime(d.CreatedAt),
		ConversationID: string(d.ConversationID),
		Favorited:      d.Favorited || d.Favourited,
		Repeated:       d.Reblogged,
		Pinned:         d.Pinned,
		Muted:          d.Muted,
		NSFW:           d.NSFW || d.Sensitive,
	}
	if len(d.Account) > 0 {
		out.User = ParseUser(d.Account)
	} else if len(d.User) > 0 {
		out.User = ParseUser(d.User)
	}
	if d.FavouritesCount != nil || d.ReblogsCount != nil {
		if d.FavouritesCount != nil {
			out.FaveNum = *d.FavouritesCount
		}
		if d.ReblogsCount != nil {
			out.RepeatNum = *d.ReblogsCount
		}
		out.HasCounts = true
	}
	mentions := d.Attentions
	if mentions == nil {
		mentions = d.Mentions
	}
	for _, m := range mentions {
		out.Attentions = append(out.Attentions, ParseUser(m))
	}
	atts := d.Attachments
	if atts == nil {
		atts = d.MediaAttachments
	}
	for _, a := range atts {
		mt := a.Mimetype
		if mt == "" {
			mt = a.ContentType
		}
		out.Attachments = append(out.Attachments, model.Attachment{
			URL:         a.URL,
			Mimetype:    mt,
			Description: a.Description,
			NSFW:        a.NSFW,
		})
	}
	if r := d.Reel2bits; r != nil {
		if r.Type != "" {
			out.Kind = r.Type
		}
		out.Title = r.Title
		out.Slug = r.Slug
		out.PictureURL = r.PictureURL
		out.MediaOrig = r.MediaOrig
		out.MediaTranscoded = r.MediaTrans
		out.Waveform = r.Waveform
		out.AlbumID = string(r.AlbumID)
		out.Private = r.Private
		out.TracksCount = r.TracksCount
		if r.Processing != nil {
			out.Processing = &model.Processing{
				Basic:           r.Processing.Basic,
				TranscodeState:  r.Processing.TranscodeState,
				TranscodeNeeded: r.Processing.TranscodeNeeded,
				Done:            r.Processing.Done,
			}
		}
		if r.Metadatas != nil {
			out.Metadata = &model.AudioMetadata{
				Licence:     r.Metadatas.Licence,
				Duration:    r.Metadatas.Duration,
				Type:        r.Metadatas.Type,
				Codec:       r.Metadatas.Codec,
				Format:      r.Metadatas.Format,
				Channels:    r.Metadatas.Channels,
				Rate:        r.Metadatas.Rate,
				Bitrate:     r.Metadatas.Bitrate,
				BitrateMode: r.Metadatas.BitrateMode,
			}
		}
	}
	return out
}

// ParseStatus normalizes a single status/track payload.
func ParseStatus(raw json.RawMessage) *model.Status {
	var d rawStatus
	if err := json.Unmarshal(raw, &d); err != nil {
		return &model.Status{Kind: "status"}
	}
	out := d.toStatus()
	if len(d.RetweetedStatus) > 0 {
		out.RetweetedStatus = ParseStatus(d.RetweetedStatus)
	} else if len(d.Reblog) > 0 && !bytes.Equal(bytes.TrimSpace(d.Reblog), []byte("null")) {
		out.RetweetedStatus = ParseStatus(d.Reblog)
	}
	return out
}

// ParseAlbum normalizes a native album payload into an album-kinded
// status entity.
func ParseAlbum(raw json.RawMessage) *model.Status {
	var d struct {
		ID          strID           `json:"id"`
		Title       string          `json:"title"`
		Created     string          `json:"created"`
		Description string          `json:"description"`
		Private     bool            `json:"private"`
		Slug        string          `json:"slug"`
		User        json.RawMessage `json:"user"`
		FlakeID     strID           `json:"flake_id"`
	}
	out := &model.Status{Kind: "album"}
	if err := json.Unmarshal(raw, &d); err != nil {
		return out
	}
	out.ID = string(d.ID)
	out.Title = d.Title
	out.Content = d.Description
	out.Slug = d.Slug
	out.Private = d.Private
	out.CreatedAt = parseTime(d.Created)
	if len(d.User) > 0 {
		out.User = ParseUser(d.User)
	}
	return out
}

// ParseNotification normalizes either notification shape. Notification
// ids are integers on both APIs; an unparseable id yields zero.
func ParseNotification(raw json.RawMessage) *model.Notification {
	var d struct {
		ID          strID           `json:"id"`
		Type        string          `json:"type"`
		Ntype       *string         `json:"ntype"`
		IsSeen      bool            `json:"is_seen"`
		CreatedAt   string          `json:"created_at"`
		Account     json.RawMessage `json:"account"`
		FromProfile json.RawMessage `json:"from_profile"`
		Status      json.RawMessage `json:"status"`
		Notice      json.RawMessage `json:"notice"`
		Pleroma     *struct {
			IsSeen bool `json:"is_seen"`
		} `json:"pleroma"`
	}
	out := &model.Notification{}
	if err := json.Unmarshal(raw, &d); err != nil {
		return out
	}
	out.ID, _ = strconv.ParseInt(string(d.ID), 10, 64)
	out.CreatedAt = parseTime(d.CreatedAt)

	masto := d.Ntype == nil
	if masto {
		switch d.Type {
		case "favourite":
			out.Type = model.NotificationLike
		case "reblog":
			out.Type = model.NotificationRepeat
		default:
			out.Type = d.Type
		}
		if d.Pleroma != nil {
			out.Seen = d.Pleroma.IsSeen
		}
		if out.Type != model.NotificationFollow && len(d.Status) > 0 {
			out.Status = ParseStatus(d.Status)
		}
		out.Action = out.Status
		out.FromProfile = ParseUser(d.Account)
		return out
	}

	out.Type = *d.Ntype
	out.Seen = d.IsSeen
	var notice *model.Status
	if len(d.Notice) > 0 {
		notice = ParseStatus(d.Notice)
	}
	out.Action = notice
	out.Status = notice
	if out.Type == model.NotificationLike && len(d.Notice) > 0 {
		var nested struct {
			FavoritedStatus json.RawMessage `json:"favorited_status"`
		}
		if err := json.Unmarshal(d.Notice, &nested); err == nil && len(nested.FavoritedStatus) > 0 {
			out.Status = ParseStatus(nested.FavoritedStatus)
		}
	}
	out.FromProfile = ParseUser(d.FromProfile)
	return out
}

// ParseTimelineItem tags one timeline entry and normalizes its payload.
func ParseTimelineItem(raw json.RawMessage) model.TimelineItem {
	var probe struct {
		Type            string          `json:"type"`
		URI             string          `json:"uri"`
		User            json.RawMessage `json:"user"`
		InReplyToStatus strID           `json:"in_reply_to_status_id"`
		ID              strID           `json:"id"`
		Reblog          json.RawMessage `json:"reblog"`
		Reel2bits       *rawReel2bits   `json:"reel2bits"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return model.TimelineItem{Kind: model.ItemUnknown}
	}

	kind := probe.Type
	if probe.Reel2bits != nil {
		// Native entries tag track/album inside the reel2bits block and
		// all of them ride the status path.
		kind = "status"
	}
	if kind == "" {
		if len(probe.Reblog) > 0 && !bytes.Equal(bytes.TrimSpace(probe.Reblog), []byte("null")) {
			kind = "retweet"
		} else {
			kind = "status"
		}
	}

	switch kind {
	case "status", "track", "album":
		return model.TimelineItem{Kind: model.ItemStatus, Status: ParseStatus(raw)}
	case "retweet":
		s := ParseStatus(raw)
		if s.RetweetedStatus == nil {
			// A repeat without a wrapped original is useless; keep the
			// payload but let the store's unknown path log it.
			return model.TimelineItem{Kind: model.ItemUnknown, RawKind: kind}
		}
		return model.TimelineItem{Kind: model.ItemRetweet, Status: s}
	case "favorite":
		fav := &model.Favorite{
			ID:       string(probe.ID),
			StatusID: string(probe.InReplyToStatus),
		}
		if len(probe.User) > 0 {
			fav.User = ParseUser(probe.User)
		}
		return model.TimelineItem{Kind: model.ItemFavorite, Favorite: fav}
	case "deletion":
		return model.TimelineItem{Kind: model.ItemDeletion, DeletedURI: probe.URI}
	case "follow":
		var f struct {
			User    json.RawMessage `json:"user"`
			Account json.RawMessage `json:"account"`
		}
		item := model.TimelineItem{Kind: model.ItemFollow}
		if err := json.Unmarshal(raw, &f); err == nil {
			if len(f.User) > 0 {
				item.Follow = ParseUser(f.User)
			} else if len(f.Account) > 0 {
				item.Follow = ParseUser(f.Account)
			}
		}
		return item
	default:
		return model.TimelineItem{Kind: model.ItemUnknown, RawKind: kind}
	}
}

// ParseTimelineItems normalizes a whole timeline response.
func ParseTimelineItems(raws []json.RawMessage) []model.TimelineItem {
	out := make([]model.TimelineItem, 0, len(raws))
	for _, raw := range raws {
		out = append(out, ParseTimelineItem(raw))
	}
	return out
}
