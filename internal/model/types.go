package model

import "time"

// User is the canonical in-memory account shape, independent of which
// API variant produced it. Relationship flags are populated lazily and
// only trusted once HasRelationship is set.
type User struct {
	ID                      string
	ScreenName              string
	Name                    string
	NameHTML                string
	Description             string
	DescriptionHTML         string
	ProfileImageURL         string
	ProfileImageURLOriginal string
	CoverPhoto              string
	ProfileURL              string
	CreatedAt               time.Time
	FollowersCount          int
	FriendsCount            int
	StatusesCount           int
	AlbumsCount             int
	Lang                    string
	DefaultScope            string
	Locked                  bool
	Bot                     bool
	IsLocal                 bool

	// Relationship to the current user.
	Following       bool
	FollowsYou      bool
	Requested       bool
	Muted           bool
	Blocking        bool
	HasRelationship bool
}

// Attachment is one media attachment of a status.
type Attachment struct {
	URL         string
	Mimetype    string
	Description string
	NSFW        bool
}

// Processing mirrors the native API's track processing state.
type Processing struct {
	Basic           string
	TranscodeState  string
	TranscodeNeeded bool
	Done            bool
}

// AudioMetadata carries the native API's audio file metadata.
type AudioMetadata struct {
	Licence     int
	Duration    float64
	Type        string
	Codec       string
	Format      string
	Channels    int
	Rate        int
	Bitrate     int
	BitrateMode string
}

// Status is the canonical entity for tracks, albums and plain statuses.
// At most one instance exists per id; timelines hold references to the
// same instance so a mutation is visible everywhere at once.
type Status struct {
	ID             string
	URI            string
	Kind           string // "status", "track" or "album"
	User           *User
	Title          string
	Slug           string
	Content        string
	Visibility     string
	CreatedAt      time.Time
	ConversationID string
	Attentions     []*User
	Attachments    []Attachment

	// Track/album extras from the native API.
	PictureURL      string
	MediaOrig       string
	MediaTranscoded string
	Waveform        string
	AlbumID         string
	TracksCount     int
	Processing      *Processing
	Metadata        *AudioMetadata

	// Engagement. HasCounts records whether the source response
	// actually carried counters; merges skip them otherwise.
	FaveNum     int
	RepeatNum   int
	Favorited   bool
	Repeated    bool
	HasCounts   bool
	FavoritedBy []*User
	RebloggedBy []*User

	// Mutable flags.
	Deleted bool
	Pinned  bool
	Muted   bool
	NSFW    bool
	Private bool

	RetweetedStatus *Status
}

// Prepare sets the defaults a freshly normalized status needs before it
// enters the arena.
func (s *Status) Prepare() *Status {
	s.Deleted = false
	if s.Attachments == nil {
		s.Attachments = []Attachment{}
	}
	return s
}

// Notification types.
const (
	NotificationLike    = "like"
	NotificationRepeat  = "repeat"
	NotificationFollow  = "follow"
	NotificationMention = "mention"
	NotificationStatus  = "status"
)

// Notification references an acting profile and the affected status.
// Unique by id; Seen may be upgraded false->true but never reverted.
type Notification struct {
	ID          int64
	Type        string
	Seen        bool
	CreatedAt   time.Time
	FromProfile *User
	Status      *Status
	Action      *Status
}

// ItemKind tags a timeline item.
type ItemKind string

const (
	ItemStatus   ItemKind = "status"
	ItemRetweet  ItemKind = "retweet"
	ItemFavorite ItemKind = "favorite"
	ItemDeletion ItemKind = "deletion"
	ItemFollow   ItemKind = "follow"
	ItemUnknown  ItemKind = "unknown"
)

// Favorite is a favorite event seen on a timeline, distinct from the
// favorited status itself.
type Favorite struct {
	ID       string
	User     *User
	StatusID string
}

// TimelineItem is the tagged union a timeline fetch yields. Exactly the
// field matching Kind is set; unrecognized payloads keep their raw tag
// in RawKind and Kind ItemUnknown.
type TimelineItem struct {
	Kind       ItemKind
	Status     *Status
	Favorite   *Favorite
	DeletedURI string
	Follow     *User
	RawKind    string
}
