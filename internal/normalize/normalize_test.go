package normalize

import (
	"encoding/json"
	"testing"

	"soundreel/internal/model"
)

func TestParseUserMasto(t *testing.T) {
	raw := []byte(`{
		"id": 7,
		"acct": "alice@remote.example",
		"avatar": "https://remote.example/a.png",
		"display_name": "Alice",
		"note": "makes noise",
		"following_count": 12,
		"followers_count": 34,
		"locked": true,
		"reel2bits": {"albums_count": 3}
	}`)
	u := ParseUser(raw)
	if u.ID != "7" {
		t.Fatalf("id = %q", u.ID)
	}
	if u.ScreenName != "alice@remote.example" || u.Name != "Alice" {
		t.Fatalf("masto fields not mapped: %+v", u)
	}
	if u.FriendsCount != 12 || u.FollowersCount != 34 || u.AlbumsCount != 3 {
		t.Fatalf("counts not mapped: %+v", u)
	}
	if !u.Locked || u.IsLocal {
		t.Fatalf("flags wrong: locked=%v local=%v", u.Locked, u.IsLocal)
	}
	if u.HasRelationship {
		t.Fatal("masto shape carries no inline relationship")
	}
}

func TestParseUserMastoShort(t *testing.T) {
	// Mention-embedded users have acct but no avatar and only carry
	// id, screen name and profile url.
	u := ParseUser([]byte(`{"id":"9","acct":"bob","url":"https://sound.example/bob"}`))
	if u.ID != "9" || u.ScreenName != "bob" || u.ProfileURL != "https://sound.example/bob" {
		t.Fatalf("short user wrong: %+v", u)
	}
	if u.Name != "" {
		t.Fatal("short user must not fill display fields")
	}
}

func TestParseUserNativeRelationship(t *testing.T) {
	raw := []byte(`{
		"id": "5",
		"screen_name": "carol",
		"name": "Carol",
		"following": true,
		"follows_you": true,
		"muted": false
	}`)
	u := ParseUser(raw)
	if !u.HasRelationship || !u.Following || !u.FollowsYou {
		t.Fatalf("native relationship not mapped: %+v", u)
	}
}

func TestParseStatusTrack(t *testing.T) {
	raw := []byte(`{
		"id": 42,
		"uri": "https://sound.example/t/42",
		"content": "my new track",
		"created_at": "2023-04-01T10:00:00Z",
		"favourites_count": 2,
		"reblogs_count": 1,
		"favourited": true,
		"account": {"id": "5", "acct": "carol"},
		"reel2bits": {
			"type": "track",
			"title": "Morning Dew",
			"slug": "morning-dew",
			"media_orig": "/media/42.flac",
			"media_transcoded": "/media/42.mp3",
			"waveform": "/media/42.json",
			"processing": {"done": true, "transcode_state": "finished"},
			"metadatas": {"duration": 182.5, "codec": "flac", "rate": 44100}
		}
	}`)
	s := ParseStatus(raw)
	if s.ID != "42" || s.Kind != "track" || s.Title != "Morning Dew" {
		t.Fatalf("track not mapped: %+v", s)
	}
	if !s.HasCounts || s.FaveNum != 2 || s.RepeatNum != 1 || !s.Favorited {
		t.Fatalf("counts not mapped: %+v", s)
	}
	if s.Processing == nil || !s.Processing.Done {
		t.Fatal("processing not mapped")
	}
	if s.Metadata == nil || s.Metadata.Duration != 182.5 || s.Metadata.Rate != 44100 {
		t.Fatalf("metadata not mapped: %+v", s.Metadata)
	}
	if s.User == nil || s.User.ID != "5" {
		t.Fatal("account not parsed")
	}
}

func TestParseStatusMissingOptionalsIsSafe(t *testing.T) {
	s := ParseStatus([]byte(`{"id":"1"}`))
	if s.ID != "1" || s.HasCounts {
		t.Fatalf("minimal status wrong: %+v", s)
	}
	s = ParseStatus([]byte(`{broken`))
	if s == nil {
		t.Fatal("parser must never return nil")
	}
}

func TestParseNotificationNative(t *testing.T) {
	raw := []byte(`{
		"id": "77",
		"ntype": "like",
		"is_seen": true,
		"created_at": "2023-04-01T10:00:00Z",
		"from_profile": {"id": "5", "screen_name": "carol"},
		"notice": {"id": "42", "favorited_status": {"id": "40"}}
	}`)
	n := ParseNotification(raw)
	if n.ID != 77 || n.Type != model.NotificationLike || !n.Seen {
		t.Fatalf("native like wrong: %+v", n)
	}
	if n.Action == nil || n.Action.ID != "42" {
		t.Fatal("action must be the notice itself")
	}
	if n.Status == nil || n.Status.ID != "40" {
		t.Fatal("like must target the favorited status")
	}
	if n.FromProfile == nil || n.FromProfile.ScreenName != "carol" {
		t.Fatal("from_profile not mapped")
	}
}

func TestParseNotificationMasto(t *testing.T) {
	raw := []byte(`{
		"id": "90",
		"type": "favourite",
		"created_at": "2023-04-01T10:00:00Z",
		"pleroma": {"is_seen": true},
		"account": {"id": "5", "acct": "carol", "avatar": "x"},
		"status": {"id": "42"}
	}`)
	n := ParseNotification(raw)
	if n.ID != 90 || n.Type != model.NotificationLike || !n.Seen {
		t.Fatalf("masto notification wrong: %+v", n)
	}
	if n.Status == nil || n.Status.ID != "42" || n.Action != n.Status {
		t.Fatal("status/action not mapped")
	}
	if n.FromProfile == nil || n.FromProfile.ScreenName != "carol" {
		t.Fatal("from_profile not mapped")
	}
}

func TestParseNotificationMastoFollowHasNoStatus(t *testing.T) {
	raw := []byte(`{"id":"91","type":"follow","account":{"id":"5","acct":"carol"}}`)
	n := ParseNotification(raw)
	if n.Type != model.NotificationFollow || n.Status != nil {
		t.Fatalf("follow must carry no status: %+v", n)
	}
}

func TestParseTimelineItemKinds(t *testing.T) {
	cases := []struct {
		raw  string
		kind model.ItemKind
	}{
		{`{"id":"1","type":"status"}`, model.ItemStatus},
		{`{"id":"2","reel2bits":{"type":"track"}}`, model.ItemStatus},
		{`{"id":"3","type":"retweet","retweeted_status":{"id":"1"}}`, model.ItemRetweet},
		{`{"id":"4","type":"favorite","in_reply_to_status_id":"1","user":{"id":"5","screen_name":"c"}}`, model.ItemFavorite},
		{`{"type":"deletion","uri":"https://sound.example/t/1"}`, model.ItemDeletion},
		{`{"type":"follow","user":{"id":"5","screen_name":"c"}}`, model.ItemFollow},
		{`{"id":"6","type":"poll_something"}`, model.ItemUnknown},
	}
	for _, c := range cases {
		item := ParseTimelineItem(json.RawMessage(c.raw))
		if item.Kind != c.kind {
			t.Fatalf("raw %s: kind = %q, want %q", c.raw, item.Kind, c.kind)
		}
	}
}

func TestParseTimelineItemMastoReblog(t *testing.T) {
	item := ParseTimelineItem([]byte(`{"id":"8","reblog":{"id":"7"}}`))
	if item.Kind != model.ItemRetweet {
		t.Fatalf("kind = %q", item.Kind)
	}
	if item.Status.RetweetedStatus == nil || item.Status.RetweetedStatus.ID != "7" {
		t.Fatal("wrapped original missing")
	}
}

func TestParseFavoriteFields(t *testing.T) {
	item := ParseTimelineItem([]byte(`{"id":"12","type":"favorite","in_reply_to_status_id":42,"user":{"id":"5","screen_name":"carol"}}`))
	f := item.Favorite
	if f == nil || f.ID != "12" || f.StatusID != "42" || f.User == nil || f.User.ID != "5" {
		t.Fatalf("favorite fields wrong: %+v", f)
	}
}
