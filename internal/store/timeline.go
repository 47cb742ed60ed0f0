package store

import (
	"sort"

	"soundreel/internal/model"
)

// Timeline names. Every timeline exists from store construction on.
const (
	TimelinePublic            = "public"
	TimelinePublicAndExternal = "publicAndExternal"
	TimelineFriends           = "friends"
	TimelineMentions          = "mentions"
	TimelineUser              = "user"
	TimelineMedia             = "media"
	TimelineFavorites         = "favorites"
	TimelineDrafts            = "drafts"
	TimelineAlbums            = "albums"
	TimelineTag               = "tag"
	TimelineDMs               = "dms"
)

func timelineNames() []string {
	return []string{
		TimelinePublic, TimelinePublicAndExternal, TimelineFriends,
		TimelineMentions, TimelineUser, TimelineMedia, TimelineFavorites,
		TimelineDrafts, TimelineAlbums, TimelineTag, TimelineDMs,
	}
}

// visibleWindow is how many buffered statuses ShowNewStatuses promotes.
const visibleWindow = 50

// Timeline is one named ordered view over the entity arena. Statuses is
// the full buffered set, Visible the paged window the UI shows; both
// hold references into the arena, never copies. MaxID/MinID are the
// pagination watermarks with "" as the unset sentinel.
type Timeline struct {
	Name           string
	UserID         string
	Statuses       []*model.Status
	statusesByID   map[string]*model.Status
	Visible        []*model.Status
	visibleByID    map[string]*model.Status
	NewStatusCount int
	MaxID          string
	MinID          string
	MinVisibleID   string
	Loading        bool
	Error          bool
	FlushMarker    string
}

func newTimeline(name, userID string) *Timeline {
	return &Timeline{
		Name:         name,
		UserID:       userID,
		Statuses:     []*model.Status{},
		statusesByID: map[string]*model.Status{},
		Visible:      []*model.Status{},
		visibleByID:  map[string]*model.Status{},
	}
}

// mergeOrAdd folds a status into the timeline's buffered set and
// reports whether it was new to this timeline. The arena has already
// merged fields, so an existing reference needs no further work.
func (t *Timeline) mergeOrAdd(s *model.Status) bool {
	if _, ok := t.statusesByID[s.ID]; ok {
		return false
	}
	t.Statuses = append(t.Statuses, s)
	t.statusesByID[s.ID] = s
	return true
}

func (t *Timeline) mergeOrAddVisible(s *model.Status) bool {
	if _, ok := t.visibleByID[s.ID]; ok {
		return false
	}
	t.Visible = append(t.Visible, s)
	t.visibleByID[s.ID] = s
	return true
}

// sortNow keeps both lists newest-first and recomputes the visible
// low-watermark from the new tail.
func (t *Timeline) sortNow() {
	sort.SliceStable(t.Statuses, func(i, j int) bool {
		return model.NewerID(t.Statuses[i].ID, t.Statuses[j].ID)
	})
	sort.SliceStable(t.Visible, func(i, j int) bool {
		return model.NewerID(t.Visible[i].ID, t.Visible[j].ID)
	})
	if len(t.Visible) > 0 {
		t.MinVisibleID = t.Visible[len(t.Visible)-1].ID
	} else {
		t.MinVisibleID = ""
	}
}

func (t *Timeline) removeByURI(uri string) {
	t.Statuses = removeStatusWhere(t.Statuses, func(s *model.Status) bool { return s.URI == uri })
	t.Visible = removeStatusWhere(t.Visible, func(s *model.Status) bool { return s.URI == uri })
	for id, s := range t.statusesByID {
		if s.URI == uri {
			delete(t.statusesByID, id)
		}
	}
	for id, s := range t.visibleByID {
		if s.URI == uri {
			delete(t.visibleByID, id)
		}
	}
}

func (t *Timeline) removeByAuthor(userID string) {
	byAuthor := func(s *model.Status) bool { return s.User != nil && s.User.ID == userID }
	t.Statuses = removeStatusWhere(t.Statuses, byAuthor)
	t.Visible = removeStatusWhere(t.Visible, byAuthor)
	for id, s := range t.statusesByID {
		if byAuthor(s) {
			delete(t.statusesByID, id)
		}
	}
	for id, s := range t.visibleByID {
		if byAuthor(s) {
			delete(t.visibleByID, id)
		}
	}
	if len(t.Visible) > 0 {
		t.MinVisibleID = t.Visible[len(t.Visible)-1].ID
	} else {
		t.MinVisibleID = ""
	}
	if len(t.Statuses) > 0 {
		t.MaxID = t.Statuses[0].ID
	} else {
		t.MaxID = ""
	}
}

// showNew promotes up to visibleWindow of the newest buffered statuses
// into the visible window, resets the badge and collapses MinID onto
// the visible tail so an "older" fetch continues from what is shown.
func (t *Timeline) showNew() {
	t.NewStatusCount = 0
	n := len(t.Statuses)
	if n > visibleWindow {
		n = visibleWindow
	}
	t.Visible = append([]*model.Status{}, t.Statuses[:n]...)
	t.visibleByID = map[string]*model.Status{}
	for _, s := range t.Visible {
		t.visibleByID[s.ID] = s
	}
	if len(t.Visible) > 0 {
		t.MinVisibleID = t.Visible[len(t.Visible)-1].ID
		t.MinID = t.MinVisibleID
	}
}

func removeStatusWhere(list []*model.Status, match func(*model.Status) bool) []*model.Status {
	out := list[:0]
	for _, s := range list {
		if !match(s) {
			out = append(out, s)
		}
	}
	return out
}

// TimelineSnapshot is the read view handed to pollers and the UI.
type TimelineSnapshot struct {
	Name           string
	UserID         string
	MaxID          string
	MinID          string
	MinVisibleID   string
	StatusCount    int
	VisibleCount   int
	NewStatusCount int
	Loading        bool
	Error          bool
	FlushMarker    string
}

func (t *Timeline) snapshot() TimelineSnapshot {
	return TimelineSnapshot{
		Name:           t.Name,
		UserID:         t.UserID,
		MaxID:          t.MaxID,
		MinID:          t.MinID,
		MinVisibleID:   t.MinVisibleID,
		StatusCount:    len(t.Statuses),
		VisibleCount:   len(t.Visible),
		NewStatusCount: t.NewStatusCount,
		Loading:        t.Loading,
		Error:          t.Error,
		FlushMarker:    t.FlushMarker,
	}
}
