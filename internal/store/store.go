// Package store holds the client's entire reactive state: a global
// entity arena keyed by id, named timeline views referencing into it,
// the notification list and the user arena. Every mutation goes through
// the store's lock, which stands in for the single UI event loop of a
// browser client; subscribers get a topic callback after each mutation.
package store

import (
	"sync"

	"soundreel/internal/logging"
	"soundreel/internal/model"
)

// DesktopNotifier receives best-effort desktop notification side
// effects. Implementations must not call back into the store.
type DesktopNotifier interface {
	Notify(n *model.Notification)
}

// Store is the global client state.
type Store struct {
	mu sync.Mutex

	allStatuses   []*model.Status
	statusesByID  map[string]*model.Status
	conversations map[string][]*model.Status
	seenFavorites map[string]struct{}

	timelines     map[string]*Timeline
	notifications *notifications
	users         *users
	currentUser   *model.User

	notifier    DesktopNotifier
	subscribers []func(topic string)
}

// New returns a store with every timeline created empty.
func New() *Store {
	s := &Store{
		statusesByID:  map[string]*model.Status{},
		conversations: map[string][]*model.Status{},
		seenFavorites: map[string]struct{}{},
		timelines:     map[string]*Timeline{},
		notifications: newNotifications(),
		users:         newUsers(),
	}
	for _, name := range timelineNames() {
		s.timelines[name] = newTimeline(name, "")
	}
	return s
}

// SetNotifier installs the desktop notification sink.
func (s *Store) SetNotifier(n DesktopNotifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Subscribe registers a change hook. Topics are timeline names plus
// "notifications" and "users". Callbacks run outside the store lock.
func (s *Store) Subscribe(fn func(topic string)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) notify(topics ...string) {
	subs := s.subscribers
	for _, t := range topics {
		for _, fn := range subs {
			fn(t)
		}
	}
}

// Status looks a status up in the arena.
func (s *Store) Status(id string) (*model.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statusesByID[id]
	return st, ok
}

// Conversation returns the statuses grouped under one conversation id.
func (s *Store) Conversation(id string) []*model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Status{}, s.conversations[id]...)
}

// Timeline returns a read snapshot of one timeline.
func (s *Store) Timeline(name string) (TimelineSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.timelines[name]
	if !ok {
		return TimelineSnapshot{}, false
	}
	return tl.snapshot(), true
}

// VisibleStatuses returns the visible window of one timeline, newest
// first. The returned slice is a copy; the statuses are shared arena
// instances.
func (s *Store) VisibleStatuses(name string) []*model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.timelines[name]
	if !ok {
		return nil
	}
	return append([]*model.Status{}, tl.Visible...)
}

// BufferedStatuses returns the full buffered set of one timeline.
func (s *Store) BufferedStatuses(name string) []*model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	tl, ok := s.timelines[name]
	if !ok {
		return nil
	}
	return append([]*model.Status{}, tl.Statuses...)
}

// mergeOrAddGlobal folds a status into the arena. New statuses also
// join their conversation bucket.
func (s *Store) mergeOrAddGlobal(in *model.Status) (*model.Status, bool) {
	if old, ok := s.statusesByID[in.ID]; ok {
		old.Merge(in)
		return old, false
	}
	in.Prepare()
	s.allStatuses = append(s.allStatuses, in)
	s.statusesByID[in.ID] = in
	cid := in.ConversationID
	s.conversations[cid] = append(s.conversations[cid], in)
	return in, true
}

// removeFromGlobal is best-effort cleanup: the ordered list, the
// conversation bucket and notifications referencing the status are
// pruned.
func (s *Store) removeFromGlobal(st *model.Status) {
	s.allStatuses = removeStatusWhere(s.allStatuses, func(x *model.Status) bool { return x.ID == st.ID })
	// TODO: prune statusesByID here as well?
	s.notifications.removeForStatus(st.ID)
	if bucket, ok := s.conversations[st.ConversationID]; ok {
		s.conversations[st.ConversationID] = removeStatusWhere(bucket, func(x *model.Status) bool { return x.ID == st.ID })
	}
}

func (s *Store) findByURI(uri string) *model.Status {
	for _, st := range s.allStatuses {
		if st.URI == uri {
			return st
		}
	}
	return nil
}

func (s *Store) findByID(id string) *model.Status {
	for _, st := range s.allStatuses {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// AddStatusesOpts carries one timeline batch into the store.
type AddStatusesOpts struct {
	// Timeline is the target view; empty means arena-only.
	Timeline string
	Items    []model.TimelineItem
	// ShowImmediately places statuses straight into the visible window
	// without touching the new-item badge.
	ShowImmediately bool
	// NoIDUpdate leaves the pagination watermarks alone (pinned and
	// other out-of-band fetches).
	NoIDUpdate bool
	// UserID is the profile the request was made for; user-scoped
	// timelines drop batches bound to someone else.
	UserID string
}

// AddNewStatuses merges a fetched batch into the arena and the target
// timeline. It returns false without mutating anything for an empty or
// missing batch, an unknown timeline, or a stale user-scoped response.
func (s *Store) AddNewStatuses(opts AddStatusesOpts) bool {
	if len(opts.Items) == 0 {
		return false
	}
	s.mu.Lock()

	var tl *Timeline
	if opts.Timeline != "" {
		tl = s.timelines[opts.Timeline]
		if tl == nil {
			s.mu.Unlock()
			return false
		}
	}

	// A slow response for a previously viewed profile must not land in
	// the timeline of the one viewed now.
	if tl != nil && (tl.Name == TimelineUser || tl.Name == TimelineMedia) && tl.UserID != opts.UserID {
		s.mu.Unlock()
		return false
	}

	var ids []string
	for _, item := range opts.Items {
		switch item.Kind {
		case model.ItemStatus, model.ItemRetweet:
			ids = append(ids, item.Status.ID)
		case model.ItemFavorite:
			ids = append(ids, item.Favorite.ID)
		}
	}
	maxNew := model.MaxBatchID(ids)
	minNew := model.MinBatchID(ids)
	if tl != nil && !opts.NoIDUpdate && maxNew != "" {
		if tl.MaxID == "" || model.NewerID(maxNew, tl.MaxID) {
			tl.MaxID = maxNew
		}
		if tl.MinID == "" || model.OlderID(minNew, tl.MinID) {
			tl.MinID = minNew
		}
	}

	touched := map[string]bool{}
	if tl != nil {
		touched[tl.Name] = true
	}

	for _, item := range opts.Items {
		switch item.Kind {
		case model.ItemStatus:
			s.addStatusLocked(tl, item.Status, opts.ShowImmediately, true, touched)
		case model.ItemRetweet:
			s.addRetweetLocked(tl, item.Status, opts.ShowImmediately, touched)
		case model.ItemFavorite:
			s.addFavoriteLocked(item.Favorite)
		case model.ItemDeletion:
			s.addDeletionLocked(tl, item.DeletedURI)
		case model.ItemFollow:
			// Known kind, nothing to do with it yet.
		default:
			logging.Warn("unknown_timeline_item", map[string]any{"kind": item.RawKind})
		}
	}

	if tl != nil {
		tl.sortNow()
	}
	if touched[TimelineMentions] {
		s.timelines[TimelineMentions].sortNow()
	}
	if touched[TimelineDMs] {
		s.timelines[TimelineDMs].sortNow()
	}

	topics := make([]string, 0, len(touched))
	for name := range touched {
		topics = append(topics, name)
	}
	s.mu.Unlock()
	s.notify(topics...)
	return true
}

// addStatusLocked is the per-status path: arena merge, mention and DM
// mirroring for genuinely new statuses, then the target timeline.
func (s *Store) addStatusLocked(tl *Timeline, data *model.Status, show, addToTimeline bool, touched map[string]bool) *model.Status {
	st, isNew := s.mergeOrAddGlobal(data)

	if isNew {
		if s.mentionsCurrentUser(st) {
			mentions := s.timelines[TimelineMentions]
			if tl != mentions {
				mentions.mergeOrAdd(st)
				mentions.NewStatusCount++
				touched[TimelineMentions] = true
			}
		}
		if st.Visibility == "direct" {
			dms := s.timelines[TimelineDMs]
			dms.mergeOrAdd(st)
			dms.NewStatusCount++
			touched[TimelineDMs] = true
		}
	}

	newHere := false
	if tl != nil && addToTimeline {
		newHere = tl.mergeOrAdd(st)
	}
	if tl != nil && show {
		tl.mergeOrAddVisible(st)
	} else if tl != nil && addToTimeline && newHere {
		tl.NewStatusCount++
	}
	return st
}

// addRetweetLocked suppresses visual duplication: if the timeline
// already shows the original (as itself or via another repeat) the
// wrapper only enters the arena.
func (s *Store) addRetweetLocked(tl *Timeline, wrapper *model.Status, show bool, touched map[string]bool) {
	orig := s.addStatusLocked(tl, wrapper.RetweetedStatus, false, false, touched)

	duplicated := false
	if tl != nil {
		for _, existing := range tl.Statuses {
			if existing.RetweetedStatus != nil {
				if existing.ID == orig.ID || existing.RetweetedStatus.ID == orig.ID {
					duplicated = true
					break
				}
			} else if existing.ID == orig.ID {
				duplicated = true
				break
			}
		}
	}

	var retweet *model.Status
	if duplicated {
		retweet = s.addStatusLocked(tl, wrapper, false, false, touched)
	} else {
		retweet = s.addStatusLocked(tl, wrapper, show, true, touched)
	}
	retweet.RetweetedStatus = orig
}

// addFavoriteLocked applies a favorite event at most once. Our own
// favorites are already counted through the direct request confirm, so
// only the flag is set for those.
func (s *Store) addFavoriteLocked(fav *model.Favorite) {
	if _, seen := s.seenFavorites[fav.ID]; seen {
		return
	}
	s.seenFavorites[fav.ID] = struct{}{}
	st := s.findByID(fav.StatusID)
	if st == nil {
		return
	}
	if fav.User != nil && s.currentUser != nil && fav.User.ID == s.currentUser.ID {
		st.Favorited = true
	} else {
		st.FaveNum++
	}
}

// addDeletionLocked resolves the target by URI; delete events reference
// the federated object, not the local id.
func (s *Store) addDeletionLocked(tl *Timeline, uri string) {
	st := s.findByURI(uri)
	if st == nil {
		return
	}
	s.removeFromGlobal(st)
	if tl != nil {
		tl.removeByURI(uri)
	}
}

func (s *Store) mentionsCurrentUser(st *model.Status) bool {
	if s.currentUser == nil || st.Kind != "status" {
		return false
	}
	for _, u := range st.Attentions {
		if u.ID == s.currentUser.ID {
			return true
		}
	}
	return false
}

// ShowNewStatuses flushes the buffered set into the visible window.
func (s *Store) ShowNewStatuses(timeline string) {
	s.mu.Lock()
	tl, ok := s.timelines[timeline]
	if ok {
		tl.showNew()
	}
	s.mu.Unlock()
	if ok {
		s.notify(timeline)
	}
}

// QueueFlush records a flush marker so the UI can offer "show new"
// instead of having content yanked while reading.
func (s *Store) QueueFlush(timeline, id string) {
	s.mu.Lock()
	if tl, ok := s.timelines[timeline]; ok {
		tl.FlushMarker = id
	}
	s.mu.Unlock()
}

// RemoveUserStatuses drops a user's statuses from one timeline, e.g.
// after blocking them.
func (s *Store) RemoveUserStatuses(timeline, userID string) {
	if userID == "" {
		return
	}
	s.mu.Lock()
	tl, ok := s.timelines[timeline]
	if ok {
		tl.removeByAuthor(userID)
	}
	s.mu.Unlock()
	if ok {
		s.notify(timeline)
	}
}

// SetTimelineUserID binds a user-scoped timeline to the profile being
// viewed; the stale-response guard checks against this.
func (s *Store) SetTimelineUserID(timeline, userID string) {
	s.mu.Lock()
	if tl, ok := s.timelines[timeline]; ok {
		tl.UserID = userID
	}
	s.mu.Unlock()
}

// ClearTimeline empties one timeline, optionally keeping the bound
// user id so an in-flight response still matches.
func (s *Store) ClearTimeline(timeline string, keepUserID bool) {
	s.mu.Lock()
	tl, ok := s.timelines[timeline]
	if ok {
		userID := ""
		if keepUserID {
			userID = tl.UserID
		}
		s.timelines[timeline] = newTimeline(timeline, userID)
	}
	s.mu.Unlock()
	if ok {
		s.notify(timeline)
	}
}

// Reset wipes everything, as on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	s.allStatuses = nil
	s.statusesByID = map[string]*model.Status{}
	s.conversations = map[string][]*model.Status{}
	s.seenFavorites = map[string]struct{}{}
	for _, name := range timelineNames() {
		s.timelines[name] = newTimeline(name, "")
	}
	s.notifications = newNotifications()
	s.users = newUsers()
	s.currentUser = nil
	s.mu.Unlock()
	s.notify("users", "notifications")
}

// SetLoading flips a timeline's loading flag.
func (s *Store) SetLoading(timeline string, v bool) {
	s.mu.Lock()
	if tl, ok := s.timelines[timeline]; ok {
		tl.Loading = v
	}
	s.mu.Unlock()
}

// SetError flips a timeline's error flag; polling continues regardless.
func (s *Store) SetError(timeline string, v bool) {
	s.mu.Lock()
	if tl, ok := s.timelines[timeline]; ok {
		tl.Error = v
	}
	s.mu.Unlock()
}
