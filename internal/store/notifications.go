package store

import (
	"math"

	"soundreel/internal/model"
)

// notifications is the notification aggregate. Unlike status ids,
// notification ids are integers on both API shapes; MinID starts at
// the integer ceiling the way the original used positive infinity.
type notifications struct {
	DesktopSilence bool
	MaxID          int64
	MinID          int64
	Data           []*model.Notification
	idStore        map[int64]*model.Notification
	Loading        bool
	Error          bool
}

func newNotifications() *notifications {
	return &notifications{
		// Silenced at startup so opening the client does not spray
		// desktop notifications; the poller lifts this after a while.
		DesktopSilence: true,
		MinID:          math.MaxInt64,
		Data:           []*model.Notification{},
		idStore:        map[int64]*model.Notification{},
	}
}

func (n *notifications) removeForStatus(statusID string) {
	keep := n.Data[:0]
	for _, item := range n.Data {
		if item.Action != nil && item.Action.ID == statusID {
			delete(n.idStore, item.ID)
			continue
		}
		keep = append(keep, item)
	}
	n.Data = keep
}

// AddNotificationsOpts carries one notification batch into the store.
type AddNotificationsOpts struct {
	Notifications []*model.Notification
	Older         bool
	// VisibleTypes is the desktop notification allow-list from user
	// configuration.
	VisibleTypes []string
}

// AddNewNotifications merges a batch. An id already present is never
// re-inserted; only its seen flag may be upgraded, never reverted.
// Watermarks extend unconditionally since notifications are not
// user-scoped. Desktop notification delivery is fire-and-forget and
// happens outside the lock.
func (s *Store) AddNewNotifications(opts AddNotificationsOpts) {
	var pending []*model.Notification

	s.mu.Lock()
	ns := s.notifications
	for _, n := range opts.Notifications {
		if n.Type != model.NotificationFollow {
			if n.Action != nil {
				n.Action, _ = s.mergeOrAddGlobal(n.Action)
			}
			if n.Status != nil {
				n.Status, _ = s.mergeOrAddGlobal(n.Status)
			}
		}

		existing, known := ns.idStore[n.ID]
		if known {
			if n.Seen {
				existing.Seen = true
			}
			continue
		}

		if n.ID > ns.MaxID {
			ns.MaxID = n.ID
		}
		if n.ID < ns.MinID {
			ns.MinID = n.ID
		}
		ns.Data = append(ns.Data, n)
		ns.idStore[n.ID] = n

		if s.notifier != nil && !n.Seen && !ns.DesktopSilence && containsType(opts.VisibleTypes, n.Type) {
			pending = append(pending, n)
		}
	}
	notifier := s.notifier
	s.mu.Unlock()

	for _, n := range pending {
		notifier.Notify(n)
	}
	s.notify("notifications")
}

func containsType(types []string, t string) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// Notifications returns a copy of the notification list.
func (s *Store) Notifications() []*model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Notification{}, s.notifications.Data...)
}

// UnseenNotificationMinID returns the smallest id among unseen
// notifications; ok is false when everything is seen.
func (s *Store) UnseenNotificationMinID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	min := int64(math.MaxInt64)
	found := false
	for _, n := range s.notifications.Data {
		if !n.Seen && n.ID < min {
			min = n.ID
			found = true
		}
	}
	return min, found
}

// NotificationWatermarks returns (maxID, minID, minIsSet).
func (s *Store) NotificationWatermarks() (int64, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.notifications
	return ns.MaxID, ns.MinID, ns.MinID != math.MaxInt64
}

// MarkNotificationsAsSeen marks everything seen locally and returns
// the max id for the read marker API call.
func (s *Store) MarkNotificationsAsSeen() int64 {
	s.mu.Lock()
	for _, n := range s.notifications.Data {
		n.Seen = true
	}
	maxID := s.notifications.MaxID
	s.mu.Unlock()
	s.notify("notifications")
	return maxID
}

// SetNotificationsLoading flips the notification loading flag.
func (s *Store) SetNotificationsLoading(v bool) {
	s.mu.Lock()
	s.notifications.Loading = v
	s.mu.Unlock()
}

// SetNotificationsError flips the notification stream error flag.
func (s *Store) SetNotificationsError(v bool) {
	s.mu.Lock()
	s.notifications.Error = v
	s.mu.Unlock()
}

// NotificationsError reports the notification stream error flag.
func (s *Store) NotificationsError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications.Error
}

// SetNotificationsSilence flips the desktop notification mute.
func (s *Store) SetNotificationsSilence(v bool) {
	s.mu.Lock()
	s.notifications.DesktopSilence = v
	s.mu.Unlock()
}

// ClearNotifications resets the notification aggregate.
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	s.notifications = newNotifications()
	s.mu.Unlock()
	s.notify("notifications")
}
