package store

import (
	"testing"

	"soundreel/internal/model"
)

type recordingNotifier struct {
	got []*model.Notification
}

func (r *recordingNotifier) Notify(n *model.Notification) { r.got = append(r.got, n) }

func notif(id int64, typ string, seen bool) *model.Notification {
	return &model.Notification{
		ID:          id,
		Type:        typ,
		Seen:        seen,
		FromProfile: &model.User{ID: "sender"},
	}
}

func TestAddNewNotificationsDedupAndWatermarks(t *testing.T) {
	s := New()
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(3, model.NotificationLike, false),
		notif(7, model.NotificationMention, false),
	}})

	if got := len(s.Notifications()); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	max, min, minSet := s.NotificationWatermarks()
	if max != 7 || min != 3 || !minSet {
		t.Fatalf("watermarks = %d/%d/%v", max, min, minSet)
	}

	// Same ids again: no duplicates, watermarks unchanged.
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(3, model.NotificationLike, false),
	}})
	if got := len(s.Notifications()); got != 2 {
		t.Fatalf("after re-add count = %d, want 2", got)
	}
}

func TestNotificationSeenUpgradeIsOneWay(t *testing.T) {
	s := New()
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(5, model.NotificationLike, false),
	}})

	// Server now says seen: upgrade.
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(5, model.NotificationLike, true),
	}})
	if got := s.Notifications(); !got[0].Seen {
		t.Fatal("seen upgrade not applied")
	}

	// A later unseen copy must not revert it.
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(5, model.NotificationLike, false),
	}})
	if got := s.Notifications(); !got[0].Seen {
		t.Fatal("seen flag reverted")
	}
}

func TestUnseenMinIDAndMarkSeen(t *testing.T) {
	s := New()
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{
		notif(9, model.NotificationLike, true),
		notif(4, model.NotificationMention, false),
		notif(6, model.NotificationRepeat, false),
	}})

	min, any := s.UnseenNotificationMinID()
	if !any || min != 4 {
		t.Fatalf("unseen min = %d/%v, want 4/true", min, any)
	}

	maxID := s.MarkNotificationsAsSeen()
	if maxID != 9 {
		t.Fatalf("read marker = %d, want 9", maxID)
	}
	if _, any := s.UnseenNotificationMinID(); any {
		t.Fatal("everything should be seen")
	}
}

func TestDesktopNotifierGating(t *testing.T) {
	s := New()
	rec := &recordingNotifier{}
	s.SetNotifier(rec)
	visible := []string{model.NotificationLike, model.NotificationMention}

	// Silenced at startup: nothing fires.
	s.AddNewNotifications(AddNotificationsOpts{
		Notifications: []*model.Notification{notif(1, model.NotificationLike, false)},
		VisibleTypes:  visible,
	})
	if len(rec.got) != 0 {
		t.Fatal("silenced store fired a desktop notification")
	}

	s.SetNotificationsSilence(false)
	s.AddNewNotifications(AddNotificationsOpts{
		Notifications: []*model.Notification{
			notif(2, model.NotificationLike, false),
			notif(3, model.NotificationFollow, false), // not in allow-list
			notif(4, model.NotificationRepeat, true),  // already seen
		},
		VisibleTypes: visible,
	})
	if len(rec.got) != 1 || rec.got[0].ID != 2 {
		t.Fatalf("fired = %d, want exactly the unseen allowed one", len(rec.got))
	}
}

func TestNotificationStatusJoinsArena(t *testing.T) {
	s := New()
	target := &model.Status{ID: "30", Kind: "status", User: &model.User{ID: "author"}}
	n := notif(11, model.NotificationLike, false)
	n.Action = target
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{n}})

	arena, ok := s.Status("30")
	if !ok {
		t.Fatal("notification target missing from arena")
	}
	if s.Notifications()[0].Action != arena {
		t.Fatal("notification must reference the arena instance")
	}

	// Follow notifications carry a profile, never a status payload.
	f := notif(12, model.NotificationFollow, false)
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{f}})
	if got := len(s.Notifications()); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
}

func TestRemoveForStatusThroughDeletion(t *testing.T) {
	s := New()
	st := &model.Status{ID: "77", URI: "https://remote/77", Kind: "status", User: &model.User{ID: "a"}}
	s.AddNewStatuses(AddStatusesOpts{
		Timeline:        TimelinePublic,
		Items:           []model.TimelineItem{{Kind: model.ItemStatus, Status: st}},
		ShowImmediately: true,
	})
	n := notif(20, model.NotificationLike, false)
	n.Action = &model.Status{ID: "77", Kind: "status"}
	s.AddNewNotifications(AddNotificationsOpts{Notifications: []*model.Notification{n}})

	s.AddNewStatuses(AddStatusesOpts{Timeline: TimelinePublic, Items: []model.TimelineItem{{
		Kind: model.ItemDeletion, DeletedURI: "https://remote/77",
	}}})
	if got := len(s.Notifications()); got != 0 {
		t.Fatalf("notification for deleted status survived, count = %d", got)
	}
}
