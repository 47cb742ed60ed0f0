package fetcher

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"soundreel/internal/apiclient"
	"soundreel/internal/config"
	"soundreel/internal/model"
	"soundreel/internal/store"
)

// fakeClient implements apiclient.Client with canned responses and a
// call log.
type fakeClient struct {
	mu sync.Mutex

	timelineArgs []apiclient.TimelineArgs
	timelineResp []model.TimelineItem
	timelineErr  error

	notifArgs []apiclient.NotificationArgs
	notifResp []*model.Notification
	notifErr  error

	pinnedResp []model.TimelineItem
}

func (f *fakeClient) FetchTimeline(ctx context.Context, args apiclient.TimelineArgs) ([]model.TimelineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timelineArgs = append(f.timelineArgs, args)
	return f.timelineResp, f.timelineErr
}

func (f *fakeClient) FetchNotifications(ctx context.Context, args apiclient.NotificationArgs) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifArgs = append(f.notifArgs, args)
	return f.notifResp, f.notifErr
}

func (f *fakeClient) FetchPinnedStatuses(ctx context.Context, userID string) ([]model.TimelineItem, error) {
	return f.pinnedResp, nil
}

func (f *fakeClient) FetchUser(ctx context.Context, id string) (*model.User, error) { return nil, nil }
func (f *fakeClient) FetchFavoritedBy(ctx context.Context, id string) ([]*model.User, error) {
	return nil, nil
}
func (f *fakeClient) FetchRebloggedBy(ctx context.Context, id string) ([]*model.User, error) {
	return nil, nil
}
func (f *fakeClient) Favorite(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) Unfavorite(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) Retweet(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) Unretweet(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) PinStatus(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) UnpinStatus(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) MuteConversation(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) UnmuteConversation(ctx context.Context, id string) (*model.Status, error) {
	return nil, nil
}
func (f *fakeClient) DeleteStatus(ctx context.Context, id string) error { return nil }
func (f *fakeClient) Follow(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (f *fakeClient) Unfollow(ctx context.Context, id string) (*model.User, error) {
	return nil, nil
}
func (f *fakeClient) MarkNotificationsRead(ctx context.Context, maxID int64) error { return nil }

func (f *fakeClient) lastTimelineArgs(t *testing.T) apiclient.TimelineArgs {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.timelineArgs) == 0 {
		t.Fatal("no timeline fetch recorded")
	}
	return f.timelineArgs[len(f.timelineArgs)-1]
}

func statusItem(id string) model.TimelineItem {
	return model.TimelineItem{Kind: model.ItemStatus, Status: &model.Status{
		ID:   id,
		Kind: "status",
		User: &model.User{ID: "u" + id},
	}}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Timelines.PollInterval = time.Hour // pollers stay manual in tests
	return cfg
}

func TestFetchTimelineOnceNewerCursor(t *testing.T) {
	st := store.New()
	fc := &fakeClient{timelineResp: []model.TimelineItem{statusItem("4"), statusItem("9")}}
	d := New(fc, st, testConfig())

	if err := d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, ShowImmediately: true}); err != nil {
		t.Fatal(err)
	}
	args := fc.lastTimelineArgs(t)
	if args.SinceID != "" || args.MaxID != "" {
		t.Fatalf("first fetch should carry no cursor, got since=%q max=%q", args.SinceID, args.MaxID)
	}

	fc.timelineResp = nil
	if err := d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic}); err != nil {
		t.Fatal(err)
	}
	args = fc.lastTimelineArgs(t)
	if args.SinceID != "9" {
		t.Fatalf("newer fetch since_id = %q, want 9", args.SinceID)
	}
}

func TestFetchTimelineOnceOlderCursor(t *testing.T) {
	st := store.New()
	fc := &fakeClient{timelineResp: []model.TimelineItem{statusItem("4"), statusItem("9")}}
	d := New(fc, st, testConfig())
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, ShowImmediately: true})

	fc.timelineResp = nil
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, Older: true})
	args := fc.lastTimelineArgs(t)
	if args.MaxID != "4" || args.SinceID != "" {
		t.Fatalf("older fetch cursors = since %q max %q, want max 4", args.SinceID, args.MaxID)
	}

	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, Older: true, Until: "2"})
	if args := fc.lastTimelineArgs(t); args.MaxID != "2" {
		t.Fatalf("until override ignored, max_id = %q", args.MaxID)
	}
}

func TestFetchTimelineOnceErrorFlagsStream(t *testing.T) {
	st := store.New()
	fc := &fakeClient{timelineErr: errors.New("boom")}
	d := New(fc, st, testConfig())

	if err := d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic}); err == nil {
		t.Fatal("expected error")
	}
	snap, _ := st.Timeline(store.TimelinePublic)
	if !snap.Error {
		t.Fatal("error flag not set")
	}

	fc.timelineErr = nil
	fc.timelineResp = []model.TimelineItem{statusItem("1")}
	if err := d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic}); err != nil {
		t.Fatal(err)
	}
	snap, _ = st.Timeline(store.TimelinePublic)
	if snap.Error {
		t.Fatal("error flag not cleared on recovery")
	}
}

func TestFetchTimelineOnceFlushMarker(t *testing.T) {
	st := store.New()
	fc := &fakeClient{timelineResp: []model.TimelineItem{statusItem("1")}}
	d := New(fc, st, testConfig())
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, ShowImmediately: true})

	big := make([]model.TimelineItem, 0, flushThreshold)
	for i := 0; i < flushThreshold; i++ {
		big = append(big, statusItem(strconv.Itoa(100+i)))
	}
	fc.timelineResp = big
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic})

	snap, _ := st.Timeline(store.TimelinePublic)
	if snap.FlushMarker != "1" {
		t.Fatalf("flush marker = %q, want pre-fetch max 1", snap.FlushMarker)
	}
}

func TestFetchTimelineOnceNoFlushOnEmptyTimeline(t *testing.T) {
	st := store.New()
	big := make([]model.TimelineItem, 0, flushThreshold)
	for i := 0; i < flushThreshold; i++ {
		big = append(big, statusItem(strconv.Itoa(100 + i)))
	}
	fc := &fakeClient{timelineResp: big}
	d := New(fc, st, testConfig())
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: store.TimelinePublic, ShowImmediately: true})

	snap, _ := st.Timeline(store.TimelinePublic)
	if snap.FlushMarker != "" {
		t.Fatalf("initial load must not queue a flush, marker = %q", snap.FlushMarker)
	}
}

func TestFetchNotificationsCursors(t *testing.T) {
	st := store.New()
	fc := &fakeClient{notifResp: []*model.Notification{
		{ID: 3, Type: model.NotificationLike, Seen: true, FromProfile: &model.User{ID: "x"}},
		{ID: 8, Type: model.NotificationMention, Seen: true, FromProfile: &model.User{ID: "y"}},
	}}
	d := New(fc, st, testConfig())

	if err := d.FetchNotificationsOnce(false); err != nil {
		t.Fatal(err)
	}
	fc.mu.Lock()
	first := fc.notifArgs[0]
	fc.mu.Unlock()
	if first.SinceSet || first.MaxSet {
		t.Fatalf("first fetch should carry no cursor: %+v", first)
	}

	fc.notifResp = nil
	_ = d.FetchNotificationsOnce(false)
	fc.mu.Lock()
	last := fc.notifArgs[len(fc.notifArgs)-1]
	fc.mu.Unlock()
	if !last.SinceSet || last.SinceID != 8 {
		t.Fatalf("newer fetch since = %+v, want 8", last)
	}

	_ = d.FetchNotificationsOnce(true)
	fc.mu.Lock()
	older := fc.notifArgs[len(fc.notifArgs)-1]
	fc.mu.Unlock()
	if !older.MaxSet || older.MaxID != 3 {
		t.Fatalf("older fetch max = %+v, want 3", older)
	}
}

func TestFetchNotificationsUnseenRepull(t *testing.T) {
	st := store.New()
	fc := &fakeClient{notifResp: []*model.Notification{
		{ID: 5, Type: model.NotificationLike, FromProfile: &model.User{ID: "x"}},
	}}
	d := New(fc, st, testConfig())

	_ = d.FetchNotificationsOnce(false)
	fc.mu.Lock()
	calls := len(fc.notifArgs)
	second := fc.notifArgs[calls-1]
	fc.mu.Unlock()
	// One unseen notification landed, so the cycle re-pulls from it.
	if calls != 2 {
		t.Fatalf("calls = %d, want fetch plus unseen re-pull", calls)
	}
	if !second.SinceSet || second.SinceID != 5 {
		t.Fatalf("re-pull cursor = %+v, want since 5", second)
	}
}

func TestStartFetchingIsIdempotentAndStops(t *testing.T) {
	st := store.New()
	fc := &fakeClient{}
	d := New(fc, st, testConfig())

	d.StartFetchingTimeline(store.TimelinePublic, "", "")
	d.StartFetchingTimeline(store.TimelinePublic, "", "")
	if !d.Active(store.TimelinePublic) {
		t.Fatal("stream should be active")
	}

	d.StopFetching(store.TimelinePublic)
	d.StopFetching(store.TimelinePublic) // idempotent
	if d.Active(store.TimelinePublic) {
		t.Fatal("stream should be stopped")
	}

	d.StartFetchingNotifications()
	d.StopAll()
	if d.Active("notifications") {
		t.Fatal("StopAll left the notification poller active")
	}
}

func TestFetchPinnedKeepsWatermarks(t *testing.T) {
	st := store.New()
	st.SetTimelineUserID(store.TimelineUser, "7")
	fc := &fakeClient{pinnedResp: []model.TimelineItem{statusItem("100")}}
	d := New(fc, st, testConfig())

	if err := d.FetchPinned("7"); err != nil {
		t.Fatal(err)
	}
	snap, _ := st.Timeline(store.TimelineUser)
	if snap.MaxID != "" || snap.MinID != "" {
		t.Fatalf("pinned fetch moved watermarks: %q/%q", snap.MaxID, snap.MinID)
	}
	if snap.VisibleCount != 1 {
		t.Fatalf("pinned status not visible, count = %d", snap.VisibleCount)
	}
}
