// Package fetcher drives the repeated timeline and notification
// fetches. Each named stream gets at most one poller; a poller fetches
// immediately, then on a fixed interval until stopped. Errors flag the
// stream and never stop the timer.
package fetcher

import (
	"context"
	"sync"
	"time"

	"soundreel/internal/apiclient"
	"soundreel/internal/config"
	"soundreel/internal/logging"
	"soundreel/internal/metrics"
	"soundreel/internal/store"
)

// flushThreshold is the batch size past which a newer poll defers
// display through a flush marker instead of disturbing the visible
// window.
const flushThreshold = 20

// notificationsStream names the notification poller.
const notificationsStream = "notifications"

// silenceReset is how long desktop notifications stay muted after the
// notification poller starts, so a fresh session does not spray them.
const silenceReset = 10 * time.Second

type poller struct {
	cancel context.CancelFunc
}

// Driver owns the named pollers.
type Driver struct {
	client   apiclient.Client
	store    *store.Store
	cfg      config.Config
	interval time.Duration

	mu      sync.Mutex
	pollers map[string]*poller
}

func New(client apiclient.Client, st *store.Store, cfg config.Config) *Driver {
	interval := cfg.Timelines.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Driver{
		client:   client,
		store:    st,
		cfg:      cfg,
		interval: interval,
		pollers:  map[string]*poller{},
	}
}

// FetchOpts parameterize one timeline fetch cycle.
type FetchOpts struct {
	Timeline string
	UserID   string
	Tag      string
	// Older requests items before MinID (manual backfill); otherwise
	// the fetch asks for items after MaxID.
	Older bool
	// Until overrides the older-poll cursor.
	Until           string
	ShowImmediately bool
}

// StartFetchingTimeline begins polling one timeline. Starting an
// already-active stream is a no-op.
func (d *Driver) StartFetchingTimeline(timeline, userID, tag string) {
	d.mu.Lock()
	if _, running := d.pollers[timeline]; running {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.pollers[timeline] = &poller{cancel: cancel}
	d.mu.Unlock()

	d.store.SetTimelineUserID(timeline, userID)
	snap, _ := d.store.Timeline(timeline)
	showImmediately := snap.VisibleCount == 0

	go d.runTimeline(ctx, timeline, userID, tag, showImmediately)
}

func (d *Driver) runTimeline(ctx context.Context, timeline, userID, tag string, showImmediately bool) {
	_ = d.FetchTimelineOnce(FetchOpts{Timeline: timeline, UserID: userID, Tag: tag, ShowImmediately: showImmediately})
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info("poll_stop", map[string]any{"stream": timeline})
			return
		case <-t.C:
			_ = d.FetchTimelineOnce(FetchOpts{Timeline: timeline, UserID: userID, Tag: tag})
		}
	}
}

// FetchTimelineOnce runs one fetch cycle. Cancellation is cooperative:
// a cycle already underway completes and its result is still applied,
// so requests deliberately run on a background context.
func (d *Driver) FetchTimelineOnce(opts FetchOpts) error {
	snap, ok := d.store.Timeline(opts.Timeline)
	if !ok {
		return nil
	}
	args := apiclient.TimelineArgs{
		Timeline:  opts.Timeline,
		UserID:    opts.UserID,
		Tag:       opts.Tag,
		WithMuted: !d.cfg.Timelines.HideMutedPosts,
	}
	if opts.Older {
		if opts.Until != "" {
			args.MaxID = opts.Until
		} else {
			args.MaxID = snap.MinID
		}
	} else {
		args.SinceID = snap.MaxID
	}

	start := time.Now()
	metrics.PollRuns.WithLabelValues(opts.Timeline).Inc()
	items, err := d.client.FetchTimeline(context.Background(), args)
	if err != nil {
		metrics.PollErrors.WithLabelValues(opts.Timeline).Inc()
		d.store.SetError(opts.Timeline, true)
		logging.Error("poll_error", map[string]any{"stream": opts.Timeline, "error": err.Error()})
		return err
	}
	d.store.SetError(opts.Timeline, false)

	// A big newer batch on a populated timeline would yank content out
	// from under a reading user; queue a flush marker instead.
	if !opts.Older && len(items) >= flushThreshold && !snap.Loading && snap.StatusCount > 0 {
		d.store.QueueFlush(opts.Timeline, snap.MaxID)
	}

	d.store.AddNewStatuses(store.AddStatusesOpts{
		Timeline:        opts.Timeline,
		Items:           items,
		ShowImmediately: opts.ShowImmediately,
		UserID:          opts.UserID,
	})
	metrics.StatusesMerged.Add(float64(len(items)))
	metrics.ObservePollDuration(start)
	return nil
}

// FetchPinned loads a profile's pinned statuses straight into view
// without perturbing the pagination watermarks.
func (d *Driver) FetchPinned(userID string) error {
	items, err := d.client.FetchPinnedStatuses(context.Background(), userID)
	if err != nil {
		return err
	}
	d.store.AddNewStatuses(store.AddStatusesOpts{
		Timeline:        store.TimelineUser,
		Items:           items,
		UserID:          userID,
		ShowImmediately: true,
		NoIDUpdate:      true,
	})
	return nil
}

// StartFetchingNotifications begins the notification poller. Also a
// no-op when already running.
func (d *Driver) StartFetchingNotifications() {
	d.mu.Lock()
	if _, running := d.pollers[notificationsStream]; running {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.pollers[notificationsStream] = &poller{cancel: cancel}
	d.mu.Unlock()

	go d.runNotifications(ctx)
}

func (d *Driver) runNotifications(ctx context.Context) {
	if d.cfg.Notifications.Desktop {
		silence := time.AfterFunc(silenceReset, func() {
			d.store.SetNotificationsSilence(false)
		})
		defer silence.Stop()
	}

	_ = d.FetchNotificationsOnce(false)
	t := time.NewTicker(d.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info("poll_stop", map[string]any{"stream": notificationsStream})
			return
		case <-t.C:
			_ = d.FetchNotificationsOnce(false)
		}
	}
}

// FetchNotificationsOnce runs one notification cycle. Newer polls also
// re-pull everything from the oldest unseen id so seen-state converges
// across sessions; that second fetch is fire-and-forget and cannot
// regress local state thanks to the one-way seen upgrade.
func (d *Driver) FetchNotificationsOnce(older bool) error {
	maxID, minID, minSet := d.store.NotificationWatermarks()
	args := apiclient.NotificationArgs{}
	if older {
		if minSet {
			args.MaxID = minID
			args.MaxSet = true
		}
		return d.fetchNotifications(args, older)
	}

	if maxID > 0 {
		args.SinceID = maxID
		args.SinceSet = true
	}
	err := d.fetchNotifications(args, older)

	if minUnseen, any := d.store.UnseenNotificationMinID(); any {
		_ = d.fetchNotifications(apiclient.NotificationArgs{SinceID: minUnseen, SinceSet: true}, older)
	}
	return err
}

func (d *Driver) fetchNotifications(args apiclient.NotificationArgs, older bool) error {
	start := time.Now()
	metrics.PollRuns.WithLabelValues(notificationsStream).Inc()
	notifs, err := d.client.FetchNotifications(context.Background(), args)
	if err != nil {
		metrics.PollErrors.WithLabelValues(notificationsStream).Inc()
		d.store.SetNotificationsError(true)
		logging.Error("poll_error", map[string]any{"stream": notificationsStream, "error": err.Error()})
		return err
	}
	d.store.SetNotificationsError(false)
	d.store.AddNewNotifications(store.AddNotificationsOpts{
		Notifications: notifs,
		Older:         older,
		VisibleTypes:  d.cfg.Notifications.VisibleTypes(),
	})
	metrics.NotificationsAdded.Add(float64(len(notifs)))
	metrics.ObservePollDuration(start)
	return nil
}

// StopFetching cancels one named poller; stopping a stopped stream is
// fine.
func (d *Driver) StopFetching(name string) {
	d.mu.Lock()
	p, ok := d.pollers[name]
	if ok {
		delete(d.pollers, name)
	}
	d.mu.Unlock()
	if ok {
		p.cancel()
	}
}

// StopAll cancels every poller.
func (d *Driver) StopAll() {
	d.mu.Lock()
	pollers := d.pollers
	d.pollers = map[string]*poller{}
	d.mu.Unlock()
	for _, p := range pollers {
		p.cancel()
	}
}

// Active reports whether a named stream is currently polling.
func (d *Driver) Active(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pollers[name]
	return ok
}
