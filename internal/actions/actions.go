// Package actions coordinates user-initiated mutations. Every action
// applies its local effect first, then confirms against the server
// response, so the interface never waits on the network.
package actions

import (
	"context"
	"time"

	"soundreel/internal/apiclient"
	"soundreel/internal/config"
	"soundreel/internal/logging"
	"soundreel/internal/metrics"
	"soundreel/internal/model"
	"soundreel/internal/store"
)

// followPollAttempts and followPollDelay bound the confirmation loop
// after a follow request. Locked accounts never confirm, so the loop
// gives up quickly.
const (
	followPollAttempts = 3
	followPollDelay    = 500 * time.Millisecond
)

// Coordinator pairs the API client with the store.
type Coordinator struct {
	client apiclient.Client
	store  *store.Store
	cfg    config.Config
}

func New(client apiclient.Client, st *store.Store, cfg config.Config) *Coordinator {
	return &Coordinator{client: client, store: st, cfg: cfg}
}

// finish records the outcome and optionally rolls the optimistic flip
// back. The default keeps the flip and lets the next poll settle it.
func (c *Coordinator) finish(kind string, err error, rollback func()) error {
	if err == nil {
		metrics.IncAction(kind, "ok")
		return nil
	}
	metrics.IncAction(kind, "error")
	logging.Error("action_failed", map[string]any{"kind": kind, "error": err.Error()})
	if c.cfg.Actions.RollbackOnFailure && rollback != nil {
		rollback()
	}
	return err
}

func (c *Coordinator) Favorite(ctx context.Context, id string) error {
	c.store.SetFavorited(id, true)
	confirmed, err := c.client.Favorite(ctx, id)
	if err == nil {
		c.store.SetFavoritedConfirm(confirmed, c.store.CurrentUser())
	}
	return c.finish("favorite", err, func() { c.store.SetFavorited(id, false) })
}

func (c *Coordinator) Unfavorite(ctx context.Context, id string) error {
	c.store.SetFavorited(id, false)
	confirmed, err := c.client.Unfavorite(ctx, id)
	if err == nil {
		c.store.SetFavoritedConfirm(confirmed, c.store.CurrentUser())
	}
	return c.finish("unfavorite", err, func() { c.store.SetFavorited(id, true) })
}

func (c *Coordinator) Retweet(ctx context.Context, id string) error {
	c.store.SetRetweeted(id, true)
	confirmed, err := c.client.Retweet(ctx, id)
	if err == nil {
		// The reblog endpoint returns the wrapper; the target's state
		// lives on the wrapped status.
		if confirmed != nil && confirmed.RetweetedStatus != nil {
			confirmed = confirmed.RetweetedStatus
		}
		c.store.SetRetweetedConfirm(confirmed, c.store.CurrentUser())
	}
	return c.finish("retweet", err, func() { c.store.SetRetweeted(id, false) })
}

func (c *Coordinator) Unretweet(ctx context.Context, id string) error {
	c.store.SetRetweeted(id, false)
	confirmed, err := c.client.Unretweet(ctx, id)
	if err == nil {
		if confirmed != nil && confirmed.RetweetedStatus != nil {
			confirmed = confirmed.RetweetedStatus
		}
		c.store.SetRetweetedConfirm(confirmed, c.store.CurrentUser())
	}
	return c.finish("unretweet", err, func() { c.store.SetRetweeted(id, true) })
}

func (c *Coordinator) Pin(ctx context.Context, id string) error {
	confirmed, err := c.client.PinStatus(ctx, id)
	if err == nil {
		c.store.SetPinned(confirmed)
	}
	return c.finish("pin", err, nil)
}

func (c *Coordinator) Unpin(ctx context.Context, id string) error {
	confirmed, err := c.client.UnpinStatus(ctx, id)
	if err == nil {
		c.store.SetPinned(confirmed)
	}
	return c.finish("unpin", err, nil)
}

func (c *Coordinator) MuteConversation(ctx context.Context, id string) error {
	confirmed, err := c.client.MuteConversation(ctx, id)
	if err == nil {
		c.store.SetMutedConversation(confirmed)
	}
	return c.finish("mute_conversation", err, nil)
}

func (c *Coordinator) UnmuteConversation(ctx context.Context, id string) error {
	confirmed, err := c.client.UnmuteConversation(ctx, id)
	if err == nil {
		c.store.SetMutedConversation(confirmed)
	}
	return c.finish("unmute_conversation", err, nil)
}

// DeleteStatus removes the status locally before the server round
// trip; a failed delete leaves the status gone until the next refetch,
// matching the rest of the optimistic surface.
func (c *Coordinator) DeleteStatus(ctx context.Context, id string) error {
	c.store.SetDeleted(id)
	err := c.client.DeleteStatus(ctx, id)
	return c.finish("delete_status", err, nil)
}

// FollowResult reports how a follow request landed.
type FollowResult struct {
	// Sent means the request targets a locked account and awaits
	// approval rather than taking effect.
	Sent bool
}

// Follow issues the follow and, because some backends acknowledge
// before the relationship is queryable, polls the account a few times
// until following (or a pending request on a locked account) shows up.
func (c *Coordinator) Follow(ctx context.Context, id string) (FollowResult, error) {
	rel, err := c.client.Follow(ctx, id)
	if err != nil {
		return FollowResult{}, c.finish("follow", err, nil)
	}
	c.store.UpdateUserRelationship([]*model.User{rel})

	user, _ := c.store.UserByID(id)
	locked := user != nil && user.Locked
	if rel.Following || (locked && rel.Requested) {
		metrics.IncAction("follow", "ok")
		return FollowResult{Sent: rel.Requested}, nil
	}

	sent := rel.Requested
	for attempt := 0; attempt < followPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return FollowResult{Sent: sent}, ctx.Err()
		case <-time.After(followPollDelay):
		}
		fetched, ferr := c.client.FetchUser(ctx, id)
		if ferr != nil || fetched == nil {
			continue
		}
		c.store.AddNewUsers([]*model.User{fetched})
		sent = fetched.Requested
		if fetched.Following || (fetched.Locked && fetched.Requested) {
			break
		}
	}
	metrics.IncAction("follow", "ok")
	return FollowResult{Sent: sent}, nil
}

func (c *Coordinator) Unfollow(ctx context.Context, id string) error {
	rel, err := c.client.Unfollow(ctx, id)
	if err == nil {
		c.store.UpdateUserRelationship([]*model.User{rel})
	}
	return c.finish("unfollow", err, nil)
}

// MarkNotificationsSeen flips every local notification to seen and
// tells the server where the read watermark now sits.
func (c *Coordinator) MarkNotificationsSeen(ctx context.Context) error {
	maxID := c.store.MarkNotificationsAsSeen()
	if maxID <= 0 {
		return nil
	}
	err := c.client.MarkNotificationsRead(ctx, maxID)
	return c.finish("mark_seen", err, nil)
}

// FetchFavsAndRepeats pulls the favoriter and repeater lists for one
// status and reconciles the counters against them.
func (c *Coordinator) FetchFavsAndRepeats(ctx context.Context, id string) error {
	favs, err := c.client.FetchFavoritedBy(ctx, id)
	if err != nil {
		return c.finish("fetch_favs", err, nil)
	}
	repeats, err := c.client.FetchRebloggedBy(ctx, id)
	if err != nil {
		return c.finish("fetch_repeats", err, nil)
	}
	current := c.store.CurrentUser()
	c.store.AddFavs(id, favs, current)
	c.store.AddRepeats(id, repeats, current)
	metrics.IncAction("fetch_favs_repeats", "ok")
	return nil
}
