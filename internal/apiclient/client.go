// Package apiclient talks to a reel2bits instance over its
// Mastodon-compatible REST API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"soundreel/internal/model"
	"soundreel/internal/normalize"
	"golang.org/x/time/rate"
)

// TimelineArgs are the cursor and filter parameters of a timeline fetch.
type TimelineArgs struct {
	Timeline  string
	SinceID   string
	MaxID     string
	UserID    string
	Tag       string
	Count     int
	WithMuted bool
}

// NotificationArgs are the cursor parameters of a notification fetch.
type NotificationArgs struct {
	SinceID int64
	MaxID   int64
	// SinceSet/MaxSet distinguish "cursor zero" from "no cursor".
	SinceSet bool
	MaxSet   bool
}

// Client defines the API surface the pollers and the mutation
// coordinator use.
type Client interface {
	FetchTimeline(ctx context.Context, args TimelineArgs) ([]model.TimelineItem, error)
	FetchNotifications(ctx context.Context, args NotificationArgs) ([]*model.Notification, error)
	FetchPinnedStatuses(ctx context.Context, userID string) ([]model.TimelineItem, error)
	FetchUser(ctx context.Context, id string) (*model.User, error)
	FetchFavoritedBy(ctx context.Context, id string) ([]*model.User, error)
	FetchRebloggedBy(ctx context.Context, id string) ([]*model.User, error)
	Favorite(ctx context.Context, id string) (*model.Status, error)
	Unfavorite(ctx context.Context, id string) (*model.Status, error)
	Retweet(ctx context.Context, id string) (*model.Status, error)
	Unretweet(ctx context.Context, id string) (*model.Status, error)
	PinStatus(ctx context.Context, id string) (*model.Status, error)
	UnpinStatus(ctx context.Context, id string) (*model.Status, error)
	MuteConversation(ctx context.Context, id string) (*model.Status, error)
	UnmuteConversation(ctx context.Context, id string) (*model.Status, error)
	DeleteStatus(ctx context.Context, id string) error
	Follow(ctx context.Context, id string) (*model.User, error)
	Unfollow(ctx context.Context, id string) (*model.User, error)
	MarkNotificationsRead(ctx context.Context, maxID int64) error
}

// HTTPClient is a bearer-token client against one instance.
type HTTPClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func NewHTTPClient(baseURL, accessToken string) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
	}
}

func (c *HTTPClient) auth(req *http.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	req.Header.Set("Accept", "application/json")
}

// do runs one request through the limiter and returns the body for 2xx.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("api status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// timelinePath maps a timeline name onto its endpoint plus the fixed
// query parameters the endpoint needs.
func timelinePath(args TimelineArgs) (string, url.Values, error) {
	q := url.Values{}
	switch args.Timeline {
	case "friends":
		return "/api/v1/timelines/home", q, nil
	case "public":
		q.Set("local", "true")
		return "/api/v1/timelines/public", q, nil
	case "publicAndExternal":
		return "/api/v1/timelines/public", q, nil
	case "user":
		if args.UserID == "" {
			return "", nil, errors.New("user timeline needs a user id")
		}
		return "/api/v1/accounts/" + url.PathEscape(args.UserID) + "/statuses", q, nil
	case "media":
		if args.UserID == "" {
			return "", nil, errors.New("media timeline needs a user id")
		}
		q.Set("only_media", "true")
		return "/api/v1/accounts/" + url.PathEscape(args.UserID) + "/statuses", q, nil
	case "favorites":
		return "/api/v1/favourites", q, nil
	case "dms":
		return "/api/v1/timelines/direct", q, nil
	case "drafts":
		return "/api/v1/timelines/drafts", q, nil
	case "albums":
		return "/api/v1/timelines/albums", q, nil
	case "tag":
		if args.Tag == "" {
			return "", nil, errors.New("tag timeline needs a tag")
		}
		return "/api/v1/timelines/tag/" + url.PathEscape(args.Tag), q, nil
	default:
		return "", nil, fmt.Errorf("unknown timeline %q", args.Timeline)
	}
}

func (c *HTTPClient) FetchTimeline(ctx context.Context, args TimelineArgs) ([]model.TimelineItem, error) {
	path, q, err := timelinePath(args)
	if err != nil {
		return nil, err
	}
	if args.SinceID != "" {
		q.Set("since_id", args.SinceID)
	}
	if args.MaxID != "" {
		q.Set("max_id", args.MaxID)
	}
	if args.Count > 0 {
		q.Set("count", strconv.Itoa(args.Count))
	}
	if args.WithMuted {
		q.Set("with_muted", "true")
	}
	body, err := c.do(ctx, http.MethodGet, path, q)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		// Paginated native endpoints wrap the array in an envelope.
		var envelope struct {
			Items []json.RawMessage `json:"items"`
		}
		if err2 := json.Unmarshal(body, &envelope); err2 != nil {
			return nil, err
		}
		raws = envelope.Items
	}
	return normalize.ParseTimelineItems(raws), nil
}

func (c *HTTPClient) FetchNotifications(ctx context.Context, args NotificationArgs) ([]*model.Notification, error) {
	q := url.Values{}
	if args.SinceSet {
		q.Set("since_id", strconv.FormatInt(args.SinceID, 10))
	}
	if args.MaxSet {
		q.Set("max_id", strconv.FormatInt(args.MaxID, 10))
	}
	body, err := c.do(ctx, http.MethodGet, "/api/v1/notifications", q)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	out := make([]*model.Notification, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalize.ParseNotification(raw))
	}
	return out, nil
}

func (c *HTTPClient) FetchPinnedStatuses(ctx context.Context, userID string) ([]model.TimelineItem, error) {
	q := url.Values{}
	q.Set("pinned", "true")
	body, err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(userID)+"/statuses", q)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	return normalize.ParseTimelineItems(raws), nil
}

func (c *HTTPClient) FetchUser(ctx context.Context, id string) (*model.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/accounts/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return normalize.ParseUser(body), nil
}

func (c *HTTPClient) userList(ctx context.Context, path string) ([]*model.User, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	out := make([]*model.User, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalize.ParseUser(raw))
	}
	return out, nil
}

func (c *HTTPClient) FetchFavoritedBy(ctx context.Context, id string) ([]*model.User, error) {
	return c.userList(ctx, "/api/v1/statuses/"+url.PathEscape(id)+"/favourited_by")
}

func (c *HTTPClient) FetchRebloggedBy(ctx context.Context, id string) ([]*model.User, error) {
	return c.userList(ctx, "/api/v1/statuses/"+url.PathEscape(id)+"/reblogged_by")
}

// statusAction POSTs one status action and normalizes the returned
// status.
func (c *HTTPClient) statusAction(ctx context.Context, id, action string) (*model.Status, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/statuses/"+url.PathEscape(id)+"/"+action, nil)
	if err != nil {
		return nil, err
	}
	return normalize.ParseStatus(body), nil
}

func (c *HTTPClient) Favorite(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "favourite")
}

func (c *HTTPClient) Unfavorite(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "unfavourite")
}

func (c *HTTPClient) Retweet(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "reblog")
}

func (c *HTTPClient) Unretweet(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "unreblog")
}

func (c *HTTPClient) PinStatus(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "pin")
}

func (c *HTTPClient) UnpinStatus(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "unpin")
}

func (c *HTTPClient) MuteConversation(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "mute")
}

func (c *HTTPClient) UnmuteConversation(ctx context.Context, id string) (*model.Status, error) {
	return c.statusAction(ctx, id, "unmute")
}

func (c *HTTPClient) DeleteStatus(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/statuses/"+url.PathEscape(id), nil)
	return err
}

func (c *HTTPClient) Follow(ctx context.Context, id string) (*model.User, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/accounts/"+url.PathEscape(id)+"/follow", nil)
	if err != nil {
		return nil, err
	}
	return normalize.ParseRelationship(body), nil
}

func (c *HTTPClient) Unfollow(ctx context.Context, id string) (*model.User, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/v1/accounts/"+url.PathEscape(id)+"/unfollow", nil)
	if err != nil {
		return nil, err
	}
	return normalize.ParseRelationship(body), nil
}

func (c *HTTPClient) MarkNotificationsRead(ctx context.Context, maxID int64) error {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(maxID, 10))
	_, err := c.do(ctx, http.MethodPost, "/api/v1/notifications/read", q)
	return err
}
