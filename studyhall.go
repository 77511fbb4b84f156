// Package studyhall provides the official Go SDK for the StudyHall API.
//
// Covers authentication, study groups, tasks, notes, resources, chat, and
// notifications, plus a real-time client for live events.
//
// Example:
//
//	client := studyhall.NewClient("sh-token-...")
//
//	// REST surface
//	groups, _ := client.Groups().List(ctx)
//	client.Notifications().MarkAllAsRead(ctx)
//
//	// Real-time (join a group room, stream events)
//	rt := client.Realtime().New(&studyhall.RealtimeConfig{Token: token})
//	rt.OnNewMessage(func(m studyhall.NewMessagePayload) { ... })
//	rt.Subscribe(ctx, studyhall.GroupRoom, groupID)
//	rt.Connect(ctx)
package studyhall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ============================================================================
// Environment
// ============================================================================

type Environment string

const (
	Production Environment = "production"
	Staging    Environment = "staging"
)

var environments = map[Environment]string{
	Production: "https://studyhall.app",
	Staging:    "https://staging.studyhall.app",
}

const (
	DefaultBaseURL = "https://studyhall.app"
	DefaultTimeout = 30 * time.Second
)

// ============================================================================
// Client
// ============================================================================

type Client struct {
	token      string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	realtime   *RealtimeFactory
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithEnvironment(env Environment) ClientOption {
	return func(c *Client) {
		if u, ok := environments[env]; ok {
			c.baseURL = u
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

func WithUserAgent(agent string) ClientOption {
	return func(c *Client) { c.userAgent = agent }
}

// NewClient creates a new StudyHall client.
// token is optional — pass "" and call Auth().Login followed by SetToken.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.realtime = &RealtimeFactory{client: c}
	return c
}

// SetToken sets or updates the bearer token (e.g. after login or refresh).
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// ============================================================================
// Internal request helpers
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, query map[string]string) (*Result, error) {
	data, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Result](data)
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func paginationQuery(opts *PaginationOptions) map[string]string {
	if opts == nil {
		return nil
	}
	q := map[string]string{}
	if opts.Page > 0 {
		q["page"] = fmt.Sprintf("%d", opts.Page)
	}
	if opts.Limit > 0 {
		q["limit"] = fmt.Sprintf("%d", opts.Limit)
	}
	if len(q) == 0 {
		return nil
	}
	return q
}

// ============================================================================
// Sub-client accessors
// ============================================================================

// Auth returns the authentication API sub-client.
func (c *Client) Auth() *AuthClient { return &AuthClient{client: c} }

// Groups returns the study groups API sub-client.
func (c *Client) Groups() *GroupsClient { return &GroupsClient{client: c} }

// Tasks returns the tasks API sub-client.
func (c *Client) Tasks() *TasksClient { return &TasksClient{client: c} }

// Notes returns the notes API sub-client.
func (c *Client) Notes() *NotesClient { return &NotesClient{client: c} }

// Resources returns the resources API sub-client.
func (c *Client) Resources() *ResourcesClient { return &ResourcesClient{client: c} }

// Notifications returns the notifications API sub-client.
func (c *Client) Notifications() *NotificationsClient { return &NotificationsClient{client: c} }

// Realtime returns the real-time client factory.
func (c *Client) Realtime() *RealtimeFactory { return c.realtime }

// Health checks API service health.
func (c *Client) Health(ctx context.Context) (*Result, error) {
	return c.do(ctx, "GET", "/api/health", nil, nil)
}

// ============================================================================
// Auth
// ============================================================================

// AuthClient handles login, identity, and token refresh.
type AuthClient struct{ client *Client }

func (a *AuthClient) Login(ctx context.Context, opts *LoginOptions) (*Result, error) {
	return a.client.do(ctx, "POST", "/api/auth/login", opts, nil)
}

func (a *AuthClient) Me(ctx context.Context) (*Result, error) {
	return a.client.do(ctx, "GET", "/api/auth/me", nil, nil)
}

func (a *AuthClient) RefreshToken(ctx context.Context) (*Result, error) {
	return a.client.do(ctx, "POST", "/api/auth/token/refresh", nil, nil)
}

func (a *AuthClient) Logout(ctx context.Context) (*Result, error) {
	return a.client.do(ctx, "POST", "/api/auth/logout", nil, nil)
}

// ============================================================================
// Groups
// ============================================================================

// GroupsClient handles study group management and chat history.
type GroupsClient struct{ client *Client }

func (g *GroupsClient) List(ctx context.Context) (*Result, error) {
	return g.client.do(ctx, "GET", "/api/groups", nil, nil)
}

func (g *GroupsClient) Create(ctx context.Context, opts *CreateGroupOptions) (*Result, error) {
	return g.client.do(ctx, "POST", "/api/groups", opts, nil)
}

func (g *GroupsClient) Get(ctx context.Context, groupID string) (*Result, error) {
	return g.client.do(ctx, "GET", "/api/groups/"+groupID, nil, nil)
}

func (g *GroupsClient) Join(ctx context.Context, groupID string) (*Result, error) {
	return g.client.do(ctx, "POST", "/api/groups/"+groupID+"/join", nil, nil)
}

func (g *GroupsClient) Leave(ctx context.Context, groupID string) (*Result, error) {
	return g.client.do(ctx, "POST", "/api/groups/"+groupID+"/leave", nil, nil)
}

func (g *GroupsClient) Members(ctx context.Context, groupID string) (*Result, error) {
	return g.client.do(ctx, "GET", "/api/groups/"+groupID+"/members", nil, nil)
}

// Messages returns the chat history of a group room, newest first.
// This is the pull side of chat: the real-time client pushes new messages,
// and a polling fallback refetches this endpoint in degraded mode.
func (g *GroupsClient) Messages(ctx context.Context, groupID string, opts *PaginationOptions) (*Result, error) {
	return g.client.do(ctx, "GET", "/api/groups/"+groupID+"/messages", nil, paginationQuery(opts))
}

func (g *GroupsClient) SendMessage(ctx context.Context, groupID, content string) (*Result, error) {
	return g.client.do(ctx, "POST", "/api/groups/"+groupID+"/messages", map[string]string{"content": content}, nil)
}

// ============================================================================
// Tasks
// ============================================================================

// TasksClient handles group tasks.
type TasksClient struct{ client *Client }

func (t *TasksClient) List(ctx context.Context, groupID string) (*Result, error) {
	return t.client.do(ctx, "GET", "/api/groups/"+groupID+"/tasks", nil, nil)
}

func (t *TasksClient) Create(ctx context.Context, groupID string, opts *TaskOptions) (*Result, error) {
	return t.client.do(ctx, "POST", "/api/groups/"+groupID+"/tasks", opts, nil)
}

func (t *TasksClient) Update(ctx context.Context, taskID string, opts *TaskOptions) (*Result, error) {
	return t.client.do(ctx, "PATCH", "/api/tasks/"+taskID, opts, nil)
}

func (t *TasksClient) Delete(ctx context.Context, taskID string) (*Result, error) {
	return t.client.do(ctx, "DELETE", "/api/tasks/"+taskID, nil, nil)
}

// ============================================================================
// Notes
// ============================================================================

// NotesClient handles shared study notes.
type NotesClient struct{ client *Client }

func (n *NotesClient) List(ctx context.Context, groupID string) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/groups/"+groupID+"/notes", nil, nil)
}

func (n *NotesClient) Create(ctx context.Context, groupID string, opts *NoteOptions) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/groups/"+groupID+"/notes", opts, nil)
}

func (n *NotesClient) Get(ctx context.Context, noteID string) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notes/"+noteID, nil, nil)
}

func (n *NotesClient) Update(ctx context.Context, noteID string, opts *NoteOptions) (*Result, error) {
	return n.client.do(ctx, "PATCH", "/api/notes/"+noteID, opts, nil)
}

func (n *NotesClient) Delete(ctx context.Context, noteID string) (*Result, error) {
	return n.client.do(ctx, "DELETE", "/api/notes/"+noteID, nil, nil)
}

// ============================================================================
// Resources
// ============================================================================

// ResourcesClient handles shared learning resources.
type ResourcesClient struct{ client *Client }

func (r *ResourcesClient) List(ctx context.Context, groupID string) (*Result, error) {
	return r.client.do(ctx, "GET", "/api/groups/"+groupID+"/resources", nil, nil)
}

func (r *ResourcesClient) Create(ctx context.Context, groupID string, opts *ResourceOptions) (*Result, error) {
	return r.client.do(ctx, "POST", "/api/groups/"+groupID+"/resources", opts, nil)
}

func (r *ResourcesClient) Delete(ctx context.Context, resourceID string) (*Result, error) {
	return r.client.do(ctx, "DELETE", "/api/resources/"+resourceID, nil, nil)
}

// ============================================================================
// Notifications
// ============================================================================

// NotificationsClient handles the notifications REST surface consumed by the
// NotificationCenter. Each call is a plain request/response with no special
// framing.
type NotificationsClient struct{ client *Client }

func (n *NotificationsClient) List(ctx context.Context, opts *PaginationOptions) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notifications", nil, paginationQuery(opts))
}

func (n *NotificationsClient) UnreadCount(ctx context.Context) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notifications/unread-count", nil, nil)
}

func (n *NotificationsClient) MarkAsRead(ctx context.Context, notificationID string) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/notifications/"+notificationID+"/read", nil, nil)
}

func (n *NotificationsClient) MarkAllAsRead(ctx context.Context) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/notifications/read-all", nil, nil)
}

func (n *NotificationsClient) Delete(ctx context.Context, notificationID string) (*Result, error) {
	return n.client.do(ctx, "DELETE", "/api/notifications/"+notificationID, nil, nil)
}

// SendTest asks the server to deliver a test notification to the caller.
func (n *NotificationsClient) SendTest(ctx context.Context) (*Result, error) {
	return n.client.do(ctx, "POST", "/api/notifications/test", nil, nil)
}

func (n *NotificationsClient) Preferences(ctx context.Context) (*Result, error) {
	return n.client.do(ctx, "GET", "/api/notifications/preferences", nil, nil)
}

func (n *NotificationsClient) UpdatePreferences(ctx context.Context, set PreferenceSet) (*Result, error) {
	return n.client.do(ctx, "PUT", "/api/notifications/preferences", set, nil)
}

// ============================================================================
// Realtime factory
// ============================================================================

// RealtimeFactory creates real-time clients bound to this API client.
type RealtimeFactory struct{ client *Client }

// WSURL returns the WebSocket URL, with the token attached when non-empty.
func (r *RealtimeFactory) WSURL(token string) string {
	base := strings.Replace(r.client.baseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	if token != "" {
		return base + "/ws?token=" + url.QueryEscape(token)
	}
	return base + "/ws"
}

// New creates a real-time client. Call Connect to establish the connection.
func (r *RealtimeFactory) New(config *RealtimeConfig) *RealtimeClient {
	cfg := RealtimeConfig{}
	if config != nil {
		cfg = *config
	}
	cfg.defaults()
	if cfg.Token == "" {
		cfg.Token = r.client.token
	}
	return newRealtimeClient(r.client.baseURL, &cfg)
}
