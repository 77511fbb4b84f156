package studyhall

import (
	"context"
	"io"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// maxSeenEvents bounds the set of event IDs remembered for alert
// deduplication; oldest entries are evicted first.
const maxSeenEvents = 256

// notificationsFeed is the poller feed name for the poll fallback.
const notificationsFeed = "notifications"

// ============================================================================
// NotificationCenter
// ============================================================================

// NotificationCenterOptions configures a NotificationCenter.
type NotificationCenterOptions struct {
	// PageSize bounds the cached notification list. Defaults to 20.
	PageSize int
	// OnAlert fires at most once per pushed event ID (sound, toast).
	OnAlert func(Notification)
	// OnRefresh fires after a cache invalidation so a UI can re-read.
	OnRefresh func()
	Logger    *clog.Logger
}

// NotificationCenter keeps the notification list, the unread count, and the
// delivery preferences eventually consistent across three independent
// sources: pull fetches, push events, and user actions. It never merges a
// pushed payload into the caches; every update path invalidates and lets the
// next read refetch from the server, which is the source of truth.
type NotificationCenter struct {
	client    *Client
	pageSize  int
	onAlert   func(Notification)
	onRefresh func()
	logger    *clog.Logger
	poller    *Poller

	mu          sync.Mutex
	list        []Notification
	listValid   bool
	listGen     uint64
	unread      int
	unreadValid bool
	unreadGen   uint64
	prefs       PreferenceSet
	prefsValid  bool
	prefsGen    uint64
	seen        map[string]struct{}
	seenOrder   []string
}

// NewNotificationCenter creates a notification center backed by the given
// API client.
func NewNotificationCenter(client *Client, opts *NotificationCenterOptions) *NotificationCenter {
	nc := &NotificationCenter{
		client:   client,
		pageSize: 20,
		poller:   NewPoller(),
		seen:     make(map[string]struct{}),
	}
	if opts != nil {
		if opts.PageSize > 0 {
			nc.pageSize = opts.PageSize
		}
		nc.onAlert = opts.OnAlert
		nc.onRefresh = opts.OnRefresh
		nc.logger = opts.Logger
	}
	if nc.logger == nil {
		nc.logger = clog.New(io.Discard)
	}
	return nc
}

// Attach wires the center to a real-time client: every pushed notification
// event invalidates the caches and triggers the alert side effect. The
// returned handler ID can be passed to rc.Off(EventNotification, id).
func (nc *NotificationCenter) Attach(rc *RealtimeClient) HandlerID {
	return rc.OnNotification(nc.HandleEvent)
}

// HandleEvent processes one pushed notification event. Processing the same
// event ID twice invalidates at most once observably and never re-alerts.
func (nc *NotificationCenter) HandleEvent(p NotificationPayload) {
	nc.Invalidate()

	if p.ID == "" {
		return
	}
	nc.mu.Lock()
	if _, dup := nc.seen[p.ID]; dup {
		nc.mu.Unlock()
		return
	}
	nc.seen[p.ID] = struct{}{}
	nc.seenOrder = append(nc.seenOrder, p.ID)
	if len(nc.seenOrder) > maxSeenEvents {
		delete(nc.seen, nc.seenOrder[0])
		nc.seenOrder = nc.seenOrder[1:]
	}
	alert := nc.onAlert
	nc.mu.Unlock()

	if alert != nil {
		alert(Notification{
			ID:        p.ID,
			Title:     p.Title,
			Body:      p.Body,
			Link:      p.Link,
			Category:  p.Category,
			CreatedAt: p.CreatedAt,
		})
	}
}

// Invalidate marks the notification list and unread count stale, forcing
// the next read of either to refetch. Re-marking stale data stale is a
// no-op, so invalidation is idempotent.
func (nc *NotificationCenter) Invalidate() {
	nc.mu.Lock()
	nc.listValid = false
	nc.listGen++
	nc.unreadValid = false
	nc.unreadGen++
	refresh := nc.onRefresh
	nc.mu.Unlock()
	if refresh != nil {
		refresh()
	}
}

// ============================================================================
// Reads (pull side)
// ============================================================================

// Notifications returns the first page of notifications, most recent first,
// refetching when the cache is stale. A failed fetch leaves any previously
// cached page intact and visible.
func (nc *NotificationCenter) Notifications(ctx context.Context) ([]Notification, error) {
	nc.mu.Lock()
	if nc.listValid {
		out := append([]Notification(nil), nc.list...)
		nc.mu.Unlock()
		return out, nil
	}
	gen := nc.listGen
	pageSize := nc.pageSize
	nc.mu.Unlock()

	result, err := nc.client.Notifications().List(ctx, &PaginationOptions{Page: 1, Limit: pageSize})
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	var page NotificationPage
	if err := result.Decode(&page); err != nil {
		return nil, err
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()
	// Only cache if no invalidation raced the in-flight fetch.
	if nc.listGen == gen {
		nc.list = page.Items
		nc.listValid = true
	}
	return append([]Notification(nil), page.Items...), nil
}

// Unread returns the unread count, refetching when stale. The count is
// fetched independently of the list so the two never need to agree on a
// client-side derivation.
func (nc *NotificationCenter) Unread(ctx context.Context) (int, error) {
	nc.mu.Lock()
	if nc.unreadValid {
		count := nc.unread
		nc.mu.Unlock()
		return count, nil
	}
	gen := nc.unreadGen
	nc.mu.Unlock()

	result, err := nc.client.Notifications().UnreadCount(ctx)
	if err != nil {
		return 0, err
	}
	if err := result.Err(); err != nil {
		return 0, err
	}
	var data UnreadCountData
	if err := result.Decode(&data); err != nil {
		return 0, err
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.unreadGen == gen {
		nc.unread = data.Count
		nc.unreadValid = true
	}
	return data.Count, nil
}

// Preferences returns the delivery preferences, fetching once and caching
// until an update invalidates them.
func (nc *NotificationCenter) Preferences(ctx context.Context) (PreferenceSet, error) {
	nc.mu.Lock()
	if nc.prefsValid {
		out := make(PreferenceSet, len(nc.prefs))
		for k, v := range nc.prefs {
			out[k] = v
		}
		nc.mu.Unlock()
		return out, nil
	}
	gen := nc.prefsGen
	nc.mu.Unlock()

	result, err := nc.client.Notifications().Preferences(ctx)
	if err != nil {
		return nil, err
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	var prefs PreferenceSet
	if err := result.Decode(&prefs); err != nil {
		return nil, err
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.prefsGen == gen {
		nc.prefs = prefs
		nc.prefsValid = true
	}
	return prefs, nil
}

// ============================================================================
// User actions
// ============================================================================

// MarkAsRead marks one notification read. On success both caches are
// invalidated so read state and unread count are re-derived server-side; on
// failure the error surfaces and the caches are left untouched.
func (nc *NotificationCenter) MarkAsRead(ctx context.Context, id string) error {
	result, err := nc.client.Notifications().MarkAsRead(ctx, id)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	nc.Invalidate()
	return nil
}

// MarkAllAsRead marks every notification read and invalidates both caches.
func (nc *NotificationCenter) MarkAllAsRead(ctx context.Context) error {
	result, err := nc.client.Notifications().MarkAllAsRead(ctx)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	nc.Invalidate()
	return nil
}

// Delete removes one notification and invalidates both caches on success.
func (nc *NotificationCenter) Delete(ctx context.Context, id string) error {
	result, err := nc.client.Notifications().Delete(ctx, id)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	nc.Invalidate()
	return nil
}

// UpdatePreferences persists a new preference set. The preference cache is
// invalidated on success only; on failure the previous cached preferences
// remain valid and the error surfaces to the caller.
func (nc *NotificationCenter) UpdatePreferences(ctx context.Context, set PreferenceSet) error {
	result, err := nc.client.Notifications().UpdatePreferences(ctx, set)
	if err != nil {
		return err
	}
	if err := result.Err(); err != nil {
		return err
	}
	nc.mu.Lock()
	nc.prefsValid = false
	nc.prefsGen++
	nc.mu.Unlock()
	return nil
}

// SendTest asks the server to deliver a test notification.
func (nc *NotificationCenter) SendTest(ctx context.Context) error {
	result, err := nc.client.Notifications().SendTest(ctx)
	if err != nil {
		return err
	}
	return result.Err()
}

// ============================================================================
// Poll fallback
// ============================================================================

// StartPolling periodically invalidates the caches so reads refetch even if
// no push arrives. Re-entrant; one timer regardless of how often it is
// called.
func (nc *NotificationCenter) StartPolling(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	nc.poller.Start(notificationsFeed, interval, nc.Invalidate)
}

// StopPolling halts the poll fallback.
func (nc *NotificationCenter) StopPolling() {
	nc.poller.Stop(notificationsFeed)
}
