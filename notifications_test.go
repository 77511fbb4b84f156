package studyhall

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal in-memory notifications backend. Hit counters expose
// how often each endpoint was actually fetched, which is what the caching
// tests assert on.
type fakeAPI struct {
	mu         sync.Mutex
	items      []Notification
	prefs      PreferenceSet
	listHits   int
	unreadHits int
	prefsHits  int
	failReads  bool
	failWrites bool
	srv        *httptest.Server
}

func newFakeAPI() *fakeAPI {
	api := &fakeAPI{
		items: []Notification{
			{ID: "n3", Title: "New reply in Biology", CreatedAt: "2026-08-28T10:02:00Z"},
			{ID: "n2", Title: "Task due tomorrow", CreatedAt: "2026-08-28T09:00:00Z"},
			{ID: "n1", Title: "Welcome to StudyHall", Read: true, CreatedAt: "2026-08-27T08:00:00Z"},
		},
		prefs: PreferenceSet{
			"chat_message": {InApp: true, Email: false},
			"task_due":     {InApp: true, Email: true},
		},
	}
	api.srv = httptest.NewServer(http.HandlerFunc(api.handle))
	return api
}

func (a *fakeAPI) ok(w http.ResponseWriter, data interface{}) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(Result{OK: true, Data: raw})
}

func (a *fakeAPI) fail(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(Result{OK: false, Error: &APIError{Code: "INTERNAL", Message: "try again later"}})
}

func (a *fakeAPI) unreadCount() int {
	n := 0
	for _, it := range a.items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case r.Method == "GET" && r.URL.Path == "/api/notifications":
		a.listHits++
		if a.failReads {
			a.fail(w)
			return
		}
		a.ok(w, NotificationPage{Items: a.items, Total: len(a.items), Page: 1, PageSize: 20})
	case r.Method == "GET" && r.URL.Path == "/api/notifications/unread-count":
		a.unreadHits++
		if a.failReads {
			a.fail(w)
			return
		}
		a.ok(w, UnreadCountData{Count: a.unreadCount()})
	case r.Method == "GET" && r.URL.Path == "/api/notifications/preferences":
		a.prefsHits++
		if a.failReads {
			a.fail(w)
			return
		}
		a.ok(w, a.prefs)
	case r.Method == "PUT" && r.URL.Path == "/api/notifications/preferences":
		if a.failWrites {
			a.fail(w)
			return
		}
		var set PreferenceSet
		json.NewDecoder(r.Body).Decode(&set)
		a.prefs = set
		a.ok(w, a.prefs)
	case r.Method == "POST" && r.URL.Path == "/api/notifications/read-all":
		if a.failWrites {
			a.fail(w)
			return
		}
		for i := range a.items {
			a.items[i].Read = true
		}
		a.ok(w, nil)
	case r.Method == "POST" && r.URL.Path == "/api/notifications/test":
		a.ok(w, nil)
	case r.Method == "POST":
		// /api/notifications/{id}/read
		if a.failWrites {
			a.fail(w)
			return
		}
		id := r.URL.Path[len("/api/notifications/") : len(r.URL.Path)-len("/read")]
		for i := range a.items {
			if a.items[i].ID == id {
				a.items[i].Read = true
			}
		}
		a.ok(w, nil)
	case r.Method == "DELETE":
		if a.failWrites {
			a.fail(w)
			return
		}
		id := r.URL.Path[len("/api/notifications/"):]
		kept := a.items[:0]
		for _, it := range a.items {
			if it.ID != id {
				kept = append(kept, it)
			}
		}
		a.items = kept
		a.ok(w, nil)
	default:
		http.NotFound(w, r)
	}
}

func newTestCenter(t *testing.T, opts *NotificationCenterOptions) (*fakeAPI, *NotificationCenter) {
	t.Helper()
	api := newFakeAPI()
	t.Cleanup(api.srv.Close)
	client := NewClient("test-token", WithBaseURL(api.srv.URL))
	return api, NewNotificationCenter(client, opts)
}

func TestCenterCachesUntilInvalidated(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := nc.Notifications(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 3)

		count, err := nc.Unread(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	}
	assert.Equal(t, 1, api.listHits, "repeat reads served from cache")
	assert.Equal(t, 1, api.unreadHits)

	nc.Invalidate()
	nc.Invalidate() // idempotent

	_, err := nc.Notifications(ctx)
	require.NoError(t, err)
	_, err = nc.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.listHits, "one refetch per cache after invalidation")
	assert.Equal(t, 2, api.unreadHits)
}

func TestCenterPushAlertsOncePerEvent(t *testing.T) {
	var alerts []Notification
	var refreshes int
	api, nc := newTestCenter(t, &NotificationCenterOptions{
		OnAlert:   func(n Notification) { alerts = append(alerts, n) },
		OnRefresh: func() { refreshes++ },
	})
	ctx := context.Background()

	_, err := nc.Unread(ctx)
	require.NoError(t, err)

	ev := NotificationPayload{ID: "n9", Title: "Study session at 5pm"}
	nc.HandleEvent(ev)
	nc.HandleEvent(ev) // duplicate delivery from the wire
	nc.HandleEvent(ev)

	require.Len(t, alerts, 1, "duplicate event IDs never re-alert")
	assert.Equal(t, "Study session at 5pm", alerts[0].Title)
	assert.Equal(t, 3, refreshes, "each delivery still invalidates")

	// The pushed payload is never merged into the cache; the next read
	// refetches from the server.
	_, err = nc.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.unreadHits)
}

func TestCenterUserActionRefetchesServerState(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	count, err := nc.Unread(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, nc.MarkAllAsRead(ctx))

	count, err = nc.Unread(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "count re-derived server-side, not decremented locally")

	require.NoError(t, nc.Delete(ctx, "n1"))
	items, err := nc.Notifications(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	_ = api
}

func TestCenterPushRacingMarkAllAsRead(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	require.NoError(t, nc.MarkAllAsRead(ctx))

	// A push lands before the next read: the server state (one new unread
	// item) wins, with no client-side count arithmetic involved.
	api.mu.Lock()
	api.items = append([]Notification{{ID: "n4", Title: "Quiz posted"}}, api.items...)
	api.mu.Unlock()
	nc.HandleEvent(NotificationPayload{ID: "n4", Title: "Quiz posted"})

	count, err := nc.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCenterFailedFetchKeepsStaleCacheHidden(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	items, err := nc.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	nc.Invalidate()
	api.mu.Lock()
	api.failReads = true
	api.mu.Unlock()

	_, err = nc.Notifications(ctx)
	require.Error(t, err)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)

	// Once the server recovers, reads work again without a restart.
	api.mu.Lock()
	api.failReads = false
	api.mu.Unlock()
	items, err = nc.Notifications(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestCenterFailedWriteLeavesCacheValid(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	count, err := nc.Unread(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	api.mu.Lock()
	api.failWrites = true
	api.mu.Unlock()

	require.Error(t, nc.MarkAsRead(ctx, "n2"))

	count, err = nc.Unread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "failed action does not disturb the cache")
	assert.Equal(t, 1, api.unreadHits, "and does not force a refetch")
}

func TestCenterPreferences(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	prefs, err := nc.Preferences(ctx)
	require.NoError(t, err)
	require.True(t, prefs["task_due"].Email)
	_, err = nc.Preferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, api.prefsHits)

	next := PreferenceSet{"task_due": {InApp: true, Email: false}}
	require.NoError(t, nc.UpdatePreferences(ctx, next))

	prefs, err = nc.Preferences(ctx)
	require.NoError(t, err)
	assert.False(t, prefs["task_due"].Email)
	assert.Equal(t, 2, api.prefsHits)

	// A rejected update keeps the last good preferences cached.
	api.mu.Lock()
	api.failWrites = true
	api.mu.Unlock()
	require.Error(t, nc.UpdatePreferences(ctx, PreferenceSet{}))
	prefs, err = nc.Preferences(ctx)
	require.NoError(t, err)
	assert.False(t, prefs["task_due"].Email)
	assert.Equal(t, 2, api.prefsHits)
}

func TestCenterPollingInvalidates(t *testing.T) {
	api, nc := newTestCenter(t, nil)
	ctx := context.Background()

	_, err := nc.Unread(ctx)
	require.NoError(t, err)

	nc.StartPolling(5 * time.Millisecond)
	nc.StartPolling(5 * time.Millisecond) // re-entrant: still one timer
	defer nc.StopPolling()

	require.Eventually(t, func() bool {
		count, err := nc.Unread(ctx)
		if err != nil {
			return false
		}
		api.mu.Lock()
		hits := api.unreadHits
		api.mu.Unlock()
		return count == 2 && hits > 1
	}, 2*time.Second, time.Millisecond, "polling forces periodic refetch")
}
