package studyhall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// ============================================================================
// Wire Events
// ============================================================================

// Lifecycle events, consumed by the connection state machine and observable
// by handlers registered via On.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
	EventError        = "error"
)

// Server-to-client events.
const (
	EventNewMessage        = "new_message"
	EventNotification      = "notification"
	EventUserJoined        = "user_joined"
	EventUserLeft          = "user_left"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
)

// Client-to-server events.
const (
	EventJoinGroup      = "join_group"
	EventLeaveGroup     = "leave_group"
	EventJoinDashboard  = "join_dashboard"
	EventLeaveDashboard = "leave_dashboard"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
)

// ============================================================================
// Event Payload Types
// ============================================================================

// ConnectedPayload is sent by the server when the handshake is accepted.
type ConnectedPayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// NewMessagePayload is sent when a chat message arrives in a joined room.
type NewMessagePayload struct {
	ID         string `json:"id"`
	GroupID    string `json:"groupId"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Content    string `json:"content"`
	Type       string `json:"type,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// NotificationPayload is a push-delivered notification event.
type NotificationPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Link      string `json:"link,omitempty"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// PresencePayload describes a room presence change or typing signal.
type PresencePayload struct {
	GroupID  string `json:"groupId"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// ErrorPayload is sent when a server-side error occurs on the connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Envelope is the wire format for all real-time events.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Command is a client-to-server command.
type Command struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// ============================================================================
// Errors
// ============================================================================

// HandshakeError indicates the server rejected the connection handshake,
// typically because the bearer token is invalid or expired. The connection
// settles in StateFailed and is not retried until an explicit Connect.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed: %s: %v", e.Reason, e.Err)
	}
	return "handshake failed: " + e.Reason
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// TransportError indicates the established connection was dropped. It is
// handled internally by the reconnection scheduler and is observable only
// through LastError.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "transport error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// ErrBackoffExhausted is recorded as the last error once the reconnection
// attempt cap is reached. Only an explicit Connect call recovers from it.
var ErrBackoffExhausted = errors.New("reconnect attempts exhausted")

// ============================================================================
// Configuration
// ============================================================================

// RealtimeConfig configures a real-time client.
type RealtimeConfig struct {
	Token                string
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	ConnectTimeout       time.Duration
	DebounceWindow       time.Duration
	Logger               *clog.Logger
}

func (c *RealtimeConfig) defaults() {
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = 5
	}
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 1 * time.Second
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.DebounceWindow == 0 {
		c.DebounceWindow = 300 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = clog.New(io.Discard)
	}
}

// ConnectionState represents the state of the logical connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed"
)

// ============================================================================
// Transport
// ============================================================================

// transport is the framed bidirectional channel under a logical connection.
type transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(reason string) error
}

type dialFunc func(ctx context.Context, wsURL string) (transport, error)

type wsTransport struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, wsURL string) (transport, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Read(ctx context.Context) ([]byte, error) {
	_, data, err := t.conn.Read(ctx)
	return data, err
}

func (t *wsTransport) Write(ctx context.Context, data []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, data)
}

func (t *wsTransport) Close(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}

// ============================================================================
// Event Dispatcher
// ============================================================================

// Handler is the generic event callback type.
type Handler func(event string, payload json.RawMessage)

// HandlerID identifies a registered handler for later removal.
type HandlerID string

type handlerEntry struct {
	id HandlerID
	fn Handler
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry
}

func newEventDispatcher() *eventDispatcher {
	return &eventDispatcher{handlers: make(map[string][]handlerEntry)}
}

func (d *eventDispatcher) on(event string, fn Handler) HandlerID {
	id := HandlerID(uuid.NewString())
	d.mu.Lock()
	d.handlers[event] = append(d.handlers[event], handlerEntry{id: id, fn: fn})
	d.mu.Unlock()
	return id
}

func (d *eventDispatcher) off(event string, ids ...HandlerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(ids) == 0 {
		delete(d.handlers, event)
		return
	}
	remove := make(map[HandlerID]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	kept := d.handlers[event][:0]
	for _, e := range d.handlers[event] {
		if !remove[e.id] {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(d.handlers, event)
	} else {
		d.handlers[event] = kept
	}
}

// dispatch delivers the event to every registered handler in registration
// order. A panicking handler does not prevent delivery to the rest.
func (d *eventDispatcher) dispatch(env Envelope) {
	d.mu.RLock()
	entries := append([]handlerEntry(nil), d.handlers[env.Type]...)
	d.mu.RUnlock()
	for _, e := range entries {
		func() {
			defer func() { _ = recover() }()
			e.fn(env.Type, env.Payload)
		}()
	}
}

// ============================================================================
// Subscription Registry
// ============================================================================

// SubscriptionKind distinguishes the logical room types a client can observe.
type SubscriptionKind string

const (
	GroupRoom     SubscriptionKind = "group"
	DashboardFeed SubscriptionKind = "dashboard"
)

// Subscription identifies a logical room: a group chat or the dashboard feed.
type Subscription struct {
	Kind SubscriptionKind
	Key  string
}

// subscriptionRegistry is the single source of truth for which rooms should
// be joined. Its content is independent of connection state; it is replayed
// in full after every successful connect.
type subscriptionRegistry struct {
	mu   sync.Mutex
	subs map[Subscription]struct{}
}

func newSubscriptionRegistry() *subscriptionRegistry {
	return &subscriptionRegistry{subs: make(map[Subscription]struct{})}
}

// add records the subscription and reports whether it was newly added.
func (r *subscriptionRegistry) add(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s]; ok {
		return false
	}
	r.subs[s] = struct{}{}
	return true
}

// remove deletes the subscription and reports whether it was present.
func (r *subscriptionRegistry) remove(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s]; !ok {
		return false
	}
	delete(r.subs, s)
	return true
}

func (r *subscriptionRegistry) snapshot() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, 0, len(r.subs))
	for s := range r.subs {
		out = append(out, s)
	}
	return out
}

func joinCommand(s Subscription) *Command {
	switch s.Kind {
	case DashboardFeed:
		return &Command{Type: EventJoinDashboard}
	default:
		return &Command{Type: EventJoinGroup, Payload: map[string]string{"groupId": s.Key}}
	}
}

func leaveCommand(s Subscription) *Command {
	switch s.Kind {
	case DashboardFeed:
		return &Command{Type: EventLeaveDashboard}
	default:
		return &Command{Type: EventLeaveGroup, Payload: map[string]string{"groupId": s.Key}}
	}
}

// ============================================================================
// Reconnection Scheduler
// ============================================================================

// reconnector decides whether and when to retry a dropped connection.
// It holds the attempt counter and the single outstanding timer; Cancel
// stops the timer without touching the counter, Reset clears both.
type reconnector struct {
	mu          sync.Mutex
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
	attempt     int
	timer       *time.Timer
}

func newReconnector(config *RealtimeConfig) *reconnector {
	return &reconnector{
		baseDelay:   config.ReconnectBaseDelay,
		maxDelay:    config.ReconnectMaxDelay,
		maxAttempts: config.MaxReconnectAttempts,
	}
}

// schedule arms a timer for the next attempt and returns its delay, or
// ErrBackoffExhausted once the attempt cap is reached. Only one timer is
// outstanding at a time.
func (r *reconnector) schedule(fn func()) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.maxAttempts > 0 && r.attempt >= r.maxAttempts {
		return 0, fmt.Errorf("%w after %d attempts", ErrBackoffExhausted, r.attempt)
	}
	delay := r.delayLocked()
	r.attempt++
	r.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		r.timer = nil
		r.mu.Unlock()
		fn()
	})
	return delay, nil
}

// delayLocked computes the backoff for the current attempt: exponential from
// the base delay, plus jitter strictly below the base delay so the sequence
// stays non-decreasing, capped at the maximum.
func (r *reconnector) delayLocked() time.Duration {
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	return time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
}

func (r *reconnector) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *reconnector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.attempt = 0
}

func (r *reconnector) attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

func (r *reconnector) pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timer != nil
}

// ============================================================================
// RealtimeClient
// ============================================================================

// RealtimeClient maintains the single logical connection to the StudyHall
// server: it owns the connection state machine, replays the subscription
// registry after every successful connect, and routes inbound events to
// registered handlers. At most one transport is active at a time; all other
// components act through Subscribe/Unsubscribe/On/Off/Emit.
type RealtimeClient struct {
	baseURL string
	config  *RealtimeConfig
	logger  *clog.Logger

	mu               sync.Mutex
	state            ConnectionState
	lastErr          error
	lastConnectedAt  time.Time
	lastAttemptAt    time.Time
	intentionalClose bool
	conn             transport
	cancelFn         context.CancelFunc

	dial dialFunc

	registry   *subscriptionRegistry
	dispatcher *eventDispatcher
	recon      *reconnector
	poller     *Poller
}

func newRealtimeClient(baseURL string, config *RealtimeConfig) *RealtimeClient {
	return &RealtimeClient{
		baseURL:    baseURL,
		config:     config,
		logger:     config.Logger,
		state:      StateDisconnected,
		dial:       dialWebSocket,
		registry:   newSubscriptionRegistry(),
		dispatcher: newEventDispatcher(),
		recon:      newReconnector(config),
		poller:     NewPoller(),
	}
}

// State returns the current connection state.
func (rc *RealtimeClient) State() ConnectionState {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.state
}

// LastError returns the most recent connection-level error, if any.
func (rc *RealtimeClient) LastError() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.lastErr
}

// LastConnectedAt returns the time of the last successful connect.
func (rc *RealtimeClient) LastConnectedAt() time.Time {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.lastConnectedAt
}

// ReconnectAttempts returns the current reconnection attempt count.
func (rc *RealtimeClient) ReconnectAttempts() int {
	return rc.recon.attempts()
}

// Poller returns the polling fallback timer tied to this client's lifetime.
// Disconnect stops every feed it is running.
func (rc *RealtimeClient) Poller() *Poller {
	return rc.poller
}

// SetToken replaces the bearer token used for the next handshake, e.g.
// after re-authenticating out of StateFailed.
func (rc *RealtimeClient) SetToken(token string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.config.Token = token
}

func (rc *RealtimeClient) wsURL() string {
	base := strings.Replace(rc.baseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	rc.mu.Lock()
	token := rc.config.Token
	rc.mu.Unlock()
	if token != "" {
		return base + "/ws?token=" + url.QueryEscape(token)
	}
	return base + "/ws"
}

// Connect initiates the connection handshake. It is a no-op while already
// Connecting or Connected, and repeat calls within the debounce window are
// ignored. Connect returns once the handshake completes or fails; a later
// drop is signalled through State, not through this call.
func (rc *RealtimeClient) Connect(ctx context.Context) error {
	rc.mu.Lock()
	if rc.state == StateConnected || rc.state == StateConnecting {
		rc.mu.Unlock()
		return nil
	}
	if !rc.lastAttemptAt.IsZero() && time.Since(rc.lastAttemptAt) < rc.config.DebounceWindow {
		rc.mu.Unlock()
		return nil
	}
	rc.lastAttemptAt = time.Now()
	rc.intentionalClose = false
	rc.mu.Unlock()

	// An explicit connect resets the scheduler, recovering from StateFailed.
	rc.recon.reset()

	if err := rc.open(ctx); err != nil {
		rc.mu.Lock()
		rc.state = StateFailed
		rc.lastErr = err
		rc.mu.Unlock()
		return err
	}
	return nil
}

// Disconnect tears the connection down intentionally: it cancels any pending
// reconnect timer, stops lifetime-scoped pollers, closes the transport, and
// resets the attempt counter. No auto-reconnect follows.
func (rc *RealtimeClient) Disconnect() error {
	rc.mu.Lock()
	rc.intentionalClose = true
	rc.state = StateDisconnected
	rc.lastErr = nil
	conn := rc.conn
	rc.conn = nil
	cancel := rc.cancelFn
	rc.cancelFn = nil
	rc.mu.Unlock()

	rc.recon.reset()
	rc.poller.StopAll()
	if cancel != nil {
		cancel()
	}

	if conn != nil {
		err := conn.Close("client disconnect")
		rc.dispatcher.dispatch(Envelope{Type: EventDisconnect})
		return err
	}
	return nil
}

// open dials the transport and performs the handshake. On failure it leaves
// the client Disconnected with the error recorded; callers decide whether to
// settle in StateFailed (explicit connect) or keep scheduling (reconnect).
func (rc *RealtimeClient) open(ctx context.Context) error {
	rc.mu.Lock()
	if rc.state == StateConnected || rc.state == StateConnecting || rc.intentionalClose {
		rc.mu.Unlock()
		return nil
	}
	rc.state = StateConnecting
	rc.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, rc.config.ConnectTimeout)
	defer cancel()

	conn, err := rc.dial(dialCtx, rc.wsURL())
	if err != nil {
		herr := &HandshakeError{Reason: "dial", Err: err}
		rc.mu.Lock()
		rc.state = StateDisconnected
		rc.lastErr = herr
		rc.mu.Unlock()
		return herr
	}

	env, err := rc.readHandshake(dialCtx, conn)
	if err != nil {
		conn.Close("handshake failed")
		rc.mu.Lock()
		rc.state = StateDisconnected
		rc.lastErr = err
		rc.mu.Unlock()
		return err
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	rc.mu.Lock()
	// A Disconnect that raced the handshake wins: drop the fresh transport.
	if rc.intentionalClose {
		rc.mu.Unlock()
		connCancel()
		conn.Close("superseded by disconnect")
		return nil
	}
	rc.conn = conn
	rc.state = StateConnected
	rc.lastErr = nil
	rc.lastConnectedAt = time.Now()
	rc.cancelFn = connCancel
	rc.mu.Unlock()

	// A successful connect resets the backoff and cancels the pending timer.
	rc.recon.reset()

	rc.replaySubscriptions(connCtx, conn)
	rc.dispatcher.dispatch(env)
	rc.logger.Info("connected", "url", rc.baseURL)

	go rc.readLoop(connCtx, conn)
	return nil
}

// readHandshake reads the first frame, which must be the server's connect
// acknowledgement. A connect_error frame (bad or expired token) or anything
// else is a handshake failure.
func (rc *RealtimeClient) readHandshake(ctx context.Context, conn transport) (Envelope, error) {
	data, err := conn.Read(ctx)
	if err != nil {
		return Envelope{}, &HandshakeError{Reason: "reading server ack", Err: err}
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, &HandshakeError{Reason: "malformed server ack", Err: err}
	}
	switch env.Type {
	case EventConnect:
		return env, nil
	case EventConnectError:
		var p ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		if p.Message == "" {
			p.Message = "connection rejected"
		}
		return Envelope{}, &HandshakeError{Reason: p.Message}
	default:
		return Envelope{}, &HandshakeError{Reason: fmt.Sprintf("expected %q, got %q", EventConnect, env.Type)}
	}
}

// replaySubscriptions emits one join signal per registry entry. The registry
// is always replayed in full rather than diffed.
func (rc *RealtimeClient) replaySubscriptions(ctx context.Context, conn transport) {
	for _, s := range rc.registry.snapshot() {
		if err := rc.writeCommand(ctx, conn, joinCommand(s)); err != nil {
			rc.logger.Warn("subscription replay failed", "kind", s.Kind, "key", s.Key, "err", err)
			return
		}
	}
}

func (rc *RealtimeClient) readLoop(ctx context.Context, conn transport) {
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			rc.handleDrop(err)
			return
		}
		var env Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}
		rc.dispatcher.dispatch(env)
	}
}

// handleDrop reacts to an unintentional transport loss: record it, notify
// handlers, and hand control to the reconnection scheduler.
func (rc *RealtimeClient) handleDrop(cause error) {
	rc.mu.Lock()
	if rc.intentionalClose {
		rc.mu.Unlock()
		return
	}
	rc.conn = nil
	rc.state = StateDisconnected
	rc.lastErr = &TransportError{Err: cause}
	cancel := rc.cancelFn
	rc.cancelFn = nil
	rc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	rc.dispatcher.dispatch(Envelope{Type: EventDisconnect})
	rc.logger.Warn("connection dropped", "err", cause)
	rc.scheduleReconnect()
}

func (rc *RealtimeClient) scheduleReconnect() {
	rc.mu.Lock()
	if rc.intentionalClose {
		rc.mu.Unlock()
		return
	}
	rc.state = StateReconnecting
	rc.mu.Unlock()

	delay, err := rc.recon.schedule(rc.reconnectAttempt)
	if err != nil {
		rc.mu.Lock()
		rc.state = StateFailed
		rc.lastErr = err
		rc.mu.Unlock()
		rc.logger.Error("giving up on reconnection", "err", err)
		return
	}
	rc.logger.Debug("reconnect scheduled", "attempt", rc.recon.attempts(), "delay", delay)
}

func (rc *RealtimeClient) reconnectAttempt() {
	rc.mu.Lock()
	if rc.intentionalClose {
		rc.mu.Unlock()
		return
	}
	rc.mu.Unlock()
	if err := rc.open(context.Background()); err != nil {
		rc.scheduleReconnect()
	}
}

// ============================================================================
// Subscriptions
// ============================================================================

// Subscribe records interest in a room. While Connected the join signal is
// emitted immediately; otherwise it is applied on the next successful
// connect, when the registry is replayed in full. Idempotent.
func (rc *RealtimeClient) Subscribe(ctx context.Context, kind SubscriptionKind, key string) error {
	s := Subscription{Kind: kind, Key: key}
	if !rc.registry.add(s) {
		return nil
	}
	rc.mu.Lock()
	conn := rc.conn
	connected := rc.state == StateConnected
	rc.mu.Unlock()
	if !connected || conn == nil {
		return nil
	}
	return rc.writeCommand(ctx, conn, joinCommand(s))
}

// Unsubscribe withdraws interest in a room. Idempotent; the leave signal is
// only emitted while Connected.
func (rc *RealtimeClient) Unsubscribe(ctx context.Context, kind SubscriptionKind, key string) error {
	s := Subscription{Kind: kind, Key: key}
	if !rc.registry.remove(s) {
		return nil
	}
	rc.mu.Lock()
	conn := rc.conn
	connected := rc.state == StateConnected
	rc.mu.Unlock()
	if !connected || conn == nil {
		return nil
	}
	return rc.writeCommand(ctx, conn, leaveCommand(s))
}

// Subscriptions returns the current registry content.
func (rc *RealtimeClient) Subscriptions() []Subscription {
	return rc.registry.snapshot()
}

// ============================================================================
// Emission
// ============================================================================

// Emit sends a fire-and-forget event to the server. Emissions attempted
// while not Connected are silently dropped; callers must not assume
// delivery.
func (rc *RealtimeClient) Emit(ctx context.Context, event string, payload interface{}) error {
	rc.mu.Lock()
	conn := rc.conn
	connected := rc.state == StateConnected
	rc.mu.Unlock()
	if !connected || conn == nil {
		return nil
	}
	return rc.writeCommand(ctx, conn, &Command{Type: event, Payload: payload})
}

// StartTyping sends an ephemeral typing indicator for a group room.
func (rc *RealtimeClient) StartTyping(ctx context.Context, groupID string) error {
	return rc.Emit(ctx, EventTypingStart, map[string]string{"groupId": groupID})
}

// StopTyping clears the typing indicator for a group room.
func (rc *RealtimeClient) StopTyping(ctx context.Context, groupID string) error {
	return rc.Emit(ctx, EventTypingStop, map[string]string{"groupId": groupID})
}

func (rc *RealtimeClient) writeCommand(ctx context.Context, conn transport, cmd *Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return conn.Write(ctx, data)
}

// ============================================================================
// Handler registration
// ============================================================================

// On registers a generic handler for an event name and returns its ID.
func (rc *RealtimeClient) On(event string, h Handler) HandlerID {
	return rc.dispatcher.on(event, h)
}

// Off removes handlers for an event. With no IDs, all handlers for the
// event are removed.
func (rc *RealtimeClient) Off(event string, ids ...HandlerID) {
	rc.dispatcher.off(event, ids...)
}

// OnConnected registers a handler for the server's connect acknowledgement.
func (rc *RealtimeClient) OnConnected(h func(ConnectedPayload)) HandlerID {
	return rc.On(EventConnect, func(_ string, payload json.RawMessage) {
		var p ConnectedPayload
		if json.Unmarshal(payload, &p) == nil {
			h(p)
		}
	})
}

// OnDisconnected registers a handler for connection loss.
func (rc *RealtimeClient) OnDisconnected(h func()) HandlerID {
	return rc.On(EventDisconnect, func(string, json.RawMessage) { h() })
}

// OnNewMessage registers a handler for chat messages in joined rooms.
func (rc *RealtimeClient) OnNewMessage(h func(NewMessagePayload)) HandlerID {
	return rc.On(EventNewMessage, func(_ string, payload json.RawMessage) {
		var p NewMessagePayload
		if json.Unmarshal(payload, &p) == nil {
			h(p)
		}
	})
}

// OnNotification registers a handler for push-delivered notifications.
func (rc *RealtimeClient) OnNotification(h func(NotificationPayload)) HandlerID {
	return rc.On(EventNotification, func(_ string, payload json.RawMessage) {
		var p NotificationPayload
		if json.Unmarshal(payload, &p) == nil {
			h(p)
		}
	})
}

// OnUserJoined registers a handler for room join presence updates.
func (rc *RealtimeClient) OnUserJoined(h func(PresencePayload)) HandlerID {
	return rc.onPresence(EventUserJoined, h)
}

// OnUserLeft registers a handler for room leave presence updates.
func (rc *RealtimeClient) OnUserLeft(h func(PresencePayload)) HandlerID {
	return rc.onPresence(EventUserLeft, h)
}

// OnUserTyping registers a handler for typing indicators.
func (rc *RealtimeClient) OnUserTyping(h func(PresencePayload)) HandlerID {
	return rc.onPresence(EventUserTyping, h)
}

// OnUserStoppedTyping registers a handler for cleared typing indicators.
func (rc *RealtimeClient) OnUserStoppedTyping(h func(PresencePayload)) HandlerID {
	return rc.onPresence(EventUserStoppedTyping, h)
}

func (rc *RealtimeClient) onPresence(event string, h func(PresencePayload)) HandlerID {
	return rc.On(event, func(_ string, payload json.RawMessage) {
		var p PresencePayload
		if json.Unmarshal(payload, &p) == nil {
			h(p)
		}
	})
}

// OnServerError registers a handler for server-side connection errors.
func (rc *RealtimeClient) OnServerError(h func(ErrorPayload)) HandlerID {
	return rc.On(EventError, func(_ string, payload json.RawMessage) {
		var p ErrorPayload
		if json.Unmarshal(payload, &p) == nil {
			h(p)
		}
	})
}
