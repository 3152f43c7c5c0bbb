// Package conn implements the exchange-agnostic WebSocket connection
// lifecycle shared by every venue adapter: connect-with-backoff, the
// inactivity/heartbeat timer, ping/pong matching and subscription memory.
package conn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BullionBear/sequex/internal/feed/core"
	"github.com/BullionBear/sequex/internal/feederr"
	"github.com/BullionBear/sequex/pkg/eventbus"
	"github.com/BullionBear/sequex/pkg/log"
	"github.com/BullionBear/sequex/pkg/metrics"
)

// Subscription identifies one (instrument, topic) pair.
type Subscription struct {
	InstrumentID core.InstrumentID
	Topic        core.TopicID
}

// StateChange is published whenever the socket transitions connected/not.
type StateChange struct {
	Connected bool
	Reason    string
}

// Hooks is the set of venue-specific behaviors the Connection Manager
// delegates to. It is the C4 Adapter Framework's contract with C3.
type Hooks interface {
	BaseURL(ctx context.Context) (string, error)
	ConfigureSocket(header http.Header)
	Authenticate(ctx context.Context, conn *websocket.Conn) error
	DoSubscribe(ctx context.Context, conn *websocket.Conn, subs []Subscription) error
	DoUnsubscribe(ctx context.Context, conn *websocket.Conn, subs []Subscription) error
	ProcessMessage(raw []byte) error
	PingMessage() []byte // nil: pings are protocol-level or suppressed
	IsPongMessage(raw []byte) bool
	InactivityTimeout() time.Duration
	PingTimeout() time.Duration
}

// PrivateStreamHooks is implemented by adapters that expose private,
// authenticated topics. After Authenticate succeeds, the Manager calls
// SubscribeToPrivateTopics once before resubmitting the canonical set.
type PrivateStreamHooks interface {
	SubscribeToPrivateTopics(ctx context.Context, conn *websocket.Conn) error
}

// DefaultRetryDelays is the reconnect schedule before falling back to a
// fixed 15s cadence indefinitely.
var DefaultRetryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	15 * time.Second,
}

// Manager owns one socket and its lifecycle for one adapter.
type Manager struct {
	name        string
	hooks       Hooks
	retryDelays []time.Duration
	logger      log.Logger

	mu           sync.Mutex
	conn         *websocket.Conn
	connected    bool
	subs         map[Subscription]struct{}
	pongWaiter   chan struct{}
	rootCtx      context.Context
	rootCancel   context.CancelFunc

	OnStateChanged  *eventbus.EventSource[StateChange]
	OnError         *eventbus.EventSource[error]
	OnMessageRecv   *eventbus.EventSource[[]byte]
}

// NewManager creates a Manager for one adapter. name is used only for logs.
func NewManager(name string, hooks Hooks, logger log.Logger, retryDelays []time.Duration) *Manager {
	if len(retryDelays) == 0 {
		retryDelays = DefaultRetryDelays
	}
	return &Manager{
		name:           name,
		hooks:          hooks,
		retryDelays:    retryDelays,
		logger:         logger,
		subs:           make(map[Subscription]struct{}),
		OnStateChanged: eventbus.NewEventSource[StateChange](),
		OnError:        eventbus.NewEventSource[error](),
		OnMessageRecv:  eventbus.NewEventSource[[]byte](),
	}
}

// Connect starts the connection loop in the background. It returns once
// the first attempt has been dispatched; connection state is observed via
// OnStateChanged.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	m.rootCtx, m.rootCancel = context.WithCancel(ctx)
	rootCtx := m.rootCtx
	m.mu.Unlock()

	go m.connectLoop(rootCtx)
}

// Disconnect cancels the root context, closes the socket with a normal
// closure and sleeps 5ms so the loops can observe cancellation. It does
// not wait for the receive/heartbeat tasks to exit.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.rootCancel
	c := m.conn
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = c.Close()
	}
	time.Sleep(5 * time.Millisecond) // let the select loops observe ctx.Done
}

// IsConnected reports whether a socket is currently established.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Subscribe records the (instrument, topic) pairs as wanted and, if
// connected, sends only the wire message for pairs not already canonical.
// Idempotent. On reconnect the full canonical set is resubmitted.
func (m *Manager) Subscribe(ctx context.Context, subs []Subscription) error {
	m.mu.Lock()
	fresh := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if _, ok := m.subs[s]; !ok {
			m.subs[s] = struct{}{}
			fresh = append(fresh, s)
		}
	}
	c := m.conn
	m.mu.Unlock()

	if len(fresh) == 0 || c == nil {
		return nil
	}
	if err := m.hooks.DoSubscribe(ctx, c, fresh); err != nil {
		return feederr.New(feederr.TransientNetwork, m.name+".subscribe", err)
	}
	return nil
}

// Unsubscribe removes the pairs from the canonical set and, if connected,
// sends the wire message for removal.
func (m *Manager) Unsubscribe(ctx context.Context, subs []Subscription) error {
	m.mu.Lock()
	removed := make([]Subscription, 0, len(subs))
	for _, s := range subs {
		if _, ok := m.subs[s]; ok {
			delete(m.subs, s)
			removed = append(removed, s)
		}
	}
	c := m.conn
	m.mu.Unlock()

	if len(removed) == 0 || c == nil {
		return nil
	}
	if err := m.hooks.DoUnsubscribe(ctx, c, removed); err != nil {
		return feederr.New(feederr.TransientNetwork, m.name+".unsubscribe", err)
	}
	return nil
}

// Send writes a raw text frame, e.g. a manual heartbeat.
func (m *Manager) Send(text []byte) error {
	m.mu.Lock()
	c := m.conn
	m.mu.Unlock()
	if c == nil {
		return feederr.Newf(feederr.TransientNetwork, m.name+".send", "not connected")
	}
	if err := c.WriteMessage(websocket.TextMessage, text); err != nil {
		return feederr.New(feederr.TransientNetwork, m.name+".send", err)
	}
	return nil
}

// canonicalSubs snapshots the current subscription set for resubmission.
func (m *Manager) canonicalSubs() []Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Subscription, 0, len(m.subs))
	for s := range m.subs {
		out = append(out, s)
	}
	return out
}

func (m *Manager) connectLoop(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		err := m.connectOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger.Error(fmt.Sprintf("%s connect failed: %v", m.name, err))
		}
		metrics.ReconnectsTotal.WithLabelValues(m.name).Inc()
		delay := m.retryDelays[len(m.retryDelays)-1]
		if attempt < len(m.retryDelays) {
			delay = m.retryDelays[attempt]
			attempt++
		}
		m.publishState(false, "Connection Lost")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// connectOnce dials, runs the handshake, resubmits subscriptions, and
// blocks until the receive loop exits (error, stale connection, or
// cancellation). It is the "commit point" for one socket's whole life.
func (m *Manager) connectOnce(ctx context.Context) error {
	baseURL, err := m.hooks.BaseURL(ctx)
	if err != nil {
		return feederr.New(feederr.Configuration, m.name+".baseUrl", err)
	}

	header := http.Header{}
	m.hooks.ConfigureSocket(header)

	c, _, err := websocket.DefaultDialer.DialContext(ctx, baseURL, header)
	if err != nil {
		return feederr.New(feederr.TransientNetwork, m.name+".dial", err)
	}

	m.mu.Lock()
	m.conn = c
	m.connected = true
	m.mu.Unlock()
	m.publishState(true, "")

	if err := m.hooks.Authenticate(ctx, c); err != nil {
		m.teardown(c)
		return feederr.New(feederr.AuthFailure, m.name+".authenticate", err)
	}

	if priv, ok := m.hooks.(PrivateStreamHooks); ok {
		if err := priv.SubscribeToPrivateTopics(ctx, c); err != nil {
			m.teardown(c)
			return feederr.New(feederr.AuthFailure, m.name+".subscribeToPrivateTopics", err)
		}
	}

	if subs := m.canonicalSubs(); len(subs) > 0 {
		if err := m.hooks.DoSubscribe(ctx, c, subs); err != nil {
			m.teardown(c)
			return feederr.New(feederr.TransientNetwork, m.name+".resubscribe", err)
		}
	}

	activity := make(chan struct{}, 1)
	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go m.heartbeatLoop(hbCtx, c, activity)

	return m.receiveLoop(ctx, c, activity)
}

// receiveLoop reads one full message at a time and hands it to the
// message processor. Control frames that close the socket surface as a
// retriable error rather than a silent return.
func (m *Manager) receiveLoop(ctx context.Context, c *websocket.Conn, activity chan<- struct{}) error {
	defer m.teardown(c)

	c.SetPongHandler(func(string) error {
		notify(activity)
		m.signalPong()
		return nil
	})
	c.SetPingHandler(func(appData string) error {
		notify(activity)
		_ = c.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := c.ReadMessage()
		if err != nil {
			return feederr.New(feederr.TransientNetwork, m.name+".readMessage", err)
		}
		notify(activity)

		if m.hooks.IsPongMessage(raw) {
			m.signalPong()
			continue
		}
		if err := m.hooks.ProcessMessage(raw); err != nil {
			m.OnError.Publish(feederr.New(feederr.ParseError, m.name+".processMessage", err))
			continue
		}
		m.OnMessageRecv.Publish(raw)
	}
}

// heartbeatLoop waits on the inactivity timeout; on firing it pings and
// awaits a pong within pingTimeout, closing the socket as stale if none
// arrives. Any inbound frame resets the window via activity.
func (m *Manager) heartbeatLoop(ctx context.Context, c *websocket.Conn, activity <-chan struct{}) {
	inactivity := m.hooks.InactivityTimeout()
	if inactivity <= 0 {
		inactivity = 5 * time.Second
	}
	timer := time.NewTimer(inactivity)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-activity:
			timer.Reset(inactivity)
		case <-timer.C:
			if m.awaitPong(ctx, c) {
				timer.Reset(inactivity)
				continue
			}
			m.closeStale(c)
			return
		}
	}
}

// awaitPong sends the venue ping (if any) and blocks for pingTimeout for a
// matching pong. Only one ping is ever in flight.
func (m *Manager) awaitPong(ctx context.Context, c *websocket.Conn) bool {
	ping := m.hooks.PingMessage()
	if ping == nil {
		// Protocol-level pings only; a fired inactivity timer with nothing
		// received means even those stopped arriving.
		return false
	}

	waiter := make(chan struct{})
	m.mu.Lock()
	m.pongWaiter = waiter
	m.mu.Unlock()

	if err := c.WriteMessage(websocket.TextMessage, ping); err != nil {
		return false
	}

	timeout := m.hooks.PingTimeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case <-waiter:
		return true
	case <-time.After(timeout):
		return false
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) signalPong() {
	m.mu.Lock()
	waiter := m.pongWaiter
	m.pongWaiter = nil
	m.mu.Unlock()
	if waiter != nil {
		close(waiter)
	}
}

func (m *Manager) closeStale(c *websocket.Conn) {
	m.logger.Warn(m.name + ": stale connection, closing")
	_ = c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Stale connection"),
		time.Now().Add(time.Second))
	_ = c.Close()
}

func (m *Manager) teardown(c *websocket.Conn) {
	m.mu.Lock()
	if m.conn == c {
		m.conn = nil
		m.connected = false
	}
	m.mu.Unlock()
}

func (m *Manager) publishState(connected bool, reason string) {
	m.OnStateChanged.Publish(StateChange{Connected: connected, Reason: reason})
}

func notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
