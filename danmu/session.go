package danmu

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"context"

	"github.com/gorilla/websocket"

	"github.com/forzenfox/douyu-monitor/stt"
	"github.com/forzenfox/douyu-monitor/telemetry"
)

// State is the session lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var errHeartbeatTimeout = errors.New("danmu: no inbound traffic for two heartbeat intervals")

// DefaultEndpoints are the gateway's load-balanced danmaku proxies; dial picks
// one at random per attempt.
func DefaultEndpoints() []string {
	return []string{
		"wss://danmuproxy.douyu.com:8502/",
		"wss://danmuproxy.douyu.com:8503/",
		"wss://danmuproxy.douyu.com:8504/",
	}
}

// FrameHandler consumes one decoded frame payload. The session invokes it from
// a single goroutine in strict arrival order.
type FrameHandler func(frame string)

// SessionConfig tunes a Session. Zero values fall back to gateway-friendly
// defaults in NewSession.
type SessionConfig struct {
	Room                 string
	Endpoints            []string
	HeartbeatInterval    time.Duration
	Backoff              Backoff
	MaxReconnectAttempts int
	Dialer               *websocket.Dialer
}

// Session owns one websocket to the broadcast-chat gateway for one room. It
// drives connect, join, heartbeat, and reconnect-with-backoff, and feeds every
// inbound frame to the configured handler. All shared state lives on the
// Session; nothing is shared across rooms.
type Session struct {
	cfg     SessionConfig
	handler FrameHandler

	mu          sync.Mutex
	state       State
	attempts    int
	lastInbound time.Time
	conn        *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// NewSession builds a Session for the given room. handler must not be nil.
func NewSession(cfg SessionConfig, handler FrameHandler) *Session {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = 50
	}
	return &Session{
		cfg:     cfg,
		handler: handler,
		state:   StateDisconnected,
		closed:  make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attempts returns the current reconnect attempt count. It resets to zero on a
// successful connect.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Run drives the connection lifecycle until ctx is cancelled, Close is called,
// or the reconnect budget is exhausted. Exhausted retries are not an error:
// the session parks in StateClosed and Run returns nil, leaving the caller to
// decide whether to start over. Transport faults never escape Run.
func (s *Session) Run(ctx context.Context) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Close cancels only the inner context, so parent.Err() stays nil on a
	// graceful shutdown and carries the caller's cancellation otherwise.
	for {
		if ctx.Err() != nil {
			s.setState(StateClosed)
			return parent.Err()
		}
		s.setState(StateConnecting)
		conn, err := s.dial(ctx)
		if err != nil {
			slog.Warn("danmu dial failed", slog.String("room", s.cfg.Room), slog.Any("err", err))
			if !s.waitRetry(ctx) {
				return parent.Err()
			}
			continue
		}

		s.setConn(conn)
		s.setState(StateConnected)
		s.resetAttempts()
		telemetry.SetConnected(true)
		slog.Info("danmu connected", slog.String("room", s.cfg.Room))

		err = s.serve(ctx, conn)
		telemetry.SetConnected(false)
		s.setConn(nil)

		if ctx.Err() != nil {
			s.setState(StateClosed)
			return parent.Err()
		}
		slog.Warn("danmu session ended", slog.String("room", s.cfg.Room), slog.Any("err", err))
		s.setState(StateReconnecting)
		if !s.waitRetry(ctx) {
			return parent.Err()
		}
	}
}

// Close tears the session down. It is idempotent and safe to call while a
// transport error is being handled concurrently: timers stop and the socket
// closes exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	endpoint := s.cfg.Endpoints[rand.Intn(len(s.cfg.Endpoints))]
	dialer := s.cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return conn, nil
}

// serve pumps one connection: join frames out, heartbeat on a ticker, inbound
// frames to the handler. It returns on transport fault, heartbeat timeout, or
// ctx cancellation; the connection is closed exactly once on the way out.
func (s *Session) serve(ctx context.Context, conn *websocket.Conn) error {
	defer func() { _ = conn.Close() }()

	if err := s.join(conn); err != nil {
		return fmt.Errorf("join room %s: %w", s.cfg.Room, err)
	}
	s.markInbound()

	readErr := make(chan error, 1)
	go s.readLoop(conn, readErr)

	interval := s.cfg.HeartbeatInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case <-ticker.C:
			if s.sinceInbound() > 2*interval {
				return errHeartbeatTimeout
			}
			if err := s.sendControl(conn, stt.NewRecord().Set("type", "mrkl")); err != nil {
				return fmt.Errorf("send keepalive: %w", err)
			}
			telemetry.CountHeartbeat()
		}
	}
}

// join announces the client: an unauthenticated login for the room, then the
// broadcast group join (gid -9999 is the full-room firehose).
func (s *Session) join(conn *websocket.Conn) error {
	login := stt.NewRecord().Set("type", "loginreq").Set("roomid", s.cfg.Room)
	if err := s.sendControl(conn, login); err != nil {
		return err
	}
	group := stt.NewRecord().Set("type", "joingroup").Set("rid", s.cfg.Room).Set("gid", "-9999")
	return s.sendControl(conn, group)
}

func (s *Session) sendControl(conn *websocket.Conn, rec *stt.Record) error {
	return conn.WriteMessage(websocket.BinaryMessage, EncodePacket(stt.Marshal(rec)))
}

func (s *Session) readLoop(conn *websocket.Conn, errCh chan<- error) {
	for {
		_, blob, err := conn.ReadMessage()
		if err != nil {
			errCh <- err
			return
		}
		s.markInbound()
		for _, frame := range SplitFrames(blob) {
			telemetry.CountFrame()
			s.handler(frame)
		}
	}
}

// waitRetry sleeps out the backoff for the next attempt. It returns false when
// the retry budget is exhausted or the session is shutting down; the session
// is then parked in StateClosed.
func (s *Session) waitRetry(ctx context.Context) bool {
	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	if attempt > s.cfg.MaxReconnectAttempts {
		slog.Error("danmu reconnect attempts exhausted",
			slog.String("room", s.cfg.Room),
			slog.Int("max_attempts", s.cfg.MaxReconnectAttempts))
		s.setState(StateClosed)
		return false
	}

	telemetry.CountReconnect()
	delay := s.cfg.Backoff.Delay(attempt)
	slog.Info("danmu reconnect scheduled",
		slog.String("room", s.cfg.Room),
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		s.setState(StateClosed)
		return false
	case <-timer.C:
		return true
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *Session) resetAttempts() {
	s.mu.Lock()
	s.attempts = 0
	s.mu.Unlock()
}

func (s *Session) markInbound() {
	s.mu.Lock()
	s.lastInbound = time.Now()
	s.mu.Unlock()
}

func (s *Session) sinceInbound() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastInbound)
}
