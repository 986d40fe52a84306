package talespin

import (
	"context"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

type inboundTopic struct{}

var _ Client = (*Session)(nil)

// Session keeps one logical connection to the game server alive across any number of
// transport handles. Intents sent while no handle is open are serialized and queued,
// then flushed in order as soon as the next handle opens. Inbound frames are decoded
// and handed to every registered Handler in registration order.
//
// Reconnection is unconditional: whenever the current handle closes a fresh one is
// built, after whatever delay the ReconnectStrategy asks for. The Session keeps no
// memory of rooms or player names; callers that need to rejoin after a reconnect do
// so from the OnDisconnect callback (see RejoinCoordinator).
type Session struct {
	connFactory    ConnectionFactory
	strategy       ReconnectStrategy
	logger         Logger
	metrics        *Metrics
	keepAlive      time.Duration
	reopenInterval time.Duration
	outboxLimit    int

	mu           sync.Mutex
	conn         Connection
	state        State
	broken       Connection // lost OPEN through a failed write, not yet reported
	handles      int
	opened       bool
	closed       bool
	onDisconnect func()
	err          error
	cancel       context.CancelFunc

	outbox    *Outbox
	observers *EventEmitterCallback[inboundTopic, Event]
	lifecycle *EventEmitterCallback[LifecycleEvent, LifecycleEvent]

	recv      chan Frame
	closeC    CloseChan
	closeOnce sync.Once
	done      chan struct{}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

func WithLogger(l Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithReconnectStrategy(strategy ReconnectStrategy) SessionOption {
	return func(s *Session) {
		if strategy != nil {
			s.strategy = strategy
		}
	}
}

func WithMetrics(m *Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithKeepAlive sends a Ping intent every interval while a handle is open.
func WithKeepAlive(interval time.Duration) SessionOption {
	return func(s *Session) {
		s.keepAlive = interval
	}
}

// WithOutboxLimit bounds the outbox; the oldest queued frame is evicted when full.
func WithOutboxLimit(limit int) SessionOption {
	return func(s *Session) {
		s.outboxLimit = limit
	}
}

func newSession(opts ...SessionOption) *Session {
	s := &Session{
		strategy:  RetryForever(),
		logger:    NopLogger(),
		state:     StateConnecting,
		observers: NewEventEmitter[inboundTopic, Event](),
		lifecycle: NewEventEmitter[LifecycleEvent, LifecycleEvent](),
		recv:      make(chan Frame, 32),
		closeC:    make(CloseChan),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "session")
	s.outbox = NewOutbox(s.outboxLimit)
	return s
}

// NewSession returns an unopened session whose handles are built by connFactory.
func NewSession(connFactory ConnectionFactory, opts ...SessionOption) *Session {
	s := newSession(opts...)
	s.connFactory = connFactory
	return s
}

// NewWebsocketSession returns an unopened session dialing the websocket endpoint of e.
// A nil dialer uses websocket.DefaultDialer.
func NewWebsocketSession(e Endpoints, dialer *websocket.Dialer, opts ...SessionOption) *Session {
	s := newSession(opts...)
	repo := NewOpenConnectionParamsRepo(s.logger, StaticOpenConnectionParams(e, nil))
	s.connFactory = NewWebsocketFactory(s.logger, dialer, repo, ErrorAdapters{})
	return s
}

// Open starts the connection loop and returns immediately. Intents sent before the
// first handle opens are queued.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.opened {
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.opened = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.dispatchLoop()
	go s.run(ctx)
	if s.keepAlive > 0 {
		go s.keepAliveLoop(ctx)
	}
	if s.reopenInterval > 0 {
		go s.reopenLoop(ctx)
	}
	return nil
}

// Send transmits i right away when the transport is open and queues it otherwise.
// It never reports an error: delivery problems are handled by reconnecting.
func (s *Session) Send(i Intent) {
	frame, err := EncodeIntent(i)
	if err != nil {
		s.logger.Errorf("dropping intent: %s", err)
		s.metrics.recordDropped(dropReasonEncodeError)
		return
	}
	s.sendFrame(frame)
}

func (s *Session) sendFrame(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateOpen {
		err := s.conn.Write(NewTextFrame(frame))
		if err == nil {
			s.metrics.recordSent(1)
			return
		}
		s.logger.Warnf("write failed, queueing until the next connection: %s", err)
		s.abandonLocked()
	}

	s.enqueue(frame)
}

// enqueue must be called with s.mu held.
func (s *Session) enqueue(frame []byte) {
	if dropped := s.outbox.Push(frame); dropped != nil {
		s.logger.Warnf("outbox full, evicted %s", dropped)
		s.metrics.recordDropped(dropReasonOutboxFull)
	}
	s.metrics.recordBuffered(s.outbox.Len())
}

// writeIfOpen writes f on the current handle only when it is open. Nothing is queued.
func (s *Session) writeIfOpen(f Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return false
	}
	if err := s.conn.Write(f); err != nil {
		s.logger.Debugf("cannot write %s: %s", f.Type, err)
		s.abandonLocked()
		return false
	}
	return true
}

// abandonLocked gives up on the open handle after a failed write. Closing it wakes
// serve, which reports the drop and builds the replacement. Must hold s.mu.
func (s *Session) abandonLocked() {
	s.setState(StateClosed)
	s.broken = s.conn
	s.conn.Close()
}

// AddHandler registers h for every inbound event from now on. Handlers run in
// registration order on the session's dispatch goroutine.
func (s *Session) AddHandler(h Handler) Subscription {
	id := s.observers.On(inboundTopic{}, callback[Event](h))
	return Subscription{cancel: func() bool {
		return s.observers.Off(inboundTopic{}, id)
	}}
}

// OnLifecycle registers fn for transport lifecycle event ev.
func (s *Session) OnLifecycle(ev LifecycleEvent, fn LifecycleHandler) Subscription {
	id := s.lifecycle.On(ev, callback[LifecycleEvent](fn))
	return Subscription{cancel: func() bool {
		return s.lifecycle.Off(ev, id)
	}}
}

// OnDisconnect installs the callback fired once per transport replacement, after the new
// handle exists and before it is known to be open. It replaces any previous callback.
func (s *Session) OnDisconnect(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = cb
}

// Close closes the current handle and stops reconnecting. Intents sent afterwards are
// queued and never flushed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		conn := s.conn
		cancel := s.cancel
		wasOpen := s.state == StateOpen
		s.setState(StateClosed)
		if s.err == nil {
			s.err = ErrSessionClosed
		}
		s.mu.Unlock()

		close(s.closeC)
		if cancel != nil {
			cancel()
		}
		if conn != nil {
			conn.Close()
		}
		if wasOpen {
			s.lifecycle.Emit(EventClose, EventClose)
		}

		s.observers.Close()
		s.lifecycle.Close()
		s.logger.Infoln("session closed")
	})
}

func (s *Session) CloseChan() CloseChan {
	return s.closeC
}

// Done is closed once the connection loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending returns how many frames wait for the next open handle.
func (s *Session) Pending() int {
	return s.outbox.Len()
}

// Err returns why the session stopped: ErrSessionClosed after Close, an
// *ErrUnrecoverableConnection when the strategy gave up, nil while running.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// setState must be called with s.mu held.
func (s *Session) setState(state State) {
	s.state = state
	s.metrics.recordState(state)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	// a cancelled parent context tears the session down like Close does
	defer s.Close()

	for first := true; ; first = false {
		conn := s.connFactory(ctx, s.recv)
		if !s.install(conn) {
			conn.Close()
			return
		}

		if !first {
			s.replaced()
		}

		uptime, ok := s.serve(ctx, conn)
		if !ok {
			return
		}

		delay, retry := s.strategy.Next(uptime)
		if !retry {
			s.giveUp(conn)
			return
		}
		if delay > 0 {
			s.logger.Infof("reconnecting in %s", delay)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.closeC:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// install makes conn the current handle. Superseded handles are never touched again.
func (s *Session) install(conn Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.conn = conn
	s.handles++
	s.setState(StateConnecting)
	s.logger.Debugf("handle #%d created", s.handles)
	return true
}

func (s *Session) replaced() {
	s.mu.Lock()
	cb := s.onDisconnect
	s.mu.Unlock()

	s.metrics.recordReconnect()
	s.lifecycle.Emit(EventReconnect, EventReconnect)
	if cb != nil {
		cb()
	}
}

// serve opens conn and blocks until it closes. It returns how long the handle stayed
// open and whether the loop should go on.
func (s *Session) serve(ctx context.Context, conn Connection) (time.Duration, bool) {
	if err := conn.Open(ctx); err != nil {
		s.logger.Warnf("cannot open connection: %s", err)
		conn.Close()
		s.markClosed(conn)
		return 0, ctx.Err() == nil && !s.isClosed()
	}

	openedAt := time.Now()
	if s.markOpen(conn) {
		s.lifecycle.Emit(EventConnect, EventConnect)
	}

	select {
	case <-conn.CloseChan():
		s.logger.Infof("connection closed: %v", conn.CloseErr())
	case <-ctx.Done():
		conn.Close()
		return 0, false
	case <-s.closeC:
		return 0, false
	}

	conn.Close()
	if s.markClosed(conn) {
		s.lifecycle.Emit(EventClose, EventClose)
	}
	return time.Since(openedAt), ctx.Err() == nil && !s.isClosed()
}

// markOpen transitions conn to OPEN and flushes the outbox in enqueue order. Holding the
// lock for the whole flush keeps concurrent sends behind the queued frames.
func (s *Session) markOpen(conn Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.conn != conn {
		return false
	}

	frames := s.outbox.Drain()
	for i, frame := range frames {
		if err := conn.Write(NewTextFrame(frame)); err != nil {
			s.logger.Warnf("flush interrupted after %d of %d frames: %s", i, len(frames), err)
			s.outbox.Requeue(frames[i:])
			s.metrics.recordSent(i)
			s.metrics.recordOutboxDepth(s.outbox.Len())
			s.setState(StateClosed)
			conn.Close()
			return false
		}
	}
	if len(frames) > 0 {
		s.logger.Infof("flushed %d queued frames", len(frames))
	}
	s.metrics.recordSent(len(frames))
	s.metrics.recordOutboxDepth(0)
	s.setState(StateOpen)
	return true
}

// markClosed reports whether conn was open until now.
func (s *Session) markClosed(conn Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != conn {
		return false
	}
	wasOpen := s.state == StateOpen || s.broken == conn
	s.broken = nil
	s.setState(StateClosed)
	return wasOpen
}

func (s *Session) giveUp(conn Connection) {
	err := newUnrecoverable(conn.CloseErr(), conn.URL())
	s.logger.Errorf("giving up: %s", err)

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.lifecycle.Emit(EventGiveUp, EventGiveUp)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) dispatchLoop() {
	for {
		select {
		case <-s.closeC:
			return
		case f := <-s.recv:
			s.dispatch(f)
		}
	}
}

// dispatch decodes data frames for the observers and answers control frames.
// A frame that cannot be decoded is dropped; the connection is kept.
func (s *Session) dispatch(f Frame) {
	switch f.Type {
	case TextFrame, BinaryFrame:
		ev, err := DecodeEvent(f.Data)
		if err != nil {
			reason := dropReasonMalformed
			if errors.Is(err, ErrUnknownEvent) {
				reason = dropReasonUnknown
			}
			s.logger.Warnf("dropping inbound frame: %s", err)
			s.metrics.recordDropped(reason)
			return
		}
		s.metrics.recordReceived()
		s.observers.Emit(inboundTopic{}, ev)
	case PingFrame:
		s.writeIfOpen(NewPongFrame(f.Data))
	case PongFrame:
		s.logger.Debugln("pong")
	case CloseFrame:
		s.logger.Debugf("server closing: %d %s", f.Code, f.Data)
	}
}
