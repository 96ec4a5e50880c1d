package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"

	"github.com/prim5v/studyhub-frontend/internal/config"
	"github.com/prim5v/studyhub-frontend/internal/protocol"
)

// Connection lifecycle pseudo-events, dispatched through the same emitter as
// server events
const (
	EvConnect    = "connect"
	EvDisconnect = "disconnect"
	EvReconnect  = "reconnect"
)

// roomDecl is a remembered join declaration. Room membership does not survive
// a transport drop server-side, so every declaration is re-issued after a
// successful reconnect.
type roomDecl struct {
	key     string
	event   string
	payload interface{}
}

type pendingReq struct {
	opId       string
	replyEvent string
	seq        uint64
	ch         chan *Reply
}

// Reply is a resolved request/response pair
type Reply struct {
	Frame   *protocol.Frame
	Payload interface{}
}

// Conn is the process-wide real-time channel to the backend. One Conn is
// shared by every view in the session; views subscribe through Scopes and the
// Conn owns reconnect policy, room re-declaration and request correlation.
type Conn struct {
	cfg      config.WebSocketConfig
	endpoint string
	dialer   *websocket.Dialer
	emitter  *Emitter

	mu      sync.Mutex
	current *wsConn
	rooms   []roomDecl

	pendingMu  sync.Mutex
	pendingSeq uint64
	pending    []*pendingReq

	connected atomic.Bool
	closed    atomic.Bool
	closeChan chan struct{}
}

// NewConn creates an unconnected Conn for the endpoint
func NewConn(endpoint string, cfg config.WebSocketConfig) *Conn {
	return &Conn{
		cfg:       cfg,
		endpoint:  endpoint,
		dialer:    websocket.DefaultDialer,
		emitter:   NewEmitter(),
		closeChan: make(chan struct{}),
	}
}

// Connect dials the endpoint and starts the read loop
func (c *Conn) Connect(ctx context.Context) error {
	ws, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = ws
	c.mu.Unlock()

	c.connected.Store(true)
	go c.readLoop(ws)

	c.emitter.Emit(EvConnect, &protocol.Frame{Event: EvConnect}, nil)
	return nil
}

func (c *Conn) dial(ctx context.Context) (*wsConn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	return newWSConn(conn, c.cfg.MaxMessageSize, c.cfg.PongWait, c.cfg.PingPeriod, c.cfg.WriteWait, c.cfg.WriteChannelSize), nil
}

// readLoop reads frames from one physical connection until it drops, then
// hands off to the reconnect loop
func (c *Conn) readLoop(ws *wsConn) {
	for {
		raw, err := ws.readMessage()
		if err != nil {
			ws.close()
			if c.closed.Load() {
				return
			}
			log.Warn("channel read error, reconnecting: %v", err)
			c.connected.Store(false)
			c.reconnect()
			return
		}

		c.handleFrame(raw)
	}
}

// handleFrame decodes an incoming frame, resolves a pending request if one
// matches and dispatches to subscribed handlers in arrival order
func (c *Conn) handleFrame(raw []byte) {
	frame, err := protocol.DecodeFrame(raw)
	if err != nil {
		log.Warn("drop malformed frame: %v", err)
		return
	}

	var payload interface{}
	if protocol.KnownEvent(frame.Event) {
		payload, err = protocol.DecodePayload(frame.Event, frame.Data)
		if err != nil {
			log.Warn("drop frame: %v", err)
			return
		}
	} else {
		log.Debug("unrecognized event %q, dispatching without schema", frame.Event)
	}

	c.resolvePending(frame, payload)
	c.emitter.Emit(frame.Event, frame, payload)
}

func (c *Conn) resolvePending(frame *protocol.Frame, payload interface{}) {
	c.pendingMu.Lock()
	var match *pendingReq
	matchIdx := -1
	for i, p := range c.pending {
		if frame.OpId != "" {
			if p.opId == frame.OpId {
				match, matchIdx = p, i
				break
			}
			continue
		}
		// No op id echoed: resolve the oldest request waiting on this
		// reply event. Arrival order matches emission order per channel.
		if p.replyEvent == frame.Event && (match == nil || p.seq < match.seq) {
			match, matchIdx = p, i
		}
	}
	if match != nil {
		c.pending = append(c.pending[:matchIdx], c.pending[matchIdx+1:]...)
	}
	c.pendingMu.Unlock()

	if match != nil {
		match.ch <- &Reply{Frame: frame, Payload: payload}
	}
}

// reconnect retries the dial with a bounded attempt count and fixed backoff.
// On success it re-issues every room declaration before announcing the
// reconnect.
func (c *Conn) reconnect() {
	c.emitter.Emit(EvDisconnect, &protocol.Frame{Event: EvDisconnect}, nil)

	for attempt := 1; attempt <= c.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-c.closeChan:
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		ws, err := c.dial(ctx)
		cancel()
		if err != nil {
			log.Warn("reconnect attempt %d/%d failed: %v", attempt, c.cfg.ReconnectAttempts, err)
			continue
		}

		c.mu.Lock()
		c.current = ws
		rooms := make([]roomDecl, len(c.rooms))
		copy(rooms, c.rooms)
		c.mu.Unlock()

		c.connected.Store(true)
		go c.readLoop(ws)

		for _, r := range rooms {
			if err := c.Emit(r.event, r.payload); err != nil {
				log.Warn("rejoin %s failed: %v", r.key, err)
			}
		}

		log.Info("channel reconnected after %d attempt(s)", attempt)
		c.emitter.Emit(EvReconnect, &protocol.Frame{Event: EvReconnect}, nil)
		return
	}

	log.Warn("reconnect attempts exhausted, channel stays down")
	c.Close()
}

// Emit sends a fire-and-forget event
func (c *Conn) Emit(event string, payload interface{}) error {
	return c.emitFrame(event, "", payload)
}

func (c *Conn) emitFrame(event, opId string, payload interface{}) error {
	if c.closed.Load() {
		return ErrConnClosed
	}

	c.mu.Lock()
	ws := c.current
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	raw, err := protocol.EncodeFrame(event, opId, payload)
	if err != nil {
		return err
	}
	return ws.writeMessage(raw)
}

// Request sends an event with a correlation id and waits for the matching
// reply. The reply is matched by echoed op id when the backend provides one,
// falling back to oldest-waiter-per-reply-event otherwise.
func (c *Conn) Request(ctx context.Context, event string, payload interface{}, replyEvent string) (*Reply, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	opId := uuid.NewString()
	p := &pendingReq{
		opId:       opId,
		replyEvent: replyEvent,
		ch:         make(chan *Reply, 1),
	}

	c.pendingMu.Lock()
	c.pendingSeq++
	p.seq = c.pendingSeq
	c.pending = append(c.pending, p)
	c.pendingMu.Unlock()

	if err := c.emitFrame(event, opId, payload); err != nil {
		c.removePending(p)
		return nil, err
	}

	select {
	case reply := <-p.ch:
		return reply, nil
	case <-ctx.Done():
		c.removePending(p)
		return nil, ErrRequestTimeout
	case <-c.closeChan:
		c.removePending(p)
		return nil, ErrConnClosed
	}
}

func (c *Conn) removePending(p *pendingReq) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for i, q := range c.pending {
		if q == p {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

// DeclareRoom emits a join declaration and remembers it for re-issue after
// reconnects. The key dedupes repeat declarations of the same room.
func (c *Conn) DeclareRoom(key, event string, payload interface{}) error {
	c.mu.Lock()
	found := false
	for i, r := range c.rooms {
		if r.key == key {
			c.rooms[i] = roomDecl{key: key, event: event, payload: payload}
			found = true
			break
		}
	}
	if !found {
		c.rooms = append(c.rooms, roomDecl{key: key, event: event, payload: payload})
	}
	c.mu.Unlock()

	return c.Emit(event, payload)
}

// UndeclareRoom forgets a room declaration, optionally emitting a leave event
func (c *Conn) UndeclareRoom(key, leaveEvent string, payload interface{}) error {
	c.mu.Lock()
	for i, r := range c.rooms {
		if r.key == key {
			c.rooms = append(c.rooms[:i], c.rooms[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if leaveEvent == "" {
		return nil
	}
	return c.Emit(leaveEvent, payload)
}

// On registers a raw handler. Prefer NewScope for anything view-scoped.
func (c *Conn) On(event string, h Handler) SubId {
	return c.emitter.On(event, h)
}

// Off removes a raw handler
func (c *Conn) Off(event string, id SubId) {
	c.emitter.Off(event, id)
}

// NewScope returns a handler scope bound to a view lifetime
func (c *Conn) NewScope() *Scope {
	return c.emitter.NewScope()
}

// Emitter exposes the shared dispatcher
func (c *Conn) Emitter() *Emitter {
	return c.emitter
}

// IsConnected reports channel liveness
func (c *Conn) IsConnected() bool {
	return c.connected.Load()
}

// Close shuts the channel down permanently
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connected.Store(false)
	close(c.closeChan)

	c.mu.Lock()
	ws := c.current
	c.mu.Unlock()
	if ws != nil {
		ws.close()
	}
	return nil
}
