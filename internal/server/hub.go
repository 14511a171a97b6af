package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/session"
)

// State is the lifecycle state of a Hub.
type State int32

const (
	// Running accepts connections and relays messages.
	Running State = iota
	// Draining closes the listener and every connection.
	Draining
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Hub owns the connection table and runs the event loop. Only the goroutine
// running Serve reads or writes clients.
type Hub struct {
	cfg    Config
	logger *slog.Logger

	clients map[uint64]*client
	nextID  uint64

	register     chan transport
	inbound      chan readEvent
	writeFailed  chan writeEvent
	quit         chan struct{}
	done         chan struct{}
	wg           sync.WaitGroup
	started      atomic.Bool
	stopping     atomic.Bool
	state        atomic.Int32
	clientsCount atomic.Int64
}

// NewHub creates a Hub with a sanitized copy of cfg. A nil logger discards output.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		cfg:         sanitizeConfig(cfg),
		logger:      logger,
		clients:     make(map[uint64]*client),
		register:    make(chan transport),
		inbound:     make(chan readEvent),
		writeFailed: make(chan writeEvent),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Config returns the sanitized configuration the hub runs with.
func (h *Hub) Config() Config {
	return h.cfg
}

// Shutdown asks the event loop to stop. It only sets a flag, so it is safe to
// call from a signal handler goroutine. The loop observes it within one
// PollInterval.
func (h *Hub) Shutdown() {
	h.stopping.Store(true)
}

// Done is closed once the hub has reached Stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// State returns the current lifecycle state.
func (h *Hub) State() State {
	return State(h.state.Load())
}

// ConnectionCount returns the number of connections in the table.
func (h *Hub) ConnectionCount() int {
	return int(h.clientsCount.Load())
}

// attach hands an established transport to the event loop. It fails with
// ErrServerStopped once the hub has stopped, closing t.
func (h *Hub) attach(t transport) error {
	select {
	case h.register <- t:
		return nil
	case <-h.quit:
		_ = t.close()
		return ErrServerStopped
	}
}

// Serve runs the event loop until Shutdown is called or ctx is cancelled.
// ln may be nil when every connection arrives through attach. Serve closes ln
// while draining and returns nil after a clean stop.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	if h.started.Swap(true) {
		return ErrServerAlreadyStarted
	}

	if ln != nil {
		h.wg.Add(1)
		go h.acceptLoop(ln)
		h.logger.Info("Chat server listening", "addr", ln.Addr().String())
	}

	h.run(ctx)
	h.drain(ln)
	return nil
}

func (h *Hub) run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()

	for !h.stopping.Load() {
		select {
		case <-ctx.Done():
			h.stopping.Store(true)
		case <-ticker.C:
		case t := <-h.register:
			h.acceptOne(t)
		case ev := <-h.inbound:
			h.onReadable(ev)
		case ev := <-h.writeFailed:
			h.onWriteFailure(ev)
		}
	}
}

func (h *Hub) drain(ln net.Listener) {
	h.state.Store(int32(Draining))
	h.logger.Info("Hub draining", "clients", len(h.clients))

	if ln != nil {
		if err := ln.Close(); err != nil && !isExpectedCloseError(err) {
			h.logger.Error("Error closing listener", "error", err)
		}
	}

	for _, c := range h.clients {
		h.remove(c, ErrServerStopped)
	}

	close(h.quit)
	h.wg.Wait()

	h.state.Store(int32(Stopped))
	close(h.done)
	h.logger.Info("Hub stopped")
}

func (h *Hub) postRead(ev readEvent) bool {
	select {
	case h.inbound <- ev:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) postWriteFailure(ev writeEvent) {
	select {
	case h.writeFailed <- ev:
	case <-h.quit:
	}
}

// acceptOne registers a new connection. A connection that cannot be
// registered is closed and does not affect the others.
func (h *Hub) acceptOne(t transport) {
	addr := t.remoteAddr()

	if h.cfg.MaxConnections > 0 && len(h.clients) >= h.cfg.MaxConnections {
		h.logger.Warn("Rejecting connection", "addr", addr, "error", ErrMaxConnectionsReached)
		_ = t.close()
		return
	}

	if err := t.setup(); err != nil {
		h.logger.Warn("Rejecting connection", "addr", addr, "error", err)
		_ = t.close()
		return
	}

	h.nextID++
	c := newClient(h.nextID, t, h.cfg)
	h.clients[c.id] = c
	h.clientsCount.Store(int64(len(h.clients)))

	h.wg.Add(2)
	go c.readPump(h)
	go c.writePump(h)

	h.logger.Info("Client registered", "addr", addr, "transport", t.kind(), "clients", len(h.clients))
}

func (h *Hub) onReadable(ev readEvent) {
	c, ok := h.clients[ev.id]
	if !ok {
		return
	}

	if ev.err != nil {
		h.onReadError(c, ev.err)
		return
	}

	for _, action := range c.conn.OnBytes(ev.data) {
		h.execute(c, action)
		if _, live := h.clients[c.id]; !live {
			return
		}
	}
}

func (h *Hub) onReadError(c *client, err error) {
	switch {
	case isPeerClosed(err):
		h.disconnect(c, errPeerClosed)
	case isTransientReadError(err):
		h.logger.Warn("Transient read error", "addr", c.addr, "error", err)
	default:
		h.disconnect(c, err)
	}
}

func (h *Hub) onWriteFailure(ev writeEvent) {
	c, ok := h.clients[ev.id]
	if !ok {
		return
	}
	h.logger.Warn("Write failed", "addr", c.addr, "error", ev.err)
	h.disconnect(c, ev.err)
}

func (h *Hub) execute(c *client, action session.Action) {
	switch a := action.(type) {
	case session.RequestEnter:
		h.enter(c, a.Name)
	case session.RequestBroadcast:
		h.relay(c, a.Content)
	case session.Disconnect:
		h.disconnect(c, a.Reason)
	}
}

func (h *Hub) enter(c *client, name string) {
	if h.nameTaken(name) {
		h.disconnect(c, fmt.Errorf("%w: %q", ErrNameTaken, name))
		return
	}
	if err := c.conn.Enter(name); err != nil {
		h.disconnect(c, err)
		return
	}

	h.logger.Info("Client entered", "addr", c.addr, "name", name)
	notice := protocol.Encode(protocol.Notice{Content: JoinNotice(name)})
	h.broadcast(c.id, notice, false)
}

func (h *Hub) relay(c *client, content string) {
	// A pipelined MESSAGE is only relayed if the entry before it was accepted.
	if c.conn.State() != session.Entered {
		h.disconnect(c, session.ErrNotEntered)
		return
	}

	if c.limiter != nil && !c.limiter.allow() {
		h.logger.Warn("Rate limit exceeded; discarding message",
			"addr", c.addr,
			"name", c.conn.Name(),
			"burst", h.cfg.RateLimit.Burst,
			"interval", h.cfg.RateLimit.RefillInterval)
		return
	}

	frame := protocol.Encode(protocol.RelayedMessage{SenderName: c.conn.Name(), Content: content})
	h.broadcast(c.id, frame, true)
}

// broadcast queues frame for every connection except sender. When enteredOnly
// is set, connections that have not entered are skipped. Recipients whose
// queue is full are disconnected after the loop.
func (h *Hub) broadcast(sender uint64, frame []byte, enteredOnly bool) {
	var failed []*client
	for id, c := range h.clients {
		if id == sender {
			continue
		}
		if enteredOnly && c.conn.State() != session.Entered {
			continue
		}
		if !c.enqueue(frame) {
			failed = append(failed, c)
		}
	}

	for _, c := range failed {
		h.disconnect(c, ErrSendQueueFull)
	}
}

// disconnect removes c and announces its departure if it had a name.
func (h *Hub) disconnect(c *client, reason error) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	name := c.conn.Name()
	h.remove(c, reason)

	if name != "" {
		notice := protocol.Encode(protocol.Notice{Content: LeaveNotice(name)})
		h.broadcast(c.id, notice, false)
	}
}

// remove closes c and deletes it from the table. No frame can be queued to c afterwards.
func (h *Hub) remove(c *client, reason error) {
	delete(h.clients, c.id)
	h.clientsCount.Store(int64(len(h.clients)))

	c.conn.Close()
	close(c.send)
	if err := c.transport.close(); err != nil && !isExpectedCloseError(err) {
		h.logger.Error("Error closing connection", "addr", c.addr, "error", err)
	}

	level := slog.LevelInfo
	if !errors.Is(reason, errPeerClosed) && !errors.Is(reason, ErrServerStopped) {
		level = slog.LevelWarn
	}
	h.logger.Log(context.Background(), level, "Client unregistered",
		"addr", c.addr,
		"name", c.conn.Name(),
		"reason", reason,
		"clients", len(h.clients))
}

func (h *Hub) nameTaken(name string) bool {
	for _, c := range h.clients {
		if c.conn.State() == session.Entered && c.conn.Name() == name {
			return true
		}
	}
	return false
}

// JoinNotice is the notice text sent to others when name enters.
func JoinNotice(name string) string {
	return "User " + name + " entered. Please say hello."
}

// LeaveNotice is the notice text sent to others when name leaves.
func LeaveNotice(name string) string {
	return "User " + name + " get out."
}
