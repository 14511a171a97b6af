package server

import (
	"github.com/Tyrowin/relaychat/internal/session"
)

// client is the hub's record of one live connection.
type client struct {
	id        uint64
	transport transport
	conn      *session.Connection
	send      chan []byte
	limiter   *rateLimiter // nil when rate limiting is off
	addr      string
}

func newClient(id uint64, t transport, cfg Config) *client {
	c := &client{
		id:        id,
		transport: t,
		conn:      session.New(uint32(cfg.MaxPayloadSize)),
		send:      make(chan []byte, cfg.SendQueueSize),
		addr:      t.remoteAddr(),
	}
	if cfg.RateLimit.Burst > 0 {
		c.limiter = newRateLimiter(cfg.RateLimit)
	}
	return c
}

// enqueue queues frame without blocking. It reports false when the queue is full.
func (c *client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readPump posts every received chunk to the hub. It stops after the first
// error that is not transient, or when the hub stops.
func (c *client) readPump(h *Hub) {
	defer h.wg.Done()

	for {
		data, err := c.transport.read()
		if len(data) > 0 && !h.postRead(readEvent{id: c.id, data: data}) {
			return
		}
		if err == nil {
			continue
		}
		if !h.postRead(readEvent{id: c.id, err: err}) {
			return
		}
		if !isTransientReadError(err) {
			return
		}
	}
}

// writePump drains the send queue until the hub closes it. A failed write is
// reported to the hub and ends the pump.
func (c *client) writePump(h *Hub) {
	defer h.wg.Done()

	for frame := range c.send {
		if err := c.transport.write(frame); err != nil {
			h.postWriteFailure(writeEvent{id: c.id, err: err})
			return
		}
	}
}
