package server

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Listen opens the TCP chat listener.
func Listen(addr string) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on %s: %w", addr, err)
	}
	return ln, nil
}

// acceptLoop hands every accepted connection to the event loop until ln is closed.
func (h *Hub) acceptLoop(ln net.Listener) {
	defer h.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || h.stopping.Load() {
				return
			}
			h.logger.Error("Failed to accept connection", "error", err)
			time.Sleep(h.cfg.PollInterval)
			continue
		}

		if err := h.attach(newTCPTransport(conn, h.cfg)); err != nil {
			return
		}
	}
}
