/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrStopped = errors.New("hub stopped")

// Conn is a live client connection. Send must not block and reports false
// when the connection cannot keep up. The hub calls Close exactly once.
type Conn interface {
	ID() string
	Send(frame []byte) bool
	Close()
}

type delivery struct {
	connectionID string
	env          Envelope
}

// Hub is the single owner of all room, session and game state. Transports
// hand it connections and messages; Run applies them one at a time, in
// arrival order, alongside the periodic idle sweep.
type Hub struct {
	dispatcher    *Dispatcher
	sweepInterval time.Duration

	conns   map[string]Conn
	dropped []string

	register   chan Conn
	unregister chan Conn
	inbound    chan delivery
	calls      chan func(*Dispatcher)
	done       chan struct{}
}

// NewHub builds a Hub and the Dispatcher it drives. opts.Sender is replaced
// by the hub itself.
func NewHub(opts Options) *Hub {
	opts = opts.withDefaults()

	h := &Hub{
		sweepInterval: opts.SweepInterval,
		conns:         make(map[string]Conn),
		register:      make(chan Conn),
		unregister:    make(chan Conn),
		inbound:       make(chan delivery, 64),
		calls:         make(chan func(*Dispatcher)),
		done:          make(chan struct{}),
	}

	opts.Sender = h
	h.dispatcher = New(opts)

	return h
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.conns {
				c.Close()
			}
			clear(h.conns)

			return
		case c := <-h.register:
			h.conns[c.ID()] = c
			h.dispatcher.logf("SERVE: Registered connection %s", c.ID())
		case c := <-h.unregister:
			if current, ok := h.conns[c.ID()]; ok && current == c {
				h.drop(c)
			}
		case d := <-h.inbound:
			if _, ok := h.conns[d.connectionID]; ok {
				h.dispatcher.Handle(d.connectionID, d.env)
			}
		case fn := <-h.calls:
			fn(h.dispatcher)
		case <-ticker.C:
			h.dispatcher.Sweep()
		}

		h.settle()
	}
}

// Register hands a new connection to the hub. It reports false once the hub
// has stopped.
func (h *Hub) Register(c Conn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister closes c and marks its member as away.
func (h *Hub) Unregister(c Conn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Deliver queues an inbound message from connectionID.
func (h *Hub) Deliver(connectionID string, env Envelope) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.inbound <- delivery{connectionID: connectionID, env: env}:
		return true
	case <-h.done:
		return false
	}
}

// Do runs fn on the hub goroutine and waits for it to return.
func (h *Hub) Do(ctx context.Context, fn func(*Dispatcher)) error {
	ran := make(chan struct{})

	select {
	case h.calls <- func(d *Dispatcher) {
		defer close(ran)
		fn(d)
	}:
	case <-h.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ran

	return nil
}

// Send encodes msg and queues it on the connection. A connection whose
// buffer is full is dropped. Send must only be called from the hub
// goroutine, which is where the Dispatcher runs.
func (h *Hub) Send(connectionID string, msg Message) bool {
	c, ok := h.conns[connectionID]
	if !ok {
		return false
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		h.dispatcher.logf("ERROR: Encoding %s for %s: %v", msg.Type, connectionID, err)

		return false
	}

	if c.Send(frame) {
		return true
	}

	h.dispatcher.logf("SERVE: Dropping slow connection %s", connectionID)
	h.drop(c)

	return false
}

// Reject answers a message the transport refused before it reached the hub,
// such as one over the rate limit.
func (h *Hub) Reject(c Conn, code, message string) bool {
	frame, err := json.Marshal(Message{Type: TypeError, Payload: ErrorPayload{Code: code, Message: message}})
	if err != nil {
		return false
	}

	return c.Send(frame)
}

func (h *Hub) drop(c Conn) {
	delete(h.conns, c.ID())
	c.Close()
	h.dropped = append(h.dropped, c.ID())
}

// settle disconnects connections dropped while handling the last event.
// Disconnects broadcast, which can drop further connections, so this loops
// until nothing is left.
func (h *Hub) settle() {
	for len(h.dropped) > 0 {
		id := h.dropped[0]
		h.dropped = h.dropped[1:]

		h.dispatcher.Disconnect(id)
	}

	h.dispatcher.recorder.SetConnections(len(h.conns))
}
