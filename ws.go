/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/time/rate"

	"github.com/Seednode/imposterbox/dispatch"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// peer is one client connection as seen by the hub. The hub goroutine sends
// and closes; the transport goroutines drain send and may Reject through it,
// so both paths go through mu.
type peer struct {
	id string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newPeer() *peer {
	return &peer{
		id:   uuid.NewString(),
		send: make(chan []byte, sendBuffer),
	}
}

func (p *peer) ID() string {
	return p.id
}

func (p *peer) Send(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}

	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *peer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.send)
}

func newLimiter(cfg *Config) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.rateLimit), cfg.rateBurst)
}

// receive hands one inbound frame to the hub. It reports false once the
// connection should stop reading.
func (p *peer) receive(hub *dispatch.Hub, limiter *rate.Limiter, data []byte) bool {
	if !limiter.Allow() {
		return hub.Reject(p, "request.rate_limited", "too many messages, slow down")
	}

	var env dispatch.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return hub.Reject(p, "request.invalid", "malformed message")
	}

	return hub.Deliver(p.id, env)
}

func (p *peer) readPump(cfg *Config, hub *dispatch.Hub, conn *websocket.Conn) {
	defer func() {
		hub.Unregister(p)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := newLimiter(cfg)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "SERVE: Websocket %s closed: %v", p.id, err)
			}

			return
		}

		if !p.receive(hub, limiter, data) {
			return
		}
	}
}

func (p *peer) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})

				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveWebsocket(cfg *Config, hub *dispatch.Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrading connection from %s: %v", realIP(r), err)

			return
		}

		p := newPeer()
		if !hub.Register(p) {
			_ = conn.Close()

			return
		}

		logf(cfg, "SERVE: Websocket %s opened by %s", p.id, realIP(r))

		go p.writePump(conn)
		p.readPump(cfg, hub, conn)
	}
}
