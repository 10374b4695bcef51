/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/Seednode/imposterbox/dispatch"
)

// listenTCP opens the newline-delimited JSON listener and serves it until ctx
// is done.
func listenTCP(ctx context.Context, cfg *Config, hub *dispatch.Hub) error {
	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.tcpPort)))
	if err != nil {
		return err
	}

	logf(cfg, "SERVE: Listening on tcp://%s", ln.Addr())

	return serveTCP(ctx, cfg, hub, ln)
}

func serveTCP(ctx context.Context, cfg *Config, hub *dispatch.Hub, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		go handleStream(cfg, hub, conn)
	}
}

// handleStream reads one JSON envelope per line. Clients keep the connection
// open past pongWait by sending ping messages.
func handleStream(cfg *Config, hub *dispatch.Hub, conn net.Conn) {
	p := newPeer()
	if !hub.Register(p) {
		_ = conn.Close()

		return
	}

	logf(cfg, "SERVE: Stream %s opened by %s", p.id, conn.RemoteAddr())

	go p.writeStream(conn)

	defer func() {
		hub.Unregister(p)
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxMessageSize)

	limiter := newLimiter(cfg)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logf(cfg, "SERVE: Stream %s closed: %v", p.id, err)
			}

			return
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !p.receive(hub, limiter, line) {
			return
		}
	}
}

func (p *peer) writeStream(conn net.Conn) {
	defer conn.Close()

	w := bufio.NewWriter(conn)

	for frame := range p.send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

		if _, err := w.Write(frame); err != nil {
			return
		}

		if err := w.WriteByte('\n'); err != nil {
			return
		}

		if len(p.send) > 0 {
			continue
		}

		if err := w.Flush(); err != nil {
			return
		}
	}
}
