/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/imposterbox/dispatch"
	"github.com/Seednode/imposterbox/games"
)

func cspHome(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
}

func homeBody(cfg *Config) string {
	var body strings.Builder

	body.WriteString(fmt.Sprintf("<h1>imposterbox v%s</h1>", releaseVersion))
	body.WriteString(fmt.Sprintf("<p>Connect a websocket client to <code>%s/ws</code>", cfg.prefix))
	if cfg.tcpPort != 0 {
		body.WriteString(fmt.Sprintf(" or a newline-delimited JSON client to TCP port <code>%d</code>", cfg.tcpPort))
	}
	body.WriteString(".</p><p>Games:</p><ul>")
	for _, t := range games.Types() {
		body.WriteString(fmt.Sprintf("<li><code>%s</code></li>", t))
	}
	body.WriteString("</ul>")

	return body.String()
}

func serveHomePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		cspHome(w)

		written, err := io.WriteString(w, newPage("imposterbox", homeBody(cfg)))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Home page (%s) to %s in %s",
			humanize.Bytes(uint64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveHealthCheck reports Ok while the hub is answering, with the current
// room and session counts.
func serveHealthCheck(cfg *Config, hub *dispatch.Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var rooms, sessions int
		if err := hub.Do(ctx, func(d *dispatch.Dispatcher) {
			rooms, sessions = d.Population()
		}); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "Unavailable\n")

			return
		}

		_, err := fmt.Fprintf(w, "Ok\nrooms: %d\nsessions: %d\n", rooms, sessions)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
