/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Seednode/imposterbox/dispatch"
	"github.com/Seednode/imposterbox/rooms"
)

const qrSize = 320

func requestScheme(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	return scheme
}

// joinURL is the address encoded into a room's QR code.
func joinURL(cfg *Config, r *http.Request, code string) string {
	u := url.URL{
		Scheme:   requestScheme(r),
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"room": {code}}.Encode(),
	}

	return u.String()
}

func serveRoomQR(cfg *Config, hub *dispatch.Hub, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := rooms.NormalizeCode(ps.ByName("code"))

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var exists bool
		if err := hub.Do(ctx, func(d *dispatch.Dispatcher) {
			exists = d.RoomExists(code)
		}); err != nil {
			http.Error(w, "server unavailable", http.StatusServiceUnavailable)

			return
		}

		if !exists {
			http.Error(w, "room not found", http.StatusNotFound)

			return
		}

		png, err := qrcode.Encode(joinURL(cfg, r, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: QR code for room %s to %s", code, realIP(r))
	}
}
