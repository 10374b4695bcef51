/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/imposterbox/dispatch"
	"github.com/Seednode/imposterbox/games"
	"github.com/Seednode/imposterbox/metrics"
)

type testServer struct {
	cfg *Config
	hub *dispatch.Hub
	srv *httptest.Server
}

func startServer(t *testing.T, mutate func(*Config)) *testServer {
	t.Helper()

	cfg := defaultConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	words := games.NewCatalog(map[string][][2]string{"animals": {{"dog", "wolf"}}})
	hub := newHub(cfg, words, metrics.NewCollector(reg))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	errs := make(chan error, 64)
	mux := httprouter.New()
	registerRoutes(cfg, mux, hub, reg, errs)

	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		cancel()
		<-stopped
		srv.Close()
	})

	return &testServer{cfg: cfg, hub: hub, srv: srv}
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(s.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()

	msg := dispatch.Message{Type: msgType, Payload: payload}
	require.NoError(t, conn.WriteJSON(msg))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) dispatch.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var env dispatch.Envelope
	require.NoError(t, conn.ReadJSON(&env))

	return env
}

func createRoomOver(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	req := require.New(t)

	sendJSON(t, conn, dispatch.TypeLogin, dispatch.LoginRequest{DisplayName: "Alice"})
	req.Equal(dispatch.TypeLoginSuccess, readEnvelope(t, conn).Type)

	sendJSON(t, conn, dispatch.TypeCreateRoom, dispatch.CreateRoomRequest{Name: "Friday"})
	env := readEnvelope(t, conn)
	req.Equal(dispatch.TypeRoomCreated, env.Type)

	var created dispatch.RoomPayload
	req.NoError(json.Unmarshal(env.Payload, &created))
	req.Equal("Friday", created.Room.Name)

	return created.Room.Code
}

func TestHealthCheck(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	resp, body := s.get(t, "/healthz")

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(string(body), "Ok")
	req.Contains(string(body), "rooms: 0")
	req.Equal("nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestVersionAndHome(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	resp, body := s.get(t, "/version")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("imposterbox v"+releaseVersion+"\n", string(body))

	resp, body = s.get(t, "/")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(string(body), "/ws")
	req.Contains(string(body), string(games.TypeCodenames))
}

func TestWebsocket_LoginAndCreateRoom(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	conn := s.dial(t)
	code := createRoomOver(t, conn)
	req.Len(code, 6)

	var exists bool
	req.NoError(s.hub.Do(context.Background(), func(d *dispatch.Dispatcher) {
		exists = d.RoomExists(code)
	}))
	req.True(exists)
}

func TestWebsocket_MalformedFrame(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	conn := s.dial(t)
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	env := readEnvelope(t, conn)
	req.Equal(dispatch.TypeError, env.Type)

	var payload dispatch.ErrorPayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal("request.invalid", payload.Code)
}

func TestWebsocket_RateLimited(t *testing.T) {
	req := require.New(t)
	s := startServer(t, func(c *Config) {
		c.rateLimit = 0.001
		c.rateBurst = 1
	})

	conn := s.dial(t)
	sendJSON(t, conn, dispatch.TypePing, nil)
	sendJSON(t, conn, dispatch.TypePing, nil)

	// The rejection skips the hub, so it may overtake the pong.
	types := []string{readEnvelope(t, conn).Type, readEnvelope(t, conn).Type}
	req.ElementsMatch([]string{dispatch.TypePong, dispatch.TypeError}, types)
}

func TestRoomQR(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	resp, _ := s.get(t, "/rooms/NOPE42/qr")
	req.Equal(http.StatusNotFound, resp.StatusCode)

	code := createRoomOver(t, s.dial(t))

	resp, body := s.get(t, "/rooms/"+strings.ToLower(code)+"/qr")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("image/png", resp.Header.Get("Content-Type"))
	req.True(bytes.HasPrefix(body, []byte("\x89PNG")))
}

func TestJoinURL(t *testing.T) {
	req := require.New(t)

	cfg := defaultConfig(t)
	cfg.prefix = "/party"

	r := httptest.NewRequest(http.MethodGet, "http://games.example/party/rooms/ABC234/qr", nil)
	req.Equal("http://games.example/party/?room=ABC234", joinURL(cfg, r, "ABC234"))

	r.Header.Set("X-Forwarded-Proto", "https")
	req.Equal("https://games.example/party/?room=ABC234", joinURL(cfg, r, "ABC234"))

	r.Header.Set("X-Forwarded-Proto", "gopher")
	req.Equal("http://games.example/party/?room=ABC234", joinURL(cfg, r, "ABC234"))
}

func TestMetricsEndpoint(t *testing.T) {
	req := require.New(t)
	s := startServer(t, nil)

	conn := s.dial(t)
	sendJSON(t, conn, dispatch.TypePing, nil)
	req.Equal(dispatch.TypePong, readEnvelope(t, conn).Type)

	resp, body := s.get(t, "/metrics")
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(string(body), `imposterbox_messages_total{type="ping"} 1`)
	req.Contains(string(body), "imposterbox_connections 1")
}

func TestProfileRoutesAreOptIn(t *testing.T) {
	req := require.New(t)

	resp, _ := startServer(t, nil).get(t, "/pprof/cmdline")
	req.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = startServer(t, func(c *Config) { c.profile = true }).get(t, "/pprof/cmdline")
	req.Equal(http.StatusOK, resp.StatusCode)
}
