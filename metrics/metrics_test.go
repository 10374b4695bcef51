/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}

	t.Fatalf("metric %s not found", name)

	return nil
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}

	return ""
}

func TestRecordMessage_CountsByType(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMessage("ping")
	c.RecordMessage("ping")
	c.RecordMessage("login")

	counts := map[string]float64{}
	for _, m := range gather(t, reg, "imposterbox_messages_total") {
		counts[label(m, "type")] = m.GetCounter().GetValue()
	}

	req.Equal(map[string]float64{"ping": 2, "login": 1}, counts)
}

func TestRecordError_CountsByCode(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordError("room.full")

	metrics := gather(t, reg, "imposterbox_errors_total")
	req.Len(metrics, 1)
	req.Equal("room.full", label(metrics[0], "code"))
	req.Equal(1.0, metrics[0].GetCounter().GetValue())
}

func TestGames_CountsStartedAndFinished(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGameStarted("codenames")
	c.RecordGameStarted("codenames")
	c.RecordGameFinished("codenames")

	req.Equal(2.0, gather(t, reg, "imposterbox_games_started_total")[0].GetCounter().GetValue())
	req.Equal(1.0, gather(t, reg, "imposterbox_games_finished_total")[0].GetCounter().GetValue())
}

func TestSetPopulation_SetsGauges(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetPopulation(3, 7)
	c.SetConnections(5)
	c.SetPopulation(2, 7)

	req.Equal(2.0, gather(t, reg, "imposterbox_rooms")[0].GetGauge().GetValue())
	req.Equal(7.0, gather(t, reg, "imposterbox_sessions")[0].GetGauge().GetValue())
	req.Equal(5.0, gather(t, reg, "imposterbox_connections")[0].GetGauge().GetValue())
}

func TestHandler_ServesMetrics(t *testing.T) {
	req := require.New(t)
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordMessage("join_room")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	req.Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Contains(string(body), `imposterbox_messages_total{type="join_room"} 1`)
}
