package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthReportsProgress(t *testing.T) {
	s := NewServer(Config{Version: "test"})
	s.StartRun("power", 3)
	s.StateDone()
	s.StateDone()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "voter-power", body.Service)
	assert.Equal(t, "power", body.Mode)
	assert.Equal(t, 2, body.Completed)
	assert.Equal(t, 3, body.Total)
}

func TestReadyChecks(t *testing.T) {
	tests := []struct {
		name   string
		ready  bool
		db     DatabasePinger
		status int
	}{
		{"not ready", false, nil, http.StatusServiceUnavailable},
		{"ready without database", true, nil, http.StatusOK},
		{"ready with database", true, stubPinger{}, http.StatusOK},
		{"database down", true, stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(Config{DB: tt.db})
			s.SetReady(tt.ready)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.status, rec.Code)

			var body ReadyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.db != nil {
				assert.Contains(t, body.Checks, "database")
			}
		})
	}
}

func TestMetricsPathServed(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "voter_power_state_runs_total 1\n")
	})
	s := NewServer(Config{MetricsPath: "/stats", MetricsHandler: metrics})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "state_runs_total")
}

func TestStartAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer(Config{Port: 0})
	require.NoError(t, s.Start(ctx))
	require.NotEmpty(t, s.Addr())

	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.NoError(t, s.Shutdown())
}
