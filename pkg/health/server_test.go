package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
}

func TestReadyEndpointPassesWithoutChecks(t *testing.T) {
	s := NewServer("127.0.0.1:0")

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyEndpointReportsFailures(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.RegisterCheck("transcript", func() error { return nil })
	s.RegisterCheck("provider", func() error { return errors.New("no API key") })

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	failures, ok := body["failures"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "no API key", failures["provider"])
}

func TestExtraRoutes(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	s.Handle("/ws", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestListenAddr(t *testing.T) {
	require.Equal(t, "0.0.0.0:8000", ListenAddr("0.0.0.0", 8000))
}
