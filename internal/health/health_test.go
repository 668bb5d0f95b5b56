package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type sessions int

func (s sessions) Len() int { return int(s) }

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	if rec := get(t, New(pinger{}, nil), "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthy store: code %d", rec.Code)
	}
	if rec := get(t, New(pinger{err: errors.New("down")}, nil), "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failing store: code %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	rec := get(t, New(pinger{}, sessions(3)), "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	var st Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.ActiveSessions != 3 || st.Build.Version == "" {
		t.Fatalf("stats = %+v", st)
	}
}
