package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/salama-app/salama/internal/incident"
)

// fakeStore keeps incidents in a map and mimics ON CONFLICT DO NOTHING.
type fakeStore struct {
	mu        sync.Mutex
	incidents map[string]incident.Incident
	insertErr error
	pingErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{incidents: make(map[string]incident.Incident)}
}

func (s *fakeStore) Insert(ctx context.Context, inc incident.Incident) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.incidents[inc.ID]; ok {
		return false, nil
	}
	s.incidents[inc.ID] = inc
	return true, nil
}

func (s *fakeStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.incidents)
}

const incidentJSON = `{
	"id": "inc-1",
	"timestamp": "2026-08-30T12:00:00Z",
	"type": "emergency",
	"danger_words": ["mauaji yametokea"]
}`

func postIncident(t *testing.T, mux http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/incidents", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIntake_AcceptsIncident(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	mux := NewAPI(store).Routes()

	rec := postIncident(t, mux, incidentJSON)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusAccepted, rec.Body.String())
	}
	if store.count() != 1 {
		t.Fatalf("stored %d incidents, want 1", store.count())
	}

	got := store.incidents["inc-1"]
	if got.Type != incident.TypeEmergency {
		t.Errorf("type = %q, want emergency", got.Type)
	}
	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, want)
	}
}

func TestIntake_DuplicateIsAcknowledged(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	mux := NewAPI(store).Routes()

	for range 3 {
		rec := postIncident(t, mux, incidentJSON)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
		}
	}
	if store.count() != 1 {
		t.Fatalf("stored %d incidents, want 1 after redelivery", store.count())
	}
}

func TestIntake_RejectsBadPayloads(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "not json", body: "nope", wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"id":"x","bogus":1}`, wantStatus: http.StatusBadRequest},
		{name: "missing id", body: `{"timestamp":"2026-08-30T12:00:00Z","type":"safe"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad type", body: `{"id":"x","timestamp":"2026-08-30T12:00:00Z","type":"panic"}`, wantStatus: http.StatusUnprocessableEntity},
		{name: "zero timestamp", body: `{"id":"x","type":"safe"}`, wantStatus: http.StatusUnprocessableEntity},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newFakeStore()
			rec := postIncident(t, NewAPI(store).Routes(), tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if store.count() != 0 {
				t.Fatal("rejected payload must not be stored")
			}
		})
	}
}

func TestIntake_StorageFailure(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.insertErr = errors.New("connection reset")
	rec := postIncident(t, NewAPI(store).Routes(), incidentJSON)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRoutes_Health(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	mux := NewAPI(store).Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}

	store.pingErr = errors.New("db down")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with dead db = %d, want 503", rec.Code)
	}
}
