package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/salama-app/salama/internal/config"
	"github.com/salama-app/salama/internal/contact"
	"github.com/salama-app/salama/internal/incident"
	recmock "github.com/salama-app/salama/pkg/recognizer/mock"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Storage.IncidentsPath = filepath.Join(dir, "incidents.json")
	cfg.Storage.ContactsPath = filepath.Join(dir, "contacts.json")
	return cfg
}

func newTestApp(t *testing.T) (*App, *recmock.Provider) {
	t.Helper()
	provider := &recmock.Provider{Session: recmock.NewSession()}
	a, err := New(testConfig(t), Deps{Recognizer: provider})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		a.engine.Stop()
		_ = a.incidents.Close()
	})
	return a, provider
}

func TestNew_RequiresRecognizer(t *testing.T) {
	t.Parallel()
	if _, err := New(testConfig(t), Deps{}); err == nil {
		t.Fatal("New without recognizer should fail")
	}
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)
	mux := a.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var st statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != "idle" {
		t.Errorf("state = %q, want idle", st.State)
	}
	if st.Language != "en" {
		t.Errorf("language = %q, want en", st.Language)
	}
	if st.Online {
		t.Error("no collector configured, online must be false")
	}
	if st.Pending != 0 {
		t.Errorf("pending = %d, want 0", st.Pending)
	}
}

func TestToggleEndpoint(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)
	mux := a.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/listen/toggle", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle = %d (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["state"] != "listening" {
		t.Fatalf("state after toggle = %q, want listening", body["state"])
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/listen/toggle", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("second toggle = %d", rec.Code)
	}
}

func TestIncidentEndpoints(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)
	mux := a.routes()

	if _, err := a.incidents.Append(context.Background(), incident.Incident{Type: incident.TypeEmergency}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/incidents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var list []incident.Incident
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].Type != incident.TypeEmergency {
		t.Fatalf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/incidents", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d", rec.Code)
	}
	pending, err := a.incidents.PendingCount(context.Background())
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending after clear = %d", pending)
	}
}

func TestFlushWithoutCollector(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/flush", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("flush without collector = %d, want 503", rec.Code)
	}
}

func TestContactEndpoints(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)
	mux := a.routes()

	body := `{"name":"Amina","phone":"+254712345678","relationship":"sister","is_primary":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add = %d (%s)", rec.Code, rec.Body.String())
	}
	var added contact.Contact
	if err := json.NewDecoder(rec.Body).Decode(&added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if added.ID == "" {
		t.Fatal("added contact has no ID")
	}

	// Invalid phone is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/contacts", strings.NewReader(`{"name":"X","phone":"0712345678"}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad phone = %d, want 422", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contacts", nil))
	var list []contact.Contact
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list has %d contacts, want 1", len(list))
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/contacts/"+added.ID, nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/contacts/"+added.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing = %d, want 404", rec.Code)
	}
}
