package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/salama-app/salama/internal/contact"
	"github.com/salama-app/salama/internal/incident"
)

// maxAPIBody bounds UI request bodies; contacts are the largest payload.
const maxAPIBody = 16 << 10

// statusResponse is the daemon snapshot the UI polls.
type statusResponse struct {
	State    string `json:"state"`
	Language string `json:"language"`
	Online   bool   `json:"online"`
	Pending  int    `json:"pending"`
}

// registerAPI adds the UI endpoints to mux.
func (a *App) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("POST /api/listen/toggle", a.handleToggle)
	mux.HandleFunc("GET /api/incidents", a.handleIncidentList)
	mux.HandleFunc("DELETE /api/incidents", a.handleIncidentClear)
	mux.HandleFunc("POST /api/sync/flush", a.handleFlush)
	mux.HandleFunc("GET /api/contacts", a.handleContactList)
	mux.HandleFunc("POST /api/contacts", a.handleContactAdd)
	mux.HandleFunc("PUT /api/contacts/{id}", a.handleContactUpdate)
	mux.HandleFunc("DELETE /api/contacts/{id}", a.handleContactDelete)
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := a.incidents.PendingCount(r.Context())
	if err != nil {
		apiError(w, http.StatusInternalServerError, err)
		return
	}
	online := false
	if a.coord != nil {
		online = a.coord.Online()
	}
	apiJSON(w, http.StatusOK, statusResponse{
		State:    a.engine.State().String(),
		Language: string(a.engine.Language()),
		Online:   online,
		Pending:  pending,
	})
}

func (a *App) handleToggle(w http.ResponseWriter, r *http.Request) {
	// Toggle runs against the background context: the listening session
	// must outlive this request.
	if err := a.engine.Toggle(context.WithoutCancel(r.Context())); err != nil {
		apiError(w, http.StatusConflict, err)
		return
	}
	apiJSON(w, http.StatusOK, map[string]string{"state": a.engine.State().String()})
}

func (a *App) handleIncidentList(w http.ResponseWriter, r *http.Request) {
	queued, err := a.incidents.Drain(r.Context())
	if err != nil {
		apiError(w, http.StatusInternalServerError, err)
		return
	}
	if queued == nil {
		queued = []incident.Incident{}
	}
	apiJSON(w, http.StatusOK, queued)
}

func (a *App) handleIncidentClear(w http.ResponseWriter, r *http.Request) {
	if err := a.incidents.ClearAll(r.Context()); err != nil {
		apiError(w, http.StatusInternalServerError, err)
		return
	}
	a.reportPending(0)
	slog.Info("app: incident queue cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleFlush(w http.ResponseWriter, r *http.Request) {
	if a.coord == nil {
		apiError(w, http.StatusServiceUnavailable, errors.New("no collector configured"))
		return
	}
	res, err := a.coord.Flush(r.Context())
	if err != nil {
		apiError(w, http.StatusInternalServerError, err)
		return
	}
	apiJSON(w, http.StatusOK, res)
}

func (a *App) handleContactList(w http.ResponseWriter, r *http.Request) {
	list, err := a.contacts.List(r.Context())
	if err != nil {
		apiError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []contact.Contact{}
	}
	apiJSON(w, http.StatusOK, list)
}

func (a *App) handleContactAdd(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeContact(w, r)
	if !ok {
		return
	}
	added, err := a.contacts.Add(r.Context(), c)
	if err != nil {
		apiError(w, http.StatusUnprocessableEntity, err)
		return
	}
	apiJSON(w, http.StatusCreated, added)
}

func (a *App) handleContactUpdate(w http.ResponseWriter, r *http.Request) {
	c, ok := decodeContact(w, r)
	if !ok {
		return
	}
	c.ID = r.PathValue("id")
	if err := a.contacts.Update(r.Context(), c); err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, contact.ErrNotFound) {
			status = http.StatusNotFound
		}
		apiError(w, status, err)
		return
	}
	apiJSON(w, http.StatusOK, c)
}

func (a *App) handleContactDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.contacts.Delete(r.Context(), r.PathValue("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, contact.ErrNotFound) {
			status = http.StatusNotFound
		}
		apiError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeContact(w http.ResponseWriter, r *http.Request) (contact.Contact, bool) {
	var c contact.Contact
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		apiError(w, http.StatusBadRequest, errors.New("malformed contact"))
		return contact.Contact{}, false
	}
	return c, true
}

func apiJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("app: encode response", "error", err)
	}
}

func apiError(w http.ResponseWriter, status int, err error) {
	apiJSON(w, status, map[string]string{"error": err.Error()})
}
