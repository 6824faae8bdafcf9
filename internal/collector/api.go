package collector

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/salama-app/salama/internal/health"
	"github.com/salama-app/salama/internal/incident"
)

// maxIncidentBody bounds the intake request body. Incidents are small flat
// JSON objects; anything bigger is malformed or hostile.
const maxIncidentBody = 64 << 10

// API is the collector's HTTP surface.
type API struct {
	store Store
}

// NewAPI creates the collector API over store.
func NewAPI(store Store) *API {
	return &API{store: store}
}

// Routes returns a mux with the intake and health endpoints registered.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/incidents", a.handleIntake)
	health.New([]health.Checker{
		{Name: "database", Check: a.store.Ping},
	}).Register(mux)
	return mux
}

// handleIntake accepts one incident. Duplicates by ID are acknowledged with
// the same 202 as new incidents; the daemon only needs to know the incident
// is safe to drop from its queue.
func (a *API) handleIntake(w http.ResponseWriter, r *http.Request) {
	var inc incident.Incident
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIncidentBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&inc); err != nil {
		http.Error(w, "malformed incident", http.StatusBadRequest)
		return
	}
	if err := validateIncident(inc); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	inserted, err := a.store.Insert(r.Context(), inc)
	if err != nil {
		slog.Error("collector: insert failed", "incident_id", inc.ID, "error", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if inserted {
		slog.Info("collector: incident received",
			"incident_id", inc.ID, "type", inc.Type, "danger_words", len(inc.DangerWords))
	} else {
		slog.Debug("collector: duplicate incident ignored", "incident_id", inc.ID)
	}
	w.WriteHeader(http.StatusAccepted)
}

func validateIncident(inc incident.Incident) error {
	var errs []error
	if inc.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if !inc.Type.IsValid() {
		errs = append(errs, errors.New("type must be emergency or safe"))
	}
	if inc.Timestamp.IsZero() {
		errs = append(errs, errors.New("timestamp must be set"))
	}
	return errors.Join(errs...)
}
