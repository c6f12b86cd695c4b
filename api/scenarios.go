/*
scenarios.go - Demo scenario endpoints

PURPOSE:
  Lets the frontend reset the caller's scope into one of the demo data
  sets defined in the demo package.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "sample-data"}

NOTE:
  Loading a scenario resets the caller's scope. Only use in development/demo
  environments.

SEE ALSO:
  - demo/demo.go: scenario definitions and loaders
  - handlers.go: ResetData
*/
package api

import (
	"net/http"

	"github.com/warp/stock-master/demo"
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demo.Scenarios())
}

// GetCurrentScenario returns the scenario loaded in the caller's scope, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	userID, err := userFrom(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mu.Lock()
	current := h.currentScenario[userID]
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	s, _ := demo.Find(current)
	writeJSON(w, http.StatusOK, s)
}

// LoadScenario resets the caller's scope and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	if _, ok := demo.Find(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	inv, ok := h.inventory(w, r)
	if !ok {
		return
	}

	h.setScenario(r, "")
	if err := demo.Load(r.Context(), inv, req.ScenarioID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.setScenario(r, req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

func (h *Handler) setScenario(r *http.Request, id string) {
	userID, err := userFrom(r)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if id == "" {
		delete(h.currentScenario, userID)
		return
	}
	h.currentScenario[userID] = id
}
