package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/freeeve/warfront/internal/logger"
	"github.com/freeeve/warfront/internal/service"
)

const maxScenarioBytes = 8 << 20

// RunHandler serves the run and turn endpoints.
type RunHandler struct {
	runs     *service.RunService
	autoplay *service.AutoPlayer
}

// NewRunHandler creates a RunHandler. A nil autoplay disables its endpoint.
func NewRunHandler(runs *service.RunService, autoplay *service.AutoPlayer) *RunHandler {
	return &RunHandler{runs: runs, autoplay: autoplay}
}

// Register mounts the run routes on mux under /api/v1.
func (h *RunHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/state", h.GetState)
	mux.HandleFunc("POST /api/v1/runs/{id}/turns", h.PlayTurn)
	mux.HandleFunc("GET /api/v1/runs/{id}/turns", h.ListTurns)
	mux.HandleFunc("GET /api/v1/runs/{id}/turns/{turn}/battles", h.ListBattles)
	mux.HandleFunc("POST /api/v1/runs/{id}/og-requests/drain", h.DrainOGRequests)
	mux.HandleFunc("POST /api/v1/runs/{id}/autoplay", h.Autoplay)
}

type createRunRequest struct {
	Name     string `json:"name"`
	Scenario string `json:"scenario"` // YAML document
}

// CreateRun handles POST /api/v1/runs. The body is either JSON carrying
// the scenario YAML as a string, or the YAML itself with a yaml content
// type and the name in ?name=.
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxScenarioBytes)

	var req createRunRequest
	if isYAML(r.Header.Get("Content-Type")) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable body")
			return
		}
		req = createRunRequest{Name: r.URL.Query().Get("name"), Scenario: string(body)}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Scenario == "" {
		writeError(w, http.StatusBadRequest, "scenario is required")
		return
	}

	run, err := h.runs.CreateRun(r.Context(), req.Name, []byte(req.Scenario))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListRuns handles GET /api/v1/runs.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.ListRuns(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetState handles GET /api/v1/runs/{id}/state.
func (h *RunHandler) GetState(w http.ResponseWriter, r *http.Request) {
	st, err := h.runs.GetState(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type playTurnRequest struct {
	// Orders maps formation id to target settlement.
	Orders map[string]string `json:"orders"`
}

// PlayTurn handles POST /api/v1/runs/{id}/turns. An empty body plays the
// scripted orders only.
func (h *RunHandler) PlayTurn(w http.ResponseWriter, r *http.Request) {
	var req playTurnRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	turn, err := h.runs.PlayTurn(r.Context(), r.PathValue("id"), req.Orders)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turn)
}

// ListTurns handles GET /api/v1/runs/{id}/turns.
func (h *RunHandler) ListTurns(w http.ResponseWriter, r *http.Request) {
	turns, err := h.runs.ListTurns(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

// ListBattles handles GET /api/v1/runs/{id}/turns/{turn}/battles.
func (h *RunHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	turn, err := strconv.Atoi(r.PathValue("turn"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "turn must be an integer")
		return
	}
	battles, err := h.runs.ListBattles(r.Context(), r.PathValue("id"), turn)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battles)
}

// DrainOGRequests handles POST /api/v1/runs/{id}/og-requests/drain.
func (h *RunHandler) DrainOGRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.runs.DrainOGRequests(r.Context(), r.PathValue("id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

type autoplayRequest struct {
	Turns int `json:"turns"`
}

// Autoplay handles POST /api/v1/runs/{id}/autoplay. Zero turns cancels.
func (h *RunHandler) Autoplay(w http.ResponseWriter, r *http.Request) {
	if h.autoplay == nil {
		writeError(w, http.StatusNotFound, "autoplay is disabled")
		return
	}
	var req autoplayRequest
	if err := decodeJSON(r, &req); err != nil || req.Turns < 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := r.PathValue("id")
	if _, err := h.runs.GetRun(r.Context(), id); err != nil {
		h.serviceError(w, r, err)
		return
	}
	h.autoplay.Enable(id, req.Turns)
	writeJSON(w, http.StatusOK, map[string]int{"remaining": h.autoplay.Remaining(id)})
}

func (h *RunHandler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidScenario), errors.Is(err, service.ErrInvalidTurn):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		reqLog := logger.ForRequest(r.Context())
		reqLog.Error().Err(err).Str("runId", r.PathValue("id")).Msg("Run request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isYAML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}
