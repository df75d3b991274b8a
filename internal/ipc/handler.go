// Package ipc provides the HTTP API for the toolpath planning core.
package ipc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/gcode"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/plan"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/pool"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/store"
)

// tierHeader selects the elevated payload ceiling for trusted callers.
const tierHeader = "X-Resource-Tier"

// Handler holds all dependencies for the HTTP handlers.
type Handler struct {
	Guard     *safety.Guard
	Planner   *plan.Planner
	Simulator *gcode.Simulator
	Pool      *pool.Pool
	DB        *sql.DB
	RunRepo   *store.RunRepo
	IssueRepo *store.IssueRepo
}

// PlanResponse is the body for POST /api/v1/plan.
type PlanResponse struct {
	RunID    string                `json:"run_id"`
	Moves    []domain.ToolpathMove `json:"moves"`
	Program  string                `json:"program"`
	Stats    domain.PlanStats      `json:"stats"`
	Warnings []string              `json:"warnings,omitempty"`
}

// SimResponse is the body for POST /api/v1/simulate.
type SimResponse struct {
	RunID   string                   `json:"run_id"`
	Moves   []domain.ToolpathMove    `json:"moves"`
	Issues  []domain.SimulationIssue `json:"issues"`
	Summary domain.SimSummary        `json:"summary"`
}

// APIError is a structured error response.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Plan handles POST /api/v1/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req domain.PlanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}
	if err := h.Guard.CheckLoops(req.Loops); err != nil {
		writeError(w, err)
		return
	}

	started := time.Now()
	var res *domain.PlanResult
	err = h.Pool.Run(r.Context(), func(ctx context.Context) error {
		out, err := safety.RunWithTimeout(ctx, h.budget(), func(ctx context.Context) (*domain.PlanResult, error) {
			return h.Planner.Plan(ctx, req)
		})
		res = out
		return err
	})

	runID := newRunID()
	if err != nil {
		h.record(r.Context(), domain.RunRecord{
			RunID: runID, Kind: domain.RunPlan, Status: "error",
			DurationMS: time.Since(started).Milliseconds(), CreatedAt: time.Now().Unix(),
		}, nil)
		writeError(w, err)
		return
	}

	h.record(r.Context(), domain.RunRecord{
		RunID:        runID,
		Kind:         domain.RunPlan,
		Status:       "ok",
		MoveCount:    res.Stats.MoveCount,
		PathLengthMM: res.Stats.PathLengthMM,
		EstTimeSec:   res.Stats.EstimatedTimeSec,
		DurationMS:   time.Since(started).Milliseconds(),
		CreatedAt:    time.Now().Unix(),
	}, nil)

	writeJSON(w, http.StatusOK, PlanResponse{
		RunID:    runID,
		Moves:    res.Moves,
		Program:  res.Program,
		Stats:    res.Stats,
		Warnings: res.Warnings,
	})
}

// Simulate handles POST /api/v1/simulate.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	body, err := h.readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req domain.SimRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Code: 400, Message: "invalid request body"})
		return
	}

	started := time.Now()
	var res *domain.SimResult
	err = h.Pool.Run(r.Context(), func(ctx context.Context) error {
		out, err := safety.RunWithTimeout(ctx, h.budget(), func(ctx context.Context) (*domain.SimResult, error) {
			return h.Simulator.Simulate(ctx, req)
		})
		res = out
		return err
	})

	runID := newRunID()
	if err != nil {
		h.record(r.Context(), domain.RunRecord{
			RunID: runID, Kind: domain.RunSimulate, Status: "error",
			DurationMS: time.Since(started).Milliseconds(), CreatedAt: time.Now().Unix(),
		}, nil)
		writeError(w, err)
		return
	}

	h.record(r.Context(), domain.RunRecord{
		RunID:        runID,
		Kind:         domain.RunSimulate,
		Status:       "ok",
		MoveCount:    res.Summary.MoveCount,
		EstTimeSec:   res.Summary.EstimatedTimeSec,
		ErrorCount:   res.Summary.ErrorCount,
		WarningCount: res.Summary.WarningCount,
		DurationMS:   time.Since(started).Milliseconds(),
		CreatedAt:    time.Now().Unix(),
	}, res.Issues)

	writeJSON(w, http.StatusOK, SimResponse{
		RunID:   runID,
		Moves:   res.Moves,
		Issues:  res.Issues,
		Summary: res.Summary,
	})
}

// ListRuns handles GET /api/v1/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			limit = parsed
		}
	}

	runs, err := h.RunRepo.List(r.Context(), h.DB, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{runID}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	rec, err := h.RunRepo.Get(r.Context(), h.DB, runID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListRunIssues handles GET /api/v1/runs/{runID}/issues.
func (h *Handler) ListRunIssues(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	if _, err := h.RunRepo.Get(r.Context(), h.DB, runID); err != nil {
		writeError(w, err)
		return
	}

	issues, err := h.IssueRepo.ListByRun(r.Context(), h.DB, runID)
	if err != nil {
		writeError(w, err)
		return
	}
	if issues == nil {
		issues = []domain.SimulationIssue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// readBody reads the request body under the tier's payload ceiling. The
// Content-Length check happens before any read; MaxBytesReader backstops
// chunked bodies that declare no length.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	tier := safety.TierStandard
	ceiling := h.Guard.Limits.MaxBytesStandard
	if r.Header.Get(tierHeader) == "elevated" {
		tier = safety.TierElevated
		ceiling = h.Guard.Limits.MaxBytesElevated
	}

	if r.ContentLength > 0 {
		if err := h.Guard.CheckPayloadSize(int(r.ContentLength), tier); err != nil {
			return nil, err
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, int64(ceiling)+1)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, domain.ErrPayloadTooLarge
		}
		return nil, err
	}
	if err := h.Guard.CheckPayloadSize(len(body), tier); err != nil {
		return nil, err
	}
	return body, nil
}

// budget returns the per-task wall-clock budget from the configured limits.
func (h *Handler) budget() time.Duration {
	sec := h.Guard.Limits.TimeoutSec
	if sec <= 0 {
		sec = 20
	}
	return time.Duration(sec * float64(time.Second))
}

// record stores run history best-effort: a history write failure never
// fails the request that produced the result.
func (h *Handler) record(ctx context.Context, rec domain.RunRecord, issues []domain.SimulationIssue) {
	if h.DB == nil || h.RunRepo == nil {
		return
	}
	if err := h.RunRepo.Insert(ctx, h.DB, rec); err != nil {
		return
	}
	if h.IssueRepo != nil && len(issues) > 0 {
		_ = h.IssueRepo.InsertAll(ctx, h.DB, rec.RunID, issues)
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if coreErr, ok := err.(*domain.CoreError); ok {
		status := http.StatusInternalServerError
		switch coreErr.Code {
		case domain.ErrPayloadTooLarge.Code, domain.ErrTooManyEntities.Code:
			status = http.StatusRequestEntityTooLarge
		case domain.ErrEmptyInput.Code, domain.ErrUnknownUnits.Code,
			domain.ErrBadRequestParams.Code, domain.ErrUnknownStrategy.Code:
			status = http.StatusBadRequest
		case domain.ErrDegenerateLoop.Code, domain.ErrZeroAreaLoop.Code,
			domain.ErrNonFiniteCoord.Code, domain.ErrNoBoundary.Code,
			domain.ErrIslandOutside.Code, domain.ErrRingIntegrity.Code,
			domain.ErrTraversalDepth.Code, domain.ErrTraversalBudget.Code:
			status = http.StatusUnprocessableEntity
		case domain.ErrRunNotFound.Code:
			status = http.StatusNotFound
		case domain.ErrPoolSaturated.Code:
			status = http.StatusTooManyRequests
		case domain.ErrOperationTimeout.Code:
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, APIError{Code: coreErr.Code, Message: coreErr.Message})
		return
	}
	writeJSON(w, http.StatusInternalServerError, APIError{Code: -1, Message: err.Error()})
}
