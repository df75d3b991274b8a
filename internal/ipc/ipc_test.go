package ipc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/gcode"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/plan"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/pool"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/safety"
	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/store"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := config.Default()
	return newTestHandlerWith(t, cfg)
}

func newTestHandlerWith(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("create db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	limits := cfg.SafetyLimits()
	return &Handler{
		Guard:     safety.NewGuard(limits),
		Planner:   plan.New(cfg.Planner, cfg.Machine, limits),
		Simulator: gcode.NewSimulator(cfg.Machine),
		Pool:      pool.New(cfg.WorkerCount),
		DB:        db,
		RunRepo:   &store.RunRepo{},
		IssueRepo: &store.IssueRepo{},
	}
}

func planBody() string {
	return `{
		"loops": [{"role": "boundary", "points": [
			{"x": 0, "y": 0}, {"x": 100, "y": 0}, {"x": 100, "y": 60}, {"x": 0, "y": 60}
		]}],
		"units": "mm",
		"tool_diameter": 6,
		"stepover_fraction": 0.4,
		"strategy": "spiral",
		"feed_xy": 600,
		"cut_depth": -1,
		"safe_height": 5
	}`
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestPlan_Success(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(planBody()))
	w := httptest.NewRecorder()

	h.Plan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res PlanResponse
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.RunID == "" {
		t.Error("response has no run_id")
	}
	if res.Stats.RingCount != 12 {
		t.Errorf("ring count = %d, want 12", res.Stats.RingCount)
	}
	if len(res.Moves) == 0 || res.Program == "" {
		t.Error("response missing moves or program")
	}
}

func TestPlan_RecordsRunHistory(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(planBody()))
	w := httptest.NewRecorder()
	h.Plan(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("plan failed: %d", w.Code)
	}
	var res PlanResponse
	json.NewDecoder(w.Body).Decode(&res)

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	listW := httptest.NewRecorder()
	h.ListRuns(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("list runs: %d", listW.Code)
	}
	var runs []domain.RunRecord
	json.NewDecoder(listW.Body).Decode(&runs)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].RunID != res.RunID || runs[0].Kind != domain.RunPlan {
		t.Errorf("recorded run = %+v, want %s of kind plan", runs[0], res.RunID)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+res.RunID, nil)
	getReq.SetPathValue("runID", res.RunID)
	getW := httptest.NewRecorder()
	h.GetRun(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Errorf("get run: expected 200, got %d", getW.Code)
	}
}

func TestPlan_InvalidBody(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	h.Plan(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestPlan_EmptyGeometry(t *testing.T) {
	h := newTestHandler(t)
	body := `{"loops": [], "tool_diameter": 6, "stepover_fraction": 0.4, "feed_xy": 600, "cut_depth": -1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Plan(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	var apiErr APIError
	json.NewDecoder(w.Body).Decode(&apiErr)
	if apiErr.Code != domain.ErrEmptyInput.Code {
		t.Errorf("error code = %d, want %d", apiErr.Code, domain.ErrEmptyInput.Code)
	}
}

func TestPlan_DegenerateLoop(t *testing.T) {
	h := newTestHandler(t)
	body := `{
		"loops": [{"role": "boundary", "points": [{"x": 0, "y": 0}, {"x": 10, "y": 0}]}],
		"tool_diameter": 6, "stepover_fraction": 0.4, "feed_xy": 600, "cut_depth": -1
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Plan(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlan_UnknownStrategy(t *testing.T) {
	h := newTestHandler(t)
	body := strings.Replace(planBody(), `"spiral"`, `"zigzag"`, 1)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Plan(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlan_PayloadCeilingByTier(t *testing.T) {
	cfg := config.Default()
	cfg.Limits.MaxBytesStandard = 64
	cfg.Limits.MaxBytesElevated = 1 << 20
	h := newTestHandlerWith(t, cfg)

	// Over the standard ceiling.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(planBody()))
	w := httptest.NewRecorder()
	h.Plan(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("standard tier: expected 413, got %d", w.Code)
	}

	// The same body passes under the elevated ceiling.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/plan", bytes.NewBufferString(planBody()))
	req.Header.Set(tierHeader, "elevated")
	w = httptest.NewRecorder()
	h.Plan(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("elevated tier: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSimulate_IssuesPersisted(t *testing.T) {
	h := newTestHandler(t)
	program := "G21\\nG90\\nM3\\nG0 Z5\\nG1 X20 Y20 Z-5 F300\\nM5"
	body := `{"program_text": "` + program + `", "safe_height": 5, "nominal_feed_xy": 600}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Simulate(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res SimResponse
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("expected 1 issue, got %d: %+v", len(res.Issues), res.Issues)
	}
	if res.Issues[0].Kind != domain.IssueBelowSafeHeight {
		t.Errorf("issue kind = %s, want %s", res.Issues[0].Kind, domain.IssueBelowSafeHeight)
	}

	issReq := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+res.RunID+"/issues", nil)
	issReq.SetPathValue("runID", res.RunID)
	issW := httptest.NewRecorder()
	h.ListRunIssues(issW, issReq)
	if issW.Code != http.StatusOK {
		t.Fatalf("list issues: expected 200, got %d", issW.Code)
	}
	var stored []domain.SimulationIssue
	json.NewDecoder(issW.Body).Decode(&stored)
	if len(stored) != 1 {
		t.Errorf("persisted %d issues, want 1", len(stored))
	}
}

func TestSimulate_MalformedProgramStillSucceeds(t *testing.T) {
	h := newTestHandler(t)
	body := `{"program_text": "G1 X%%\\nG0 Z5", "safe_height": 5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simulate", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Simulate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("malformed program content must not fail the request: got %d", w.Code)
	}
	var res SimResponse
	json.NewDecoder(w.Body).Decode(&res)
	if len(res.Issues) == 0 {
		t.Error("expected a malformed-line issue")
	}
}

func TestGetRun_NotFound(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil)
	req.SetPathValue("runID", "nope")
	w := httptest.NewRecorder()

	h.GetRun(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListRuns_Empty(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	w := httptest.NewRecorder()

	h.ListRuns(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var runs []domain.RunRecord
	if err := json.NewDecoder(w.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
