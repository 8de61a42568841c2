package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/internal/broker"
	"gridbot/internal/config"
	"gridbot/internal/database"
	"gridbot/internal/grid"
	"gridbot/internal/notify"
)

func newTestServer(t *testing.T, runToken string) (*Server, *broker.PaperClient) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	repo, err := database.NewSQLiteRepository(filepath.Join(t.TempDir(), "lots.db"))
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	require.NoError(t, repo.Migrate(context.Background()))

	paper := broker.NewPaperClient()
	cfg := &config.Config{
		Trading: config.TradingConfig{Enabled: true, PaperMode: true, RunToken: runToken},
		Symbols: map[string]config.SymbolConfig{
			"GLD": {LowerBand: 380, UpperBand: 430, GridPct: 0.006, OrderUSD: 500, MaxCapital: 10000},
		},
	}
	orch := grid.NewOrchestrator(logger, repo, paper,
		grid.NewReconciler(logger, paper, notify.Nop{}),
		grid.NewEngine(logger, paper, notify.Nop{}, cfg.Trading),
		cfg)
	return NewServer(logger, orch, runToken, 0), paper
}

func TestRunEndpoint_Unauthorized(t *testing.T) {
	s, _ := newTestServer(t, "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/run", nil)
	req.Header.Set("X-Run-Token", "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRunEndpoint_RunsCycle(t *testing.T) {
	s, paper := newTestServer(t, "sekrit")
	paper.SetPrice("GLD", 400)

	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	req.Header.Set("X-Run-Token", "sekrit")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report grid.CycleReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, grid.OutcomeOK, report.Outcome)
	require.Len(t, report.Symbols, 1)
	assert.Equal(t, "GLD", report.Symbols[0].Symbol)
	assert.Equal(t, 400.0, report.Symbols[0].Price)
}

func TestRunEndpoint_NoTokenConfiguredAllowsAll(t *testing.T) {
	s, paper := newTestServer(t, "")
	paper.SetPrice("GLD", 400)

	req := httptest.NewRequest(http.MethodGet, "/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
