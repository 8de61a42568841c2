package grid

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"gridbot/internal/broker"
	"gridbot/internal/config"
	"gridbot/internal/database"
	"gridbot/internal/metrics"
)

// Orchestrator runs one full trading cycle per trigger: reconcile, sell
// pass, buy pass, per configured symbol, with each symbol's mutations
// committed atomically. Overlapping triggers are rejected, not queued.
type Orchestrator struct {
	logger     *slog.Logger
	repo       database.Repository
	broker     broker.Client
	reconciler *Reconciler
	engine     *Engine
	cfg        *config.Config

	running sync.Mutex
}

// NewOrchestrator creates a new instance of the Orchestrator.
func NewOrchestrator(logger *slog.Logger, repo database.Repository, brk broker.Client, reconciler *Reconciler, engine *Engine, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		repo:       repo,
		broker:     brk,
		reconciler: reconciler,
		engine:     engine,
		cfg:        cfg,
	}
}

// Run executes one cycle across all configured symbols. A concurrent
// invocation short-circuits with a busy report.
func (o *Orchestrator) Run(ctx context.Context) CycleReport {
	if !o.running.TryLock() {
		o.logger.Warn("cycle already running, trigger rejected")
		metrics.Cycles.WithLabelValues(OutcomeBusy).Inc()
		return CycleReport{Outcome: OutcomeBusy}
	}
	defer o.running.Unlock()

	clock, err := o.broker.GetClock(ctx)
	if err != nil {
		o.logger.Error("market clock unavailable", "error", err)
		metrics.Cycles.WithLabelValues(OutcomeError).Inc()
		return CycleReport{Outcome: OutcomeError}
	}
	if !clock.IsOpen {
		o.logger.Info("market closed, monitoring only")
		metrics.Cycles.WithLabelValues(OutcomeMarketClosed).Inc()
		return CycleReport{Outcome: OutcomeMarketClosed}
	}

	report := CycleReport{Outcome: OutcomeOK}
	for _, symbol := range o.symbols() {
		report.Symbols = append(report.Symbols, o.runSymbol(ctx, symbol, o.cfg.Symbols[symbol]))
	}
	metrics.Cycles.WithLabelValues(OutcomeOK).Inc()
	return report
}

// runSymbol runs reconciliation and both decision passes for one symbol
// inside a single store transaction. A failure here is isolated: other
// symbols still run.
func (o *Orchestrator) runSymbol(ctx context.Context, symbol string, sc config.SymbolConfig) SymbolReport {
	price, err := o.broker.GetLatestTrade(ctx, symbol)
	if err != nil {
		o.logger.Error("price fetch failed", "symbol", symbol, "error", err)
		return SymbolReport{Symbol: symbol, Error: err.Error()}
	}
	o.logger.Info("price check", "symbol", symbol, "price", price)

	rep := SymbolReport{Symbol: symbol, Price: price}
	err = o.repo.WithTx(ctx, func(txRepo database.Repository) error {
		sync := o.reconciler.Sync(ctx, txRepo, symbol)
		rep = o.engine.RunSymbol(ctx, txRepo, symbol, sc, price)
		rep.Sync = sync
		return nil
	})
	if err != nil {
		o.logger.Error("cycle transaction failed", "symbol", symbol, "error", err)
		rep.Error = err.Error()
	}
	return rep
}

func (o *Orchestrator) symbols() []string {
	names := make([]string, 0, len(o.cfg.Symbols))
	for symbol := range o.cfg.Symbols {
		names = append(names, symbol)
	}
	sort.Strings(names)
	return names
}
