package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gridbot/internal/broker"
	"gridbot/internal/config"
	"gridbot/internal/database"
	"gridbot/internal/metrics"
	"gridbot/internal/model"
	"gridbot/internal/notify"
)

// priceTolerance bounds the duplicate-grid-level check: at most one open
// buy may exist within this distance of a level.
const priceTolerance = 0.0001

// Engine holds the grid decision logic: one sell pass over the symbol's
// bought lots followed by at most one buy decision.
type Engine struct {
	logger   *slog.Logger
	broker   broker.Client
	notifier notify.Notifier
	trading  config.TradingConfig
	now      func() time.Time
}

// NewEngine creates a new instance of the Engine.
func NewEngine(logger *slog.Logger, brk broker.Client, notifier notify.Notifier, trading config.TradingConfig) *Engine {
	return &Engine{
		logger:   logger,
		broker:   brk,
		notifier: notifier,
		trading:  trading,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunSymbol executes the sell pass and then the buy pass for one symbol
// at the given market price. Mutations go through repo, which the
// orchestrator scopes to the cycle's transaction.
func (e *Engine) RunSymbol(ctx context.Context, repo database.Repository, symbol string, sc config.SymbolConfig, price float64) SymbolReport {
	rep := SymbolReport{Symbol: symbol, Price: price}

	e.sellPass(ctx, repo, symbol, sc, price, &rep)
	e.buyPass(ctx, repo, symbol, sc, price, &rep)

	capital, err := repo.DeployedCapital(ctx, symbol)
	if err != nil {
		e.logger.Error("failed to compute deployed capital", "symbol", symbol, "error", err)
	} else {
		rep.DeployedCapital = capital
		metrics.DeployedCapital.WithLabelValues(symbol).Set(capital)
	}
	return rep
}

// sellPass submits a limit sell for every bought lot whose fixed target
// the market price has reached. A failure on one lot never aborts the rest.
func (e *Engine) sellPass(ctx context.Context, repo database.Repository, symbol string, sc config.SymbolConfig, price float64, rep *SymbolReport) {
	lots, err := repo.UnsoldBoughtLots(ctx, symbol)
	if err != nil {
		e.logger.Error("failed to load bought lots", "symbol", symbol, "error", err)
		rep.Error = err.Error()
		return
	}

	for _, lot := range lots {
		if lot.SellStatus == model.SellSubmitted {
			// already resting at the brokerage
			continue
		}
		target := model.SellTarget(lot.BuyFilledPrice, sc.GridPct)
		if price < target {
			continue
		}
		if !e.trading.Enabled {
			e.logger.Info("sell blocked, trading disabled", "symbol", symbol, "lot_id", lot.ID, "target", target)
			continue
		}

		orderID, err := e.broker.SubmitLimitOrder(ctx, symbol, lot.Qty, broker.SideSell, target, broker.TimeInForceDay)
		if err != nil {
			e.logSubmitFailure("sell", symbol, lot.ID, err)
			continue
		}
		if err := repo.MarkSellSubmitted(ctx, lot.ID, orderID, target, e.now()); err != nil {
			e.logger.Error("sell submitted but not recorded", "symbol", symbol, "lot_id", lot.ID, "order_id", orderID, "error", err)
			continue
		}

		rep.SellsSubmitted++
		metrics.OrdersSubmitted.WithLabelValues(symbol, string(broker.SideSell)).Inc()
		e.notify(ctx, fmt.Sprintf("%s | SELL placed: %d @ %.2f", symbol, lot.Qty, target))
		e.logger.Info("sell placed", "symbol", symbol, "lot_id", lot.ID, "qty", lot.Qty, "limit", target)
	}
}

// buyPass evaluates at most one new buy for the symbol this cycle.
func (e *Engine) buyPass(ctx context.Context, repo database.Repository, symbol string, sc config.SymbolConfig, price float64, rep *SymbolReport) {
	if price < sc.LowerBand || price > sc.UpperBand {
		e.skipBuy(rep, SkipOutsideBand, "symbol", symbol, "price", price, "lower", sc.LowerBand, "upper", sc.UpperBand)
		return
	}

	capital, err := repo.DeployedCapital(ctx, symbol)
	if err != nil {
		e.logger.Error("failed to compute deployed capital", "symbol", symbol, "error", err)
		rep.Error = err.Error()
		return
	}
	if capital >= sc.MaxCapital {
		e.skipBuy(rep, SkipCapitalCeiling, "symbol", symbol, "capital", capital, "max", sc.MaxCapital)
		return
	}

	buyPrice, ok, err := e.buyLevel(ctx, repo, symbol, sc, price)
	if err != nil {
		rep.Error = err.Error()
		return
	}
	if !ok {
		e.skipBuy(rep, SkipAboveGridLevel, "symbol", symbol, "price", price, "level", buyPrice)
		return
	}

	dup, err := repo.DuplicateBuyExists(ctx, symbol, buyPrice, priceTolerance)
	if err != nil {
		e.logger.Error("duplicate level check failed", "symbol", symbol, "error", err)
		rep.Error = err.Error()
		return
	}
	if dup {
		e.skipBuy(rep, SkipDuplicateLevel, "symbol", symbol, "level", buyPrice)
		return
	}

	qty := int64(math.Floor(sc.OrderUSD / buyPrice))
	if qty <= 0 {
		e.skipBuy(rep, SkipZeroQty, "symbol", symbol, "order_usd", sc.OrderUSD, "level", buyPrice)
		return
	}

	if !e.trading.Enabled {
		e.skipBuy(rep, SkipTradingDisabled, "symbol", symbol, "level", buyPrice)
		return
	}

	orderID, err := e.broker.SubmitLimitOrder(ctx, symbol, qty, broker.SideBuy, buyPrice, broker.TimeInForceDay)
	if err != nil {
		// no lot row for a failed submission; the next trigger retries
		e.logSubmitFailure("buy", symbol, 0, err)
		rep.Error = err.Error()
		return
	}
	if _, err := repo.InsertBuy(ctx, symbol, orderID, buyPrice, qty, e.now()); err != nil {
		e.logger.Error("buy submitted but not recorded", "symbol", symbol, "order_id", orderID, "error", err)
		rep.Error = err.Error()
		return
	}

	rep.BuySubmitted = true
	rep.BuyPrice = buyPrice
	rep.BuyQty = qty
	metrics.OrdersSubmitted.WithLabelValues(symbol, string(broker.SideBuy)).Inc()
	e.notify(ctx, fmt.Sprintf("%s | BUY placed: %d @ %.2f", symbol, qty, buyPrice))
	e.logger.Info("buy placed", "symbol", symbol, "qty", qty, "limit", buyPrice)
}

// buyLevel resolves the grid level a new buy would rest at. ok is false
// when the market has not dropped to an eligible level.
func (e *Engine) buyLevel(ctx context.Context, repo database.Repository, symbol string, sc config.SymbolConfig, price float64) (float64, bool, error) {
	switch sc.PolicyFor() {
	case config.PolicyLadder:
		return e.ladderLevel(ctx, repo, symbol, sc, price)
	default:
		anchor, found, err := repo.LastFilledBuyPrice(ctx, symbol)
		if err != nil {
			e.logger.Error("anchor lookup failed", "symbol", symbol, "error", err)
			return 0, false, err
		}
		if !found {
			// bootstrap: first buy anchors off the current market price
			anchor = price
		}
		level := model.BuyLevel(anchor, sc.GridPct)
		return level, price <= level, nil
	}
}

// ladderLevel scans the precomputed band levels from the top down and
// picks the highest one at or below the current price, so the buy rests
// under the market until price drops to it. Levels holding an unsold
// bought lot are skipped; open buys are caught by the duplicate guard.
func (e *Engine) ladderLevel(ctx context.Context, repo database.Repository, symbol string, sc config.SymbolConfig, price float64) (float64, bool, error) {
	held, err := repo.UnsoldBoughtLots(ctx, symbol)
	if err != nil {
		e.logger.Error("failed to load bought lots", "symbol", symbol, "error", err)
		return 0, false, err
	}
	levels := LadderLevels(sc)
	for i := len(levels) - 1; i >= 0; i-- {
		level := levels[i]
		if level > price {
			continue
		}
		occupied := false
		for _, lot := range held {
			if math.Abs(lot.BuyLimitPrice-level) < priceTolerance {
				occupied = true
				break
			}
		}
		if occupied {
			continue
		}
		return level, true, nil
	}
	return 0, false, nil
}

// LadderLevels precomputes the grid levels for a symbol's band, spaced
// multiplicatively by grid_pct from the lower band up.
func LadderLevels(sc config.SymbolConfig) []float64 {
	var levels []float64
	for l := sc.LowerBand; l <= sc.UpperBand+priceTolerance; l *= 1 + sc.GridPct {
		levels = append(levels, model.RoundPrice(l))
	}
	return levels
}

func (e *Engine) skipBuy(rep *SymbolReport, reason SkipReason, args ...any) {
	rep.BuySkipReason = reason
	metrics.BuySkips.WithLabelValues(rep.Symbol, string(reason)).Inc()
	e.logger.Info("buy skipped: "+string(reason), args...)
}

// logSubmitFailure separates brokerage rejections from transport failures
// so operators can tell a refused order from a flaky network.
func (e *Engine) logSubmitFailure(side, symbol string, lotID int64, err error) {
	var apiErr *broker.APIError
	if errors.As(err, &apiErr) {
		e.logger.Error(side+" rejected by brokerage", "symbol", symbol, "lot_id", lotID, "status", apiErr.StatusCode, "message", apiErr.Message)
		return
	}
	e.logger.Error(side+" submission failed", "symbol", symbol, "lot_id", lotID, "error", err)
}

func (e *Engine) notify(ctx context.Context, text string) {
	if err := e.notifier.Notify(ctx, text); err != nil {
		e.logger.Warn("notification failed", "error", err)
	}
}
