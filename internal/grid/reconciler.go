package grid

import (
	"context"
	"fmt"
	"log/slog"

	"gridbot/internal/broker"
	"gridbot/internal/database"
	"gridbot/internal/metrics"
	"gridbot/internal/notify"
)

// Reconciler polls the brokerage for the status of submitted orders and
// moves lots forward on fill. A lookup failure for one lot never blocks
// the others; the lot is retried naturally on the next trigger.
type Reconciler struct {
	logger   *slog.Logger
	broker   broker.Client
	notifier notify.Notifier
}

// NewReconciler creates a new instance of the Reconciler.
func NewReconciler(logger *slog.Logger, brk broker.Client, notifier notify.Notifier) *Reconciler {
	return &Reconciler{logger: logger, broker: brk, notifier: notifier}
}

// Sync reconciles the symbol's in-flight orders against brokerage state.
func (r *Reconciler) Sync(ctx context.Context, repo database.Repository, symbol string) SyncResult {
	var res SyncResult

	buys, err := repo.OpenBuySubmitted(ctx)
	if err != nil {
		r.logger.Error("failed to load submitted buys", "symbol", symbol, "error", err)
	}
	for _, lot := range buys {
		if lot.Symbol != symbol {
			continue
		}
		order, err := r.broker.GetOrderByID(ctx, lot.BuyOrderID)
		if err != nil {
			r.logger.Warn("buy order lookup failed", "symbol", symbol, "lot_id", lot.ID, "order_id", lot.BuyOrderID, "error", err)
			continue
		}
		switch {
		case order.Status == broker.StatusFilled:
			if err := repo.MarkBuyFilled(ctx, lot.ID, order.FilledAvgPrice); err != nil {
				r.logger.Error("failed to record buy fill", "symbol", symbol, "lot_id", lot.ID, "error", err)
				continue
			}
			res.BuysFilled++
			metrics.FillsObserved.WithLabelValues(symbol, string(broker.SideBuy)).Inc()
			r.notify(ctx, fmt.Sprintf("%s | BUY filled: %d @ %.2f", symbol, lot.Qty, order.FilledAvgPrice))
			r.logger.Info("buy filled", "symbol", symbol, "lot_id", lot.ID, "price", order.FilledAvgPrice)
		case order.Terminal():
			if err := repo.MarkBuyCanceled(ctx, lot.ID); err != nil {
				r.logger.Error("failed to record buy cancel", "symbol", symbol, "lot_id", lot.ID, "error", err)
				continue
			}
			res.BuysCanceled++
			r.logger.Info("buy order dead, lot closed", "symbol", symbol, "lot_id", lot.ID, "status", order.Status)
		}
	}

	sells, err := repo.OpenSellSubmitted(ctx)
	if err != nil {
		r.logger.Error("failed to load submitted sells", "symbol", symbol, "error", err)
	}
	for _, lot := range sells {
		if lot.Symbol != symbol {
			continue
		}
		order, err := r.broker.GetOrderByID(ctx, lot.SellOrderID)
		if err != nil {
			r.logger.Warn("sell order lookup failed", "symbol", symbol, "lot_id", lot.ID, "order_id", lot.SellOrderID, "error", err)
			continue
		}
		switch {
		case order.Status == broker.StatusFilled:
			if err := repo.MarkSellFilled(ctx, lot.ID, order.FilledAvgPrice); err != nil {
				r.logger.Error("failed to record sell fill", "symbol", symbol, "lot_id", lot.ID, "error", err)
				continue
			}
			res.SellsFilled++
			metrics.FillsObserved.WithLabelValues(symbol, string(broker.SideSell)).Inc()
			r.notify(ctx, fmt.Sprintf("%s | SELL filled: %d @ %.2f", symbol, lot.Qty, order.FilledAvgPrice))
			r.logger.Info("sell filled", "symbol", symbol, "lot_id", lot.ID, "price", order.FilledAvgPrice)
		case order.Terminal():
			// Clearing the sell leg puts the lot back in front of the
			// sell pass; the position itself is still held.
			if err := repo.ClearSellSubmission(ctx, lot.ID); err != nil {
				r.logger.Error("failed to clear dead sell", "symbol", symbol, "lot_id", lot.ID, "error", err)
				continue
			}
			res.SellsCleared++
			r.logger.Info("sell order dead, submission cleared", "symbol", symbol, "lot_id", lot.ID, "status", order.Status)
		}
	}

	return res
}

func (r *Reconciler) notify(ctx context.Context, text string) {
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}
