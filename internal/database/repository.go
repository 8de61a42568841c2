package database

import (
	"context"
	"time"

	"gridbot/internal/model"
)

// Repository defines the lot store contract. The engine and reconciler
// only touch lot records through this interface; each method is atomic
// and a whole cycle's mutations are grouped with WithTx.
type Repository interface {
	// Migrate creates the lots table if it does not exist.
	Migrate(ctx context.Context) error

	// InsertBuy records a freshly submitted buy order as a new lot in
	// BUY_SUBMITTED state and returns its id.
	InsertBuy(ctx context.Context, symbol, orderID string, limitPrice float64, qty int64, createdAt time.Time) (int64, error)

	// MarkBuyFilled moves a BUY_SUBMITTED lot to BOUGHT and records the
	// fill price. Returns model.ErrInvalidTransition otherwise.
	MarkBuyFilled(ctx context.Context, lotID int64, filledPrice float64) error

	// MarkBuyCanceled moves a BUY_SUBMITTED lot to the terminal
	// BUY_CANCELED state, releasing its reserved capital.
	MarkBuyCanceled(ctx context.Context, lotID int64) error

	// MarkSellSubmitted records a submitted sell order on a BOUGHT lot.
	MarkSellSubmitted(ctx context.Context, lotID int64, orderID string, limitPrice float64, createdAt time.Time) error

	// MarkSellFilled moves a SELL_SUBMITTED lot to SOLD.
	MarkSellFilled(ctx context.Context, lotID int64, filledPrice float64) error

	// ClearSellSubmission resets the sell leg of a SELL_SUBMITTED lot
	// back to NONE after the brokerage reported the order dead, so the
	// next sell pass can re-place it.
	ClearSellSubmission(ctx context.Context, lotID int64) error

	// OpenBuySubmitted returns all lots awaiting a buy fill, across symbols.
	OpenBuySubmitted(ctx context.Context) ([]model.Lot, error)

	// OpenSellSubmitted returns all lots awaiting a sell fill, across symbols.
	OpenSellSubmitted(ctx context.Context) ([]model.Lot, error)

	// UnsoldBoughtLots returns the symbol's lots eligible for a sell decision.
	UnsoldBoughtLots(ctx context.Context, symbol string) ([]model.Lot, error)

	// DuplicateBuyExists reports whether an open buy already sits within
	// tolerance of price for the symbol.
	DuplicateBuyExists(ctx context.Context, symbol string, price, tolerance float64) (bool, error)

	// LastFilledBuyPrice returns the most recent buy fill price among
	// BOUGHT lots, by insertion order. ok is false when none exist.
	LastFilledBuyPrice(ctx context.Context, symbol string) (price float64, ok bool, err error)

	// DeployedCapital returns filled capital in open positions plus
	// capital reserved against unfilled buys, valued at the limit price.
	DeployedCapital(ctx context.Context, symbol string) (float64, error)

	// WithTx runs fn against a transactional view of the store and
	// commits only if fn returns nil.
	WithTx(ctx context.Context, fn func(Repository) error) error

	Close()
}
