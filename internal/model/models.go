package model

import (
	"math"
	"time"
)

// BuyStatus tracks the buy leg of a lot.
type BuyStatus string

// SellStatus tracks the sell leg of a lot.
type SellStatus string

const (
	BuyNone      BuyStatus = "NONE"
	BuySubmitted BuyStatus = "BUY_SUBMITTED"
	Bought       BuyStatus = "BOUGHT"
	BuyCanceled  BuyStatus = "BUY_CANCELED"

	SellNone      SellStatus = "NONE"
	SellSubmitted SellStatus = "SELL_SUBMITTED"
	Sold          SellStatus = "SOLD"
)

// Lot represents one buy-then-sell position cycle for a symbol.
// A lot is created when a buy order is submitted and is never deleted;
// SOLD and BUY_CANCELED are terminal states.
type Lot struct {
	ID              int64      `db:"id"`
	Symbol          string     `db:"symbol"`
	Qty             int64      `db:"qty"`
	BuyOrderID      string     `db:"buy_order_id"`
	BuyStatus       BuyStatus  `db:"buy_status"`
	BuyLimitPrice   float64    `db:"buy_limit_price"`
	BuyFilledPrice  float64    `db:"buy_filled_price"`
	BuyCreatedAt    time.Time  `db:"buy_created_at"`
	SellOrderID     string     `db:"sell_order_id"`
	SellStatus      SellStatus `db:"sell_status"`
	SellLimitPrice  float64    `db:"sell_limit_price"`
	SellFilledPrice float64    `db:"sell_filled_price"`
	SellCreatedAt   time.Time  `db:"sell_created_at"`
}

// Open reports whether the lot still consumes capital.
func (l Lot) Open() bool {
	return (l.BuyStatus == BuySubmitted || l.BuyStatus == Bought) && l.SellStatus != Sold
}

// RoundPrice rounds to the instrument price precision (2 decimals).
func RoundPrice(p float64) float64 {
	return math.Round(p*100) / 100
}

// SellTarget is the fixed sell limit for a lot filled at buyPrice.
func SellTarget(buyPrice, gridPct float64) float64 {
	return RoundPrice(buyPrice * (1 + gridPct))
}

// BuyLevel is the next grid buy level below the anchor price.
func BuyLevel(anchor, gridPct float64) float64 {
	return RoundPrice(anchor * (1 - gridPct))
}
