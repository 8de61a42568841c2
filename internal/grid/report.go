package grid

// SkipReason explains why a buy pass ended without an order. These are
// policy no-ops, not errors.
type SkipReason string

const (
	SkipNone            SkipReason = ""
	SkipOutsideBand     SkipReason = "outside_band"
	SkipCapitalCeiling  SkipReason = "capital_ceiling"
	SkipAboveGridLevel  SkipReason = "above_grid_level"
	SkipDuplicateLevel  SkipReason = "duplicate_level"
	SkipZeroQty         SkipReason = "zero_qty"
	SkipTradingDisabled SkipReason = "trading_disabled"
)

// Cycle outcomes reported by the orchestrator.
const (
	OutcomeOK           = "ok"
	OutcomeBusy         = "busy"
	OutcomeMarketClosed = "market_closed"
	OutcomeError        = "error"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	BuysFilled   int `json:"buys_filled"`
	SellsFilled  int `json:"sells_filled"`
	BuysCanceled int `json:"buys_canceled"`
	SellsCleared int `json:"sells_cleared"`
}

// SymbolReport summarizes one symbol's cycle for the trigger response
// and for tests asserting on decision causes.
type SymbolReport struct {
	Symbol          string     `json:"symbol"`
	Price           float64    `json:"price"`
	Sync            SyncResult `json:"sync"`
	SellsSubmitted  int        `json:"sells_submitted"`
	BuySubmitted    bool       `json:"buy_submitted"`
	BuyPrice        float64    `json:"buy_price,omitempty"`
	BuyQty          int64      `json:"buy_qty,omitempty"`
	BuySkipReason   SkipReason `json:"buy_skip_reason,omitempty"`
	DeployedCapital float64    `json:"deployed_capital"`
	Error           string     `json:"error,omitempty"`
}

// CycleReport is the aggregate result of one trigger invocation.
type CycleReport struct {
	Outcome string         `json:"outcome"`
	Symbols []SymbolReport `json:"symbols,omitempty"`
}
