package broker

import (
	"context"
	"fmt"
)

// OrderSide is the side of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// TimeInForceDay is the only validity the engine uses; day orders lapse
// at session end on the brokerage side.
const TimeInForceDay = "day"

// Brokerage-reported order states the reconciler acts on.
const (
	StatusFilled   = "filled"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
	StatusRejected = "rejected"
)

// Order is a normalized view of a brokerage order.
type Order struct {
	ID             string
	Symbol         string
	Status         string
	FilledAvgPrice float64
}

// Terminal reports whether the order reached a dead non-filled state.
func (o Order) Terminal() bool {
	switch o.Status {
	case StatusCanceled, StatusExpired, StatusRejected:
		return true
	}
	return false
}

// Clock is the brokerage market clock.
type Clock struct {
	IsOpen bool
}

// Client defines the standard interface for all brokerage clients.
type Client interface {
	GetName() string
	GetLatestTrade(ctx context.Context, symbol string) (float64, error)
	GetOrderByID(ctx context.Context, orderID string) (Order, error)
	SubmitLimitOrder(ctx context.Context, symbol string, qty int64, side OrderSide, limitPrice float64, timeInForce string) (string, error)
	GetClock(ctx context.Context) (Clock, error)
	GetOpenPosition(ctx context.Context, symbol string) (float64, error)
}

// APIError is a brokerage-reported rejection, as opposed to a transport
// failure. Callers can errors.As on it to tell the two apart.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brokerage rejected request: status=%d code=%d message=%q", e.StatusCode, e.Code, e.Message)
}
