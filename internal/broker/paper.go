package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PaperClient simulates the brokerage in memory: limit orders rest until
// the simulated price crosses their limit, then fill at the limit price.
// Used when no brokerage credentials are configured and in tests.
type PaperClient struct {
	mu     sync.Mutex
	prices map[string]float64
	orders map[string]*paperOrder
}

type paperOrder struct {
	symbol string
	side   OrderSide
	qty    int64
	limit  float64
	status string
}

func NewPaperClient() *PaperClient {
	return &PaperClient{
		prices: make(map[string]float64),
		orders: make(map[string]*paperOrder),
	}
}

func (p *PaperClient) GetName() string { return "paper" }

// SetPrice sets the simulated market price for a symbol.
func (p *PaperClient) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

func (p *PaperClient) GetLatestTrade(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("paper: no price seeded for %s", symbol)
	}
	return price, nil
}

// GetOrderByID marks resting orders filled once the simulated price has
// crossed their limit (buys at or below, sells at or above).
func (p *PaperClient) GetOrderByID(ctx context.Context, orderID string) (Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return Order{}, &APIError{StatusCode: 404, Message: "order not found"}
	}
	if o.status == "new" {
		price, seeded := p.prices[o.symbol]
		if seeded {
			if o.side == SideBuy && price <= o.limit {
				o.status = StatusFilled
			}
			if o.side == SideSell && price >= o.limit {
				o.status = StatusFilled
			}
		}
	}
	ord := Order{ID: orderID, Symbol: o.symbol, Status: o.status}
	if o.status == StatusFilled {
		ord.FilledAvgPrice = o.limit
	}
	return ord, nil
}

func (p *PaperClient) SubmitLimitOrder(ctx context.Context, symbol string, qty int64, side OrderSide, limitPrice float64, timeInForce string) (string, error) {
	if qty <= 0 {
		return "", &APIError{StatusCode: 422, Message: "qty must be > 0"}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.New().String()
	p.orders[id] = &paperOrder{symbol: symbol, side: side, qty: qty, limit: limitPrice, status: "new"}
	return id, nil
}

// CancelOrder marks a resting order canceled; the reconciler picks the
// state up on its next pass.
func (p *PaperClient) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.orders[orderID]
	if !ok {
		return &APIError{StatusCode: 404, Message: "order not found"}
	}
	if o.status == "new" {
		o.status = StatusCanceled
	}
	return nil
}

// GetClock reports an always-open market.
func (p *PaperClient) GetClock(ctx context.Context) (Clock, error) {
	return Clock{IsOpen: true}, nil
}

// GetOpenPosition sums filled buys minus filled sells for the symbol.
func (p *PaperClient) GetOpenPosition(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var qty int64
	for _, o := range p.orders {
		if o.symbol != symbol || o.status != StatusFilled {
			continue
		}
		if o.side == SideBuy {
			qty += o.qty
		} else {
			qty -= o.qty
		}
	}
	return float64(qty), nil
}
