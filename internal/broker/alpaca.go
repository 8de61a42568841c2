package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	liveTradingURL  = "https://api.alpaca.markets"
	paperTradingURL = "https://paper-api.alpaca.markets"
	marketDataURL   = "https://data.alpaca.markets"
)

// AlpacaClient implements the Client interface against the Alpaca REST API.
type AlpacaClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	tradingURL string
	dataURL    string
	keyID      string
	secretKey  string
}

// NewAlpacaClient creates a client for the live or paper trading endpoint.
func NewAlpacaClient(logger *slog.Logger, keyID, secretKey string, paper bool) *AlpacaClient {
	tradingURL := liveTradingURL
	if paper {
		tradingURL = paperTradingURL
	}
	return &AlpacaClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tradingURL: tradingURL,
		dataURL:    marketDataURL,
		keyID:      keyID,
		secretKey:  secretKey,
	}
}

func (a *AlpacaClient) GetName() string {
	return "alpaca"
}

// GetLatestTrade returns the price of the most recent trade for symbol.
func (a *AlpacaClient) GetLatestTrade(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Trade struct {
			Price float64 `json:"p"`
		} `json:"trade"`
	}
	url := fmt.Sprintf("%s/v2/stocks/%s/trades/latest", a.dataURL, symbol)
	if err := a.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Trade.Price, nil
}

// GetOrderByID fetches the current status of a previously submitted order.
func (a *AlpacaClient) GetOrderByID(ctx context.Context, orderID string) (Order, error) {
	var resp orderResponse
	url := fmt.Sprintf("%s/v2/orders/%s", a.tradingURL, orderID)
	if err := a.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return Order{}, err
	}
	return resp.toOrder()
}

// SubmitLimitOrder places a limit order and returns the brokerage order id.
func (a *AlpacaClient) SubmitLimitOrder(ctx context.Context, symbol string, qty int64, side OrderSide, limitPrice float64, timeInForce string) (string, error) {
	body := map[string]string{
		"symbol":        symbol,
		"qty":           strconv.FormatInt(qty, 10),
		"side":          string(side),
		"type":          "limit",
		"limit_price":   strconv.FormatFloat(limitPrice, 'f', 2, 64),
		"time_in_force": timeInForce,
	}
	var resp orderResponse
	if err := a.do(ctx, http.MethodPost, a.tradingURL+"/v2/orders", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// GetClock returns the brokerage market clock.
func (a *AlpacaClient) GetClock(ctx context.Context) (Clock, error) {
	var resp struct {
		IsOpen bool `json:"is_open"`
	}
	if err := a.do(ctx, http.MethodGet, a.tradingURL+"/v2/clock", nil, &resp); err != nil {
		return Clock{}, err
	}
	return Clock{IsOpen: resp.IsOpen}, nil
}

// GetOpenPosition returns the currently held quantity for symbol, zero
// when no position exists.
func (a *AlpacaClient) GetOpenPosition(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Qty string `json:"qty"`
	}
	url := fmt.Sprintf("%s/v2/positions/%s", a.tradingURL, symbol)
	err := a.do(ctx, http.MethodGet, url, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseFloat(resp.Qty, 64)
}

// orderResponse mirrors the fields of an Alpaca order the engine needs.
// Prices arrive as decimal strings; filled_avg_price is null until filled.
type orderResponse struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Status         string  `json:"status"`
	FilledAvgPrice *string `json:"filled_avg_price"`
}

func (o orderResponse) toOrder() (Order, error) {
	ord := Order{ID: o.ID, Symbol: o.Symbol, Status: o.Status}
	if o.FilledAvgPrice != nil {
		p, err := strconv.ParseFloat(*o.FilledAvgPrice, 64)
		if err != nil {
			return Order{}, fmt.Errorf("parse filled_avg_price %q: %w", *o.FilledAvgPrice, err)
		}
		ord.FilledAvgPrice = p
	}
	return ord, nil
}

// do performs an authenticated request and decodes the JSON response.
// Non-2xx responses become *APIError; transport failures are wrapped.
func (a *AlpacaClient) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", a.keyID)
	req.Header.Set("APCA-API-SECRET-KEY", a.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil {
			apiErr.Code = detail.Code
			apiErr.Message = detail.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
