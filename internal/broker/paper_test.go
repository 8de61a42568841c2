package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaperClient_LimitOrdersFillOnCross(t *testing.T) {
	ctx := context.Background()
	p := NewPaperClient()
	p.SetPrice("GLD", 400)

	buyID, err := p.SubmitLimitOrder(ctx, "GLD", 2, SideBuy, 397.60, TimeInForceDay)
	require.NoError(t, err)

	// above the limit the buy rests
	order, err := p.GetOrderByID(ctx, buyID)
	require.NoError(t, err)
	assert.Equal(t, "new", order.Status)

	// price drops through: fill at the limit
	p.SetPrice("GLD", 397.00)
	order, err = p.GetOrderByID(ctx, buyID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, order.Status)
	assert.Equal(t, 397.60, order.FilledAvgPrice)

	qty, err := p.GetOpenPosition(ctx, "GLD")
	require.NoError(t, err)
	assert.Equal(t, 2.0, qty)

	sellID, err := p.SubmitLimitOrder(ctx, "GLD", 2, SideSell, 400.00, TimeInForceDay)
	require.NoError(t, err)
	p.SetPrice("GLD", 400.50)
	order, err = p.GetOrderByID(ctx, sellID)
	require.NoError(t, err)
	assert.Equal(t, StatusFilled, order.Status)

	qty, err = p.GetOpenPosition(ctx, "GLD")
	require.NoError(t, err)
	assert.Zero(t, qty)
}

func TestPaperClient_CancelOrder(t *testing.T) {
	ctx := context.Background()
	p := NewPaperClient()
	p.SetPrice("GLD", 400)

	id, err := p.SubmitLimitOrder(ctx, "GLD", 1, SideBuy, 390, TimeInForceDay)
	require.NoError(t, err)
	require.NoError(t, p.CancelOrder(ctx, id))

	order, err := p.GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, order.Status)
	assert.True(t, order.Terminal())
}

func TestPaperClient_UnknownOrderIsAPIError(t *testing.T) {
	p := NewPaperClient()
	_, err := p.GetOrderByID(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.StatusCode)
}
