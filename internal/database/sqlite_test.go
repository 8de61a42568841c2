package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbot/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "lots.db"))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func TestSQLiteRepository_LotLifecycle(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()
	createdAt := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	id, err := r.InsertBuy(ctx, "GLD", "buy-1", 397.60, 1, createdAt)
	require.NoError(t, err)

	open, err := r.OpenBuySubmitted(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, model.BuySubmitted, open[0].BuyStatus)
	assert.Equal(t, createdAt, open[0].BuyCreatedAt)
	assert.True(t, open[0].Open())

	require.NoError(t, r.MarkBuyFilled(ctx, id, 397.55))
	require.NoError(t, r.MarkSellSubmitted(ctx, id, "sell-1", 399.99, createdAt.Add(time.Hour)))
	require.NoError(t, r.MarkSellFilled(ctx, id, 400.01))

	bought, err := r.UnsoldBoughtLots(ctx, "GLD")
	require.NoError(t, err)
	assert.Empty(t, bought)
}

func TestSQLiteRepository_TransitionGuards(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	id, err := r.InsertBuy(ctx, "GLD", "buy-1", 397.60, 1, time.Now().UTC())
	require.NoError(t, err)

	assert.ErrorIs(t, r.MarkSellFilled(ctx, id, 400), model.ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkBuyFilled(ctx, 404, 400), model.ErrNotFound)

	require.NoError(t, r.MarkBuyFilled(ctx, id, 397.55))
	assert.ErrorIs(t, r.MarkBuyFilled(ctx, id, 111.11), model.ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkBuyCanceled(ctx, id), model.ErrInvalidTransition)
}

func TestSQLiteRepository_ClearSellSubmission(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	id, err := r.InsertBuy(ctx, "GLD", "buy-1", 397.60, 1, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, r.MarkBuyFilled(ctx, id, 397.55))
	require.NoError(t, r.MarkSellSubmitted(ctx, id, "sell-1", 399.99, time.Now().UTC()))

	require.NoError(t, r.ClearSellSubmission(ctx, id))

	// the lot is back in front of the sell pass with a clean sell leg
	bought, err := r.UnsoldBoughtLots(ctx, "GLD")
	require.NoError(t, err)
	require.Len(t, bought, 1)
	assert.Equal(t, model.SellNone, bought[0].SellStatus)
	assert.Empty(t, bought[0].SellOrderID)
	assert.Zero(t, bought[0].SellLimitPrice)

	// clearing twice is rejected
	assert.ErrorIs(t, r.ClearSellSubmission(ctx, id), model.ErrInvalidTransition)
}

func TestSQLiteRepository_CapitalAndQueries(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	id1, err := r.InsertBuy(ctx, "GLD", "buy-1", 400, 2, time.Now().UTC())
	require.NoError(t, err)
	_, err = r.InsertBuy(ctx, "GLD", "buy-2", 397.60, 1, time.Now().UTC())
	require.NoError(t, err)

	capital, err := r.DeployedCapital(ctx, "GLD")
	require.NoError(t, err)
	assert.InDelta(t, 1197.60, capital, 0.001)

	require.NoError(t, r.MarkBuyFilled(ctx, id1, 399))
	capital, err = r.DeployedCapital(ctx, "GLD")
	require.NoError(t, err)
	assert.InDelta(t, 1195.60, capital, 0.001)

	dup, err := r.DuplicateBuyExists(ctx, "GLD", 397.60, 0.0001)
	require.NoError(t, err)
	assert.True(t, dup)

	price, ok, err := r.LastFilledBuyPrice(ctx, "GLD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 399.0, price)
}

func TestSQLiteRepository_WithTxRollsBackOnError(t *testing.T) {
	r := newTestSQLite(t)
	ctx := context.Background()

	boom := assert.AnError
	err := r.WithTx(ctx, func(tx Repository) error {
		if _, err := tx.InsertBuy(ctx, "GLD", "buy-1", 397.60, 1, time.Now().UTC()); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	open, err := r.OpenBuySubmitted(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}
