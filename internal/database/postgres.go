package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridbot/internal/model"
)

const lotColumns = `id, symbol, qty, buy_order_id, buy_status, buy_limit_price,
	buy_filled_price, buy_created_at, sell_order_id, sell_status,
	sell_limit_price, sell_filled_price, sell_created_at`

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// query methods serve pooled and transactional access.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	Pool *pgxpool.Pool
	db   pgQuerier
}

// NewPostgresRepository connects to the database and returns a repository.
func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresRepository{Pool: pool, db: pool}, nil
}

func (r *PostgresRepository) querier() pgQuerier {
	if r.db != nil {
		return r.db
	}
	return r.Pool
}

// Migrate creates the lots table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.querier().Exec(ctx, `
	CREATE TABLE IF NOT EXISTS lots (
		id BIGSERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		qty BIGINT NOT NULL,
		buy_order_id TEXT NOT NULL DEFAULT '',
		buy_status TEXT NOT NULL DEFAULT 'NONE',
		buy_limit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		buy_filled_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		buy_created_at TIMESTAMPTZ NOT NULL,
		sell_order_id TEXT NOT NULL DEFAULT '',
		sell_status TEXT NOT NULL DEFAULT 'NONE',
		sell_limit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		sell_filled_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		sell_created_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
	)`)
	if err != nil {
		return err
	}
	_, err = r.querier().Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_lots_symbol_status ON lots (symbol, buy_status, sell_status)`)
	return err
}

func (r *PostgresRepository) InsertBuy(ctx context.Context, symbol, orderID string, limitPrice float64, qty int64, createdAt time.Time) (int64, error) {
	var id int64
	err := r.querier().QueryRow(ctx, `
		INSERT INTO lots (symbol, qty, buy_order_id, buy_status, buy_limit_price, buy_created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		symbol, qty, orderID, model.BuySubmitted, limitPrice, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert buy lot: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) MarkBuyFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	tag, err := r.querier().Exec(ctx, `
		UPDATE lots SET buy_status=$1, buy_filled_price=$2
		WHERE id=$3 AND buy_status=$4`,
		model.Bought, filledPrice, lotID, model.BuySubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, tag, lotID)
}

func (r *PostgresRepository) MarkBuyCanceled(ctx context.Context, lotID int64) error {
	tag, err := r.querier().Exec(ctx, `
		UPDATE lots SET buy_status=$1
		WHERE id=$2 AND buy_status=$3`,
		model.BuyCanceled, lotID, model.BuySubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, tag, lotID)
}

func (r *PostgresRepository) MarkSellSubmitted(ctx context.Context, lotID int64, orderID string, limitPrice float64, createdAt time.Time) error {
	tag, err := r.querier().Exec(ctx, `
		UPDATE lots SET sell_status=$1, sell_order_id=$2, sell_limit_price=$3, sell_created_at=$4
		WHERE id=$5 AND buy_status=$6 AND sell_status NOT IN ($7, $8)`,
		model.SellSubmitted, orderID, limitPrice, createdAt,
		lotID, model.Bought, model.SellSubmitted, model.Sold)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, tag, lotID)
}

func (r *PostgresRepository) MarkSellFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	tag, err := r.querier().Exec(ctx, `
		UPDATE lots SET sell_status=$1, sell_filled_price=$2
		WHERE id=$3 AND sell_status=$4`,
		model.Sold, filledPrice, lotID, model.SellSubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, tag, lotID)
}

func (r *PostgresRepository) ClearSellSubmission(ctx context.Context, lotID int64) error {
	tag, err := r.querier().Exec(ctx, `
		UPDATE lots SET sell_status=$1, sell_order_id='', sell_limit_price=0, sell_created_at='epoch'
		WHERE id=$2 AND sell_status=$3`,
		model.SellNone, lotID, model.SellSubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, tag, lotID)
}

// transitionResult maps a zero-row status update onto the typed errors.
func (r *PostgresRepository) transitionResult(ctx context.Context, tag pgconn.CommandTag, lotID int64) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.querier().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lots WHERE id=$1)`, lotID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrInvalidTransition
}

func (r *PostgresRepository) OpenBuySubmitted(ctx context.Context) ([]model.Lot, error) {
	return r.queryLots(ctx, `SELECT `+lotColumns+` FROM lots WHERE buy_status=$1 ORDER BY id`, model.BuySubmitted)
}

func (r *PostgresRepository) OpenSellSubmitted(ctx context.Context) ([]model.Lot, error) {
	return r.queryLots(ctx, `SELECT `+lotColumns+` FROM lots WHERE sell_status=$1 ORDER BY id`, model.SellSubmitted)
}

func (r *PostgresRepository) UnsoldBoughtLots(ctx context.Context, symbol string) ([]model.Lot, error) {
	return r.queryLots(ctx, `
		SELECT `+lotColumns+` FROM lots
		WHERE symbol=$1 AND buy_status=$2 AND sell_status!=$3
		ORDER BY id`,
		symbol, model.Bought, model.Sold)
}

func (r *PostgresRepository) DuplicateBuyExists(ctx context.Context, symbol string, price, tolerance float64) (bool, error) {
	var exists bool
	err := r.querier().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM lots
			WHERE symbol=$1 AND buy_status=$2 AND ABS(buy_limit_price - $3) < $4
		)`,
		symbol, model.BuySubmitted, price, tolerance,
	).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) LastFilledBuyPrice(ctx context.Context, symbol string) (float64, bool, error) {
	var price float64
	err := r.querier().QueryRow(ctx, `
		SELECT buy_filled_price FROM lots
		WHERE symbol=$1 AND buy_status=$2
		ORDER BY id DESC LIMIT 1`,
		symbol, model.Bought,
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *PostgresRepository) DeployedCapital(ctx context.Context, symbol string) (float64, error) {
	var locked, reserved float64
	err := r.querier().QueryRow(ctx, `
		SELECT COALESCE(SUM(buy_filled_price * qty), 0) FROM lots
		WHERE symbol=$1 AND buy_status=$2 AND sell_status!=$3`,
		symbol, model.Bought, model.Sold,
	).Scan(&locked)
	if err != nil {
		return 0, err
	}
	err = r.querier().QueryRow(ctx, `
		SELECT COALESCE(SUM(buy_limit_price * qty), 0) FROM lots
		WHERE symbol=$1 AND buy_status=$2`,
		symbol, model.BuySubmitted,
	).Scan(&reserved)
	if err != nil {
		return 0, err
	}
	return locked + reserved, nil
}

// WithTx runs fn against a transactional repository view and commits
// only when fn succeeds.
func (r *PostgresRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresRepository{Pool: r.Pool, db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresRepository) Close() {
	r.Pool.Close()
}

func (r *PostgresRepository) queryLots(ctx context.Context, sql string, args ...any) ([]model.Lot, error) {
	rows, err := r.querier().Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(
			&l.ID, &l.Symbol, &l.Qty,
			&l.BuyOrderID, &l.BuyStatus, &l.BuyLimitPrice, &l.BuyFilledPrice, &l.BuyCreatedAt,
			&l.SellOrderID, &l.SellStatus, &l.SellLimitPrice, &l.SellFilledPrice, &l.SellCreatedAt,
		); err != nil {
			return nil, err
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}
