package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"gridbot/internal/model"
)

// SQLiteRepository implements the Repository interface on a local
// sqlite file. Timestamps are stored as RFC 3339 text in UTC.
type SQLiteRepository struct {
	DB *sql.DB
	db sqlQuerier
}

type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteRepository opens (or creates) the database file at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer; the busy guard in the orchestrator
	// already serializes cycles, this protects stray readers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteRepository{DB: db, db: db}, nil
}

func (r *SQLiteRepository) querier() sqlQuerier {
	if r.db != nil {
		return r.db
	}
	return r.DB
}

// Migrate creates the lots table if it does not exist.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.querier().ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS lots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		qty INTEGER NOT NULL,
		buy_order_id TEXT NOT NULL DEFAULT '',
		buy_status TEXT NOT NULL DEFAULT 'NONE',
		buy_limit_price REAL NOT NULL DEFAULT 0,
		buy_filled_price REAL NOT NULL DEFAULT 0,
		buy_created_at TEXT NOT NULL,
		sell_order_id TEXT NOT NULL DEFAULT '',
		sell_status TEXT NOT NULL DEFAULT 'NONE',
		sell_limit_price REAL NOT NULL DEFAULT 0,
		sell_filled_price REAL NOT NULL DEFAULT 0,
		sell_created_at TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

func (r *SQLiteRepository) InsertBuy(ctx context.Context, symbol, orderID string, limitPrice float64, qty int64, createdAt time.Time) (int64, error) {
	res, err := r.querier().ExecContext(ctx, `
		INSERT INTO lots (symbol, qty, buy_order_id, buy_status, buy_limit_price, buy_created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		symbol, qty, orderID, model.BuySubmitted, limitPrice, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert buy lot: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) MarkBuyFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	res, err := r.querier().ExecContext(ctx, `
		UPDATE lots SET buy_status=?, buy_filled_price=?
		WHERE id=? AND buy_status=?`,
		model.Bought, filledPrice, lotID, model.BuySubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, res, lotID)
}

func (r *SQLiteRepository) MarkBuyCanceled(ctx context.Context, lotID int64) error {
	res, err := r.querier().ExecContext(ctx, `
		UPDATE lots SET buy_status=?
		WHERE id=? AND buy_status=?`,
		model.BuyCanceled, lotID, model.BuySubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, res, lotID)
}

func (r *SQLiteRepository) MarkSellSubmitted(ctx context.Context, lotID int64, orderID string, limitPrice float64, createdAt time.Time) error {
	res, err := r.querier().ExecContext(ctx, `
		UPDATE lots SET sell_status=?, sell_order_id=?, sell_limit_price=?, sell_created_at=?
		WHERE id=? AND buy_status=? AND sell_status NOT IN (?, ?)`,
		model.SellSubmitted, orderID, limitPrice, formatTime(createdAt),
		lotID, model.Bought, model.SellSubmitted, model.Sold)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, res, lotID)
}

func (r *SQLiteRepository) MarkSellFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	res, err := r.querier().ExecContext(ctx, `
		UPDATE lots SET sell_status=?, sell_filled_price=?
		WHERE id=? AND sell_status=?`,
		model.Sold, filledPrice, lotID, model.SellSubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, res, lotID)
}

func (r *SQLiteRepository) ClearSellSubmission(ctx context.Context, lotID int64) error {
	res, err := r.querier().ExecContext(ctx, `
		UPDATE lots SET sell_status=?, sell_order_id='', sell_limit_price=0, sell_created_at=''
		WHERE id=? AND sell_status=?`,
		model.SellNone, lotID, model.SellSubmitted)
	if err != nil {
		return err
	}
	return r.transitionResult(ctx, res, lotID)
}

func (r *SQLiteRepository) transitionResult(ctx context.Context, res sql.Result, lotID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.querier().QueryRowContext(ctx, `SELECT 1 FROM lots WHERE id=?`, lotID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return err
	}
	return model.ErrInvalidTransition
}

func (r *SQLiteRepository) OpenBuySubmitted(ctx context.Context) ([]model.Lot, error) {
	return r.queryLots(ctx, `SELECT `+lotColumns+` FROM lots WHERE buy_status=? ORDER BY id`, model.BuySubmitted)
}

func (r *SQLiteRepository) OpenSellSubmitted(ctx context.Context) ([]model.Lot, error) {
	return r.queryLots(ctx, `SELECT `+lotColumns+` FROM lots WHERE sell_status=? ORDER BY id`, model.SellSubmitted)
}

func (r *SQLiteRepository) UnsoldBoughtLots(ctx context.Context, symbol string) ([]model.Lot, error) {
	return r.queryLots(ctx, `
		SELECT `+lotColumns+` FROM lots
		WHERE symbol=? AND buy_status=? AND sell_status!=?
		ORDER BY id`,
		symbol, model.Bought, model.Sold)
}

func (r *SQLiteRepository) DuplicateBuyExists(ctx context.Context, symbol string, price, tolerance float64) (bool, error) {
	var count int
	err := r.querier().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lots
		WHERE symbol=? AND buy_status=? AND ABS(buy_limit_price - ?) < ?`,
		symbol, model.BuySubmitted, price, tolerance,
	).Scan(&count)
	return count > 0, err
}

func (r *SQLiteRepository) LastFilledBuyPrice(ctx context.Context, symbol string) (float64, bool, error) {
	var price float64
	err := r.querier().QueryRowContext(ctx, `
		SELECT buy_filled_price FROM lots
		WHERE symbol=? AND buy_status=?
		ORDER BY id DESC LIMIT 1`,
		symbol, model.Bought,
	).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

func (r *SQLiteRepository) DeployedCapital(ctx context.Context, symbol string) (float64, error) {
	var locked, reserved float64
	err := r.querier().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(buy_filled_price * qty), 0) FROM lots
		WHERE symbol=? AND buy_status=? AND sell_status!=?`,
		symbol, model.Bought, model.Sold,
	).Scan(&locked)
	if err != nil {
		return 0, err
	}
	err = r.querier().QueryRowContext(ctx, `
		SELECT COALESCE(SUM(buy_limit_price * qty), 0) FROM lots
		WHERE symbol=? AND buy_status=?`,
		symbol, model.BuySubmitted,
	).Scan(&reserved)
	if err != nil {
		return 0, err
	}
	return locked + reserved, nil
}

// WithTx runs fn against a transactional repository view and commits
// only when fn succeeds.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteRepository{DB: r.DB, db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Close() {
	r.DB.Close()
}

func (r *SQLiteRepository) queryLots(ctx context.Context, query string, args ...any) ([]model.Lot, error) {
	rows, err := r.querier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		var (
			l             model.Lot
			buyAt, sellAt string
		)
		if err := rows.Scan(
			&l.ID, &l.Symbol, &l.Qty,
			&l.BuyOrderID, &l.BuyStatus, &l.BuyLimitPrice, &l.BuyFilledPrice, &buyAt,
			&l.SellOrderID, &l.SellStatus, &l.SellLimitPrice, &l.SellFilledPrice, &sellAt,
		); err != nil {
			return nil, err
		}
		l.BuyCreatedAt = parseTime(buyAt)
		l.SellCreatedAt = parseTime(sellAt)
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
