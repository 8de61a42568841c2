package grid

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gridbot/internal/broker"
	"gridbot/internal/database"
	"gridbot/internal/model"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) InsertBuy(ctx context.Context, symbol, orderID string, limitPrice float64, qty int64, createdAt time.Time) (int64, error) {
	args := m.Called(ctx, symbol, orderID, limitPrice, qty, createdAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) MarkBuyFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	args := m.Called(ctx, lotID, filledPrice)
	return args.Error(0)
}

func (m *MockRepository) MarkBuyCanceled(ctx context.Context, lotID int64) error {
	args := m.Called(ctx, lotID)
	return args.Error(0)
}

func (m *MockRepository) MarkSellSubmitted(ctx context.Context, lotID int64, orderID string, limitPrice float64, createdAt time.Time) error {
	args := m.Called(ctx, lotID, orderID, limitPrice, createdAt)
	return args.Error(0)
}

func (m *MockRepository) MarkSellFilled(ctx context.Context, lotID int64, filledPrice float64) error {
	args := m.Called(ctx, lotID, filledPrice)
	return args.Error(0)
}

func (m *MockRepository) ClearSellSubmission(ctx context.Context, lotID int64) error {
	args := m.Called(ctx, lotID)
	return args.Error(0)
}

func (m *MockRepository) OpenBuySubmitted(ctx context.Context) ([]model.Lot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Lot), args.Error(1)
}

func (m *MockRepository) OpenSellSubmitted(ctx context.Context) ([]model.Lot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Lot), args.Error(1)
}

func (m *MockRepository) UnsoldBoughtLots(ctx context.Context, symbol string) ([]model.Lot, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).([]model.Lot), args.Error(1)
}

func (m *MockRepository) DuplicateBuyExists(ctx context.Context, symbol string, price, tolerance float64) (bool, error) {
	args := m.Called(ctx, symbol, price, tolerance)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) LastFilledBuyPrice(ctx context.Context, symbol string) (float64, bool, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Bool(1), args.Error(2)
}

func (m *MockRepository) DeployedCapital(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

// WithTx runs fn against the mock itself; transaction scoping is covered
// by the store integration tests.
func (m *MockRepository) WithTx(ctx context.Context, fn func(database.Repository) error) error {
	return fn(m)
}

func (m *MockRepository) Close() {}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) GetName() string { return "mock" }

func (m *MockBroker) GetLatestTrade(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockBroker) GetOrderByID(ctx context.Context, orderID string) (broker.Order, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(broker.Order), args.Error(1)
}

func (m *MockBroker) SubmitLimitOrder(ctx context.Context, symbol string, qty int64, side broker.OrderSide, limitPrice float64, timeInForce string) (string, error) {
	args := m.Called(ctx, symbol, qty, side, limitPrice, timeInForce)
	return args.String(0), args.Error(1)
}

func (m *MockBroker) GetClock(ctx context.Context) (broker.Clock, error) {
	args := m.Called(ctx)
	return args.Get(0).(broker.Clock), args.Error(1)
}

func (m *MockBroker) GetOpenPosition(ctx context.Context, symbol string) (float64, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(float64), args.Error(1)
}
