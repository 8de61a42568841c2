package broker

import (
	"log/slog"

	"gridbot/internal/config"
)

// NewClient creates a brokerage client from the configuration. With
// credentials present it talks to Alpaca (paper or live endpoint per
// trading.paper_mode); without credentials it falls back to the
// in-memory simulator, which config validation only permits in paper mode.
func NewClient(logger *slog.Logger, trading config.TradingConfig, cfg config.BrokerConfig) Client {
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		logger.Info("no brokerage credentials, using in-memory paper broker")
		return NewPaperClient()
	}
	return NewAlpacaClient(logger, cfg.KeyID, cfg.SecretKey, trading.PaperMode)
}
