package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Trading: TradingConfig{Enabled: true, PaperMode: true},
		Symbols: map[string]SymbolConfig{
			"GLD": {LowerBand: 380, UpperBand: 430, GridPct: 0.006, OrderUSD: 500, MaxCapital: 10000},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("paper mode without credentials is fine", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("live trading requires credentials", func(t *testing.T) {
		cfg := validConfig()
		cfg.Trading.PaperMode = false
		assert.Error(t, cfg.Validate())

		cfg.Broker = BrokerConfig{KeyID: "k", SecretKey: "s"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("no symbols", func(t *testing.T) {
		cfg := validConfig()
		cfg.Symbols = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("inverted band", func(t *testing.T) {
		cfg := validConfig()
		cfg.Symbols["GLD"] = SymbolConfig{LowerBand: 430, UpperBand: 380, GridPct: 0.006, OrderUSD: 500, MaxCapital: 10000}
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown policy", func(t *testing.T) {
		cfg := validConfig()
		cfg.Symbols["GLD"] = SymbolConfig{LowerBand: 380, UpperBand: 430, GridPct: 0.006, OrderUSD: 500, MaxCapital: 10000, Policy: "martingale"}
		assert.Error(t, cfg.Validate())
	})
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyAnchor, SymbolConfig{}.PolicyFor())
	assert.Equal(t, PolicyLadder, SymbolConfig{Policy: PolicyLadder}.PolicyFor())
}
