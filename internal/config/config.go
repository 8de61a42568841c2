package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Buy policy names accepted in SymbolConfig.Policy.
const (
	PolicyAnchor = "anchor"
	PolicyLadder = "ladder"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Trading  TradingConfig
	Server   ServerConfig
	Database DatabaseConfig
	Broker   BrokerConfig
	Notifier NotifierConfig
	Symbols  map[string]SymbolConfig
}

// TradingConfig defines the process-wide trading switches.
type TradingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	PaperMode bool   `mapstructure:"paper_mode"`
	RunToken  string `mapstructure:"run_token"`
}

// ServerConfig defines the HTTP trigger settings.
type ServerConfig struct {
	Port int
}

// DatabaseConfig defines the lot store settings. Driver is "postgres"
// or "sqlite"; Path is only used by sqlite, the rest only by postgres.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string `mapstructure:"dbname"`
	Path     string
}

// BrokerConfig defines the brokerage credentials.
type BrokerConfig struct {
	KeyID     string `mapstructure:"key_id"`
	SecretKey string `mapstructure:"secret_key"`
}

// NotifierConfig defines the outbound notification settings.
// Empty TelegramToken disables notifications.
type NotifierConfig struct {
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`
}

// SymbolConfig defines the grid settings for one traded symbol.
type SymbolConfig struct {
	LowerBand  float64 `mapstructure:"lower_band"`
	UpperBand  float64 `mapstructure:"upper_band"`
	GridPct    float64 `mapstructure:"grid_pct"`
	OrderUSD   float64 `mapstructure:"order_usd"`
	MaxCapital float64 `mapstructure:"max_capital"`
	Policy     string  `mapstructure:"policy"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("trading.enabled", true)
	viper.SetDefault("trading.paper_mode", true)
	viper.SetDefault("server.port", 10000)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", "gridbot.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	err = config.Validate()
	return
}

// Validate rejects configurations the process must not start with.
func (c Config) Validate() error {
	if !c.Trading.PaperMode && (c.Broker.KeyID == "" || c.Broker.SecretKey == "") {
		return fmt.Errorf("live trading requires broker.key_id and broker.secret_key")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	for sym, sc := range c.Symbols {
		if sc.LowerBand <= 0 || sc.UpperBand <= sc.LowerBand {
			return fmt.Errorf("symbol %s: band [%v, %v] is not a valid range", sym, sc.LowerBand, sc.UpperBand)
		}
		if sc.GridPct <= 0 {
			return fmt.Errorf("symbol %s: grid_pct must be > 0", sym)
		}
		if sc.OrderUSD <= 0 {
			return fmt.Errorf("symbol %s: order_usd must be > 0", sym)
		}
		if sc.MaxCapital <= 0 {
			return fmt.Errorf("symbol %s: max_capital must be > 0", sym)
		}
		switch sc.Policy {
		case "", PolicyAnchor, PolicyLadder:
		default:
			return fmt.Errorf("symbol %s: unknown policy %q", sym, sc.Policy)
		}
	}
	return nil
}

// PolicyFor returns the effective buy policy for a symbol config.
func (sc SymbolConfig) PolicyFor() string {
	if sc.Policy == "" {
		return PolicyAnchor
	}
	return sc.Policy
}
