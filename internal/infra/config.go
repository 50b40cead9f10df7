package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"racebot/internal/domain"
)

// Config holds all application settings. Loaded from YAML, then sensitive
// values are overridden from the environment.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Exchange struct {
		StreamURL string `yaml:"stream_url"`
		APIURL    string `yaml:"api_url"`
		AppKey    string `yaml:"app_key"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`

		Countries    []string `yaml:"countries"`
		MarketTypes  []string `yaml:"market_types"`
		EventTypeIDs []string `yaml:"event_type_ids"`

		HoursToFetch      int `yaml:"hours_to_fetch"`
		KeepAfterStartMin int `yaml:"keep_after_start_min"`
		MaxMarkets        int `yaml:"max_markets"`
		FetchIntervalSec  int `yaml:"fetch_interval_sec"`
		StreamRestartMin  int `yaml:"stream_restart_min"`
		RequestTimeoutSec int `yaml:"request_timeout_sec"`
		// DefaultStake is kept as a string and parsed on access so the
		// YAML layer never touches decimal internals.
		DefaultStake string `yaml:"default_stake"`
	} `yaml:"exchange"`

	Engine struct {
		PassIntervalMS    int `yaml:"pass_interval_ms"`
		ClockIntervalMS   int `yaml:"clock_interval_ms"`
		StrategyReloadSec int `yaml:"strategy_reload_sec"`
		// LiveHosts names the machines allowed to submit real orders;
		// everywhere else "on" strategies degrade to dummy.
		LiveHosts []string `yaml:"live_hosts"`
	} `yaml:"engine"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	API struct {
		Addr string `yaml:"addr"`
	} `yaml:"api"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Exchange.StreamURL == "" || (!strings.HasPrefix(c.Exchange.StreamURL, "ws://") && !strings.HasPrefix(c.Exchange.StreamURL, "wss://")) {
		return fmt.Errorf("invalid stream URL: %s", c.Exchange.StreamURL)
	}
	if c.Exchange.APIURL == "" {
		return fmt.Errorf("exchange API URL is required")
	}
	if len(c.Exchange.EventTypeIDs) == 0 {
		return fmt.Errorf("at least one event type id is required")
	}
	if c.Engine.PassIntervalMS < 0 {
		return fmt.Errorf("pass interval must not be negative")
	}
	if _, err := decimal.NewFromString(c.Exchange.DefaultStake); err != nil {
		return fmt.Errorf("invalid default stake %q: %w", c.Exchange.DefaultStake, err)
	}
	return nil
}

// DefaultStakeDecimal returns the configured default stake. Validate
// guarantees the value parses.
func (c *Config) DefaultStakeDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(c.Exchange.DefaultStake)
	if err != nil {
		return decimal.NewFromInt(5)
	}
	return d
}

// IsLiveHost reports whether hostname may submit real orders.
func (c *Config) IsLiveHost(hostname string) bool {
	for _, h := range c.Engine.LiveHosts {
		if h == hostname {
			return true
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if cfg.Exchange.HoursToFetch == 0 {
		cfg.Exchange.HoursToFetch = 24
	}
	if cfg.Exchange.KeepAfterStartMin == 0 {
		cfg.Exchange.KeepAfterStartMin = 10
	}
	if cfg.Exchange.MaxMarkets == 0 {
		cfg.Exchange.MaxMarkets = 25
	}
	if cfg.Exchange.FetchIntervalSec == 0 {
		cfg.Exchange.FetchIntervalSec = 60
	}
	if cfg.Exchange.StreamRestartMin == 0 {
		cfg.Exchange.StreamRestartMin = 45
	}
	if cfg.Exchange.RequestTimeoutSec == 0 {
		cfg.Exchange.RequestTimeoutSec = 10
	}
	if cfg.Exchange.DefaultStake == "" {
		cfg.Exchange.DefaultStake = "5"
	}
	if cfg.Engine.PassIntervalMS == 0 {
		cfg.Engine.PassIntervalMS = 10
	}
	if cfg.Engine.ClockIntervalMS == 0 {
		cfg.Engine.ClockIntervalMS = 500
	}
	if cfg.Engine.StrategyReloadSec == 0 {
		cfg.Engine.StrategyReloadSec = 15
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "data/racebot.db"
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = ":7779"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
}

// overrideWithEnv replaces credential values from the environment when set.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("RACEBOT_APP_KEY"); key != "" {
		cfg.Exchange.AppKey = key
	}
	if user := os.Getenv("RACEBOT_USERNAME"); user != "" {
		cfg.Exchange.Username = user
	}
	if pass := os.Getenv("RACEBOT_PASSWORD"); pass != "" {
		cfg.Exchange.Password = pass
	}
}
