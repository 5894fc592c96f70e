package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode        string `yaml:"mode"` // DRY_RUN or LIVE
	PollSeconds int    `yaml:"poll_seconds"`

	State struct {
		Path      string `yaml:"path"`
		BackupDir string `yaml:"backup_dir"`
	} `yaml:"state"`

	JournalPath   string `yaml:"journal_path"`
	LockPath      string `yaml:"lock_path"`
	HeartbeatPath string `yaml:"heartbeat_path"`
	MetricsAddr   string `yaml:"metrics_addr"`

	Risk struct {
		MaxBetSize           float64 `yaml:"max_bet_size"`
		MaxDailyLoss         float64 `yaml:"max_daily_loss"`
		MaxTotalLoss         float64 `yaml:"max_total_loss"`
		MaxOpenPositions     int     `yaml:"max_open_positions"`
		MaxEntryPrice        float64 `yaml:"max_entry_price"`
		MinSpread            float64 `yaml:"min_spread"`
		MaxSpread            float64 `yaml:"max_spread"`
		MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	} `yaml:"risk"`

	Sizing struct {
		Mode            string  `yaml:"mode"` // fixed, percent, kelly
		Bankroll        float64 `yaml:"bankroll"`
		BaseBet         float64 `yaml:"base_bet"`
		MinBet          float64 `yaml:"min_bet"`
		MaxBet          float64 `yaml:"max_bet"`
		BankrollPercent float64 `yaml:"bankroll_percent"`
		DefaultWinRate  float64 `yaml:"default_win_rate"`
	} `yaml:"sizing"`

	Execution struct {
		MaxRetries           int `yaml:"max_retries"`
		RetryDelaySeconds    int `yaml:"retry_delay_seconds"`
		VerifyTimeoutSeconds int `yaml:"verify_timeout_seconds"`
		PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
	} `yaml:"execution"`

	Exchange struct {
		ClobHost     string `yaml:"clob_host"`
		GammaHost    string `yaml:"gamma_host"`
		WSHost       string `yaml:"ws_host"`
		UseWebsocket bool   `yaml:"use_websocket"`
	} `yaml:"exchange"`

	Signal struct {
		Provider string `yaml:"provider"` // NOOP or FIXTURE
	} `yaml:"signal"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive, got %.2f", c.Risk.MaxDailyLoss)
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("risk.max_open_positions must be positive, got %d", c.Risk.MaxOpenPositions)
	}
	if c.Risk.MaxEntryPrice <= 0 || c.Risk.MaxEntryPrice >= 1 {
		return fmt.Errorf("risk.max_entry_price must be in (0,1), got %.2f", c.Risk.MaxEntryPrice)
	}
	if c.Risk.MinSpread < 0 || c.Risk.MaxSpread <= c.Risk.MinSpread {
		return fmt.Errorf("risk spread bounds invalid: min %.4f max %.4f", c.Risk.MinSpread, c.Risk.MaxSpread)
	}
	if m := c.Sizing.Mode; m != "fixed" && m != "percent" && m != "kelly" {
		return fmt.Errorf("sizing.mode must be 'fixed', 'percent', or 'kelly', got '%s'", m)
	}
	if c.Execution.MaxRetries <= 0 {
		return fmt.Errorf("execution.max_retries must be positive, got %d", c.Execution.MaxRetries)
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// Default returns a config populated with defaults, as if loaded from
// an empty file.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.PollSeconds == 0 {
		c.PollSeconds = 60
	}
	if c.State.Path == "" {
		c.State.Path = "state.json"
	}
	if c.State.BackupDir == "" {
		c.State.BackupDir = "backups"
	}
	if c.JournalPath == "" {
		c.JournalPath = "data/journal.db"
	}
	if c.LockPath == "" {
		c.LockPath = "bot.pid"
	}
	if c.HeartbeatPath == "" {
		c.HeartbeatPath = ".heartbeat"
	}
	if c.Risk.MaxBetSize == 0 {
		c.Risk.MaxBetSize = 50
	}
	if c.Risk.MaxDailyLoss == 0 {
		c.Risk.MaxDailyLoss = 100
	}
	if c.Risk.MaxTotalLoss == 0 {
		c.Risk.MaxTotalLoss = 500
	}
	if c.Risk.MaxOpenPositions == 0 {
		c.Risk.MaxOpenPositions = 3
	}
	if c.Risk.MaxEntryPrice == 0 {
		c.Risk.MaxEntryPrice = 0.60
	}
	if c.Risk.MinSpread == 0 {
		c.Risk.MinSpread = 0.01
	}
	if c.Risk.MaxSpread == 0 {
		c.Risk.MaxSpread = 0.10
	}
	if c.Risk.MaxConsecutiveLosses == 0 {
		c.Risk.MaxConsecutiveLosses = 5
	}
	if c.Sizing.Mode == "" {
		c.Sizing.Mode = "fixed"
	}
	if c.Sizing.Bankroll == 0 {
		c.Sizing.Bankroll = 100
	}
	if c.Sizing.BaseBet == 0 {
		c.Sizing.BaseBet = 5
	}
	if c.Sizing.MinBet == 0 {
		c.Sizing.MinBet = 3
	}
	if c.Sizing.MaxBet == 0 {
		c.Sizing.MaxBet = 50
	}
	if c.Sizing.BankrollPercent == 0 {
		c.Sizing.BankrollPercent = 0.02
	}
	if c.Sizing.DefaultWinRate == 0 {
		c.Sizing.DefaultWinRate = 0.55
	}
	if c.Execution.MaxRetries == 0 {
		c.Execution.MaxRetries = 3
	}
	if c.Execution.RetryDelaySeconds == 0 {
		c.Execution.RetryDelaySeconds = 2
	}
	if c.Execution.VerifyTimeoutSeconds == 0 {
		c.Execution.VerifyTimeoutSeconds = 30
	}
	if c.Execution.PollIntervalSeconds == 0 {
		c.Execution.PollIntervalSeconds = 2
	}
	if c.Exchange.ClobHost == "" {
		c.Exchange.ClobHost = "https://clob.polymarket.com"
	}
	if c.Exchange.GammaHost == "" {
		c.Exchange.GammaHost = "https://gamma-api.polymarket.com"
	}
	if c.Exchange.WSHost == "" {
		// Host only; the feed appends the channel path.
		c.Exchange.WSHost = "wss://ws-subscriptions-clob.polymarket.com"
	}
	if c.Signal.Provider == "" {
		c.Signal.Provider = "NOOP"
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Execution.RetryDelaySeconds) * time.Second
}

func (c *Config) VerifyTimeout() time.Duration {
	return time.Duration(c.Execution.VerifyTimeoutSeconds) * time.Second
}

func (c *Config) VerifyPollInterval() time.Duration {
	return time.Duration(c.Execution.PollIntervalSeconds) * time.Second
}
