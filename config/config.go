// Package config loads the settings of the finney command from defaults, an
// optional file, FINNEY_* environment variables and flags, in that order of
// precedence.
package config

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/luca-patrignani/finney/attack"
	"github.com/luca-patrignani/finney/ledger"
)

const (
	EnvPrefix     = "FINNEY"
	MaxDifficulty = 8
)

// Config holds every setting of the finney command.
type Config struct {
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Attack  AttackConfig  `mapstructure:"attack"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LedgerConfig configures the ledger, under the "ledger" key.
type LedgerConfig struct {
	Difficulty  int      `mapstructure:"difficulty"`
	Accounts    []string `mapstructure:"accounts"`
	SeedBalance int64    `mapstructure:"seed_balance"`
	Admission   string   `mapstructure:"admission"` // baseline|strict
	MaxAttempts uint64   `mapstructure:"max_attempts"`
}

// AttackConfig configures the Finney attack, under the "attack" key.
type AttackConfig struct {
	Delay    time.Duration `mapstructure:"delay"`
	Sender   string        `mapstructure:"sender"`
	Receiver string        `mapstructure:"receiver"`
	Amount   int64         `mapstructure:"amount"`
}

// LogConfig configures logging, under the "log" key.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

// MetricsConfig configures the Prometheus endpoint, under the "metrics" key.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the endpoint
}

// Default returns the settings used when nothing else is given: accounts
// A, B and C with 100 each, difficulty 2 and strict admission.
func Default() Config {
	victim := attack.DefaultVictim()
	return Config{
		Ledger: LedgerConfig{
			Difficulty:  ledger.DefaultDifficulty,
			Accounts:    []string{"A", "B", "C"},
			SeedBalance: ledger.DefaultSeedBalance,
			Admission:   string(ledger.Strict),
			MaxAttempts: 0,
		},
		Attack: AttackConfig{
			Delay:    attack.DefaultDelay,
			Sender:   victim.Sender,
			Receiver: victim.Receiver,
			Amount:   victim.Amount,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// SetDefaults registers every key of Default with v, which also makes the
// keys visible to environment lookups.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("ledger.difficulty", d.Ledger.Difficulty)
	v.SetDefault("ledger.accounts", d.Ledger.Accounts)
	v.SetDefault("ledger.seed_balance", d.Ledger.SeedBalance)
	v.SetDefault("ledger.admission", d.Ledger.Admission)
	v.SetDefault("ledger.max_attempts", d.Ledger.MaxAttempts)
	v.SetDefault("attack.delay", d.Attack.Delay)
	v.SetDefault("attack.sender", d.Attack.Sender)
	v.SetDefault("attack.receiver", d.Attack.Receiver)
	v.SetDefault("attack.amount", d.Attack.Amount)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// Load reads the configuration held by v. Flags must already be bound. When
// file is not empty it is read first and must exist.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config file %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.normalize()
	if err := validate(cfg); err != nil {
		return Config{}, errors.WithMessage(err, "invalid config")
	}
	return cfg, nil
}

func (c *Config) normalize() {
	for i, a := range c.Ledger.Accounts {
		c.Ledger.Accounts[i] = strings.TrimSpace(a)
	}
	c.Ledger.Admission = strings.ToLower(strings.TrimSpace(c.Ledger.Admission))
	c.Attack.Sender = strings.TrimSpace(c.Attack.Sender)
	c.Attack.Receiver = strings.TrimSpace(c.Attack.Receiver)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Metrics.Addr = strings.TrimSpace(c.Metrics.Addr)
}

func validate(cfg Config) error {
	if cfg.Ledger.Difficulty < 0 || cfg.Ledger.Difficulty > MaxDifficulty {
		return errors.Errorf("ledger.difficulty out of range [0, %d]: %d", MaxDifficulty, cfg.Ledger.Difficulty)
	}
	if len(cfg.Ledger.Accounts) == 0 {
		return errors.New("ledger.accounts must not be empty")
	}
	seen := make(map[string]bool, len(cfg.Ledger.Accounts))
	for _, a := range cfg.Ledger.Accounts {
		if a == "" {
			return errors.New("ledger.accounts contains an empty id")
		}
		if !utf8.ValidString(a) {
			return errors.Errorf("ledger.accounts contains an id that is not valid UTF-8: %q", a)
		}
		if seen[a] {
			return errors.Errorf("ledger.accounts contains %q twice", a)
		}
		seen[a] = true
	}
	if cfg.Ledger.SeedBalance <= 0 {
		return errors.Errorf("ledger.seed_balance must be positive: %d", cfg.Ledger.SeedBalance)
	}
	switch ledger.Admission(cfg.Ledger.Admission) {
	case ledger.Baseline, ledger.Strict:
	default:
		return errors.Errorf("invalid ledger.admission: %q", cfg.Ledger.Admission)
	}

	if cfg.Attack.Delay < 0 {
		return errors.Errorf("attack.delay must not be negative: %s", cfg.Attack.Delay)
	}
	if cfg.Attack.Amount <= 0 {
		return errors.Errorf("attack.amount must be positive: %d", cfg.Attack.Amount)
	}
	if !seen[cfg.Attack.Sender] || !seen[cfg.Attack.Receiver] {
		return errors.Errorf("attack.sender and attack.receiver must be ledger accounts, got %q and %q",
			cfg.Attack.Sender, cfg.Attack.Receiver)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "warning", "error"}, cfg.Log.Level) {
		return errors.Errorf("invalid log.level: %q", cfg.Log.Level)
	}
	if !slices.Contains([]string{"text", "json"}, cfg.Log.Format) {
		return errors.Errorf("invalid log.format: %q", cfg.Log.Format)
	}
	return nil
}

// Balances returns the starting wallets.
func (c Config) Balances() map[string]int64 {
	out := make(map[string]int64, len(c.Ledger.Accounts))
	for _, a := range c.Ledger.Accounts {
		out[a] = c.Ledger.SeedBalance
	}
	return out
}

// Victim returns the payment submitted when an attack completes.
func (c Config) Victim() attack.Victim {
	return attack.Victim{Sender: c.Attack.Sender, Receiver: c.Attack.Receiver, Amount: c.Attack.Amount}
}

// LedgerOptions translates the ledger section into constructor options.
func (c Config) LedgerOptions() []ledger.Option {
	return []ledger.Option{
		ledger.WithDifficulty(c.Ledger.Difficulty),
		ledger.WithAccounts(c.Balances()),
		ledger.WithAdmission(ledger.Admission(c.Ledger.Admission)),
		ledger.WithMaxAttempts(c.Ledger.MaxAttempts),
	}
}

// AttackOptions translates the attack section into controller options.
func (c Config) AttackOptions() []attack.Option {
	return []attack.Option{
		attack.WithDelay(c.Attack.Delay),
		attack.WithVictim(c.Victim()),
	}
}
