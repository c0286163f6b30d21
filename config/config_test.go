package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luca-patrignani/finney/attack"
	"github.com/luca-patrignani/finney/ledger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("FINNEY_LEDGER_DIFFICULTY", "3")
	t.Setenv("FINNEY_LEDGER_ACCOUNTS", "alice,bob")
	t.Setenv("FINNEY_LEDGER_ADMISSION", "Baseline")
	t.Setenv("FINNEY_ATTACK_SENDER", "alice")
	t.Setenv("FINNEY_ATTACK_RECEIVER", "bob")
	t.Setenv("FINNEY_ATTACK_DELAY", "250ms")
	t.Setenv("FINNEY_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Ledger.Difficulty)
	assert.Equal(t, []string{"alice", "bob"}, cfg.Ledger.Accounts)
	assert.Equal(t, "baseline", cfg.Ledger.Admission)
	assert.Equal(t, 250*time.Millisecond, cfg.Attack.Delay)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finney.yaml")
	content := `ledger:
  difficulty: 1
  seed_balance: 50
  max_attempts: 1000
attack:
  amount: 25
log:
  format: json
metrics:
  addr: 127.0.0.1:9100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Ledger.Difficulty)
	assert.Equal(t, int64(50), cfg.Ledger.SeedBalance)
	assert.Equal(t, uint64(1000), cfg.Ledger.MaxAttempts)
	assert.Equal(t, int64(25), cfg.Attack.Amount)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, []string{"A", "B", "C"}, cfg.Ledger.Accounts, "unset keys keep their default")
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finney.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger:\n  difficulty: 1\n"), 0o600))
	t.Setenv("FINNEY_LEDGER_DIFFICULTY", "4")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Ledger.Difficulty)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"difficulty zero", func(c *Config) { c.Ledger.Difficulty = 0 }, ""},
		{"difficulty too high", func(c *Config) { c.Ledger.Difficulty = 9 }, "ledger.difficulty"},
		{"negative difficulty", func(c *Config) { c.Ledger.Difficulty = -1 }, "ledger.difficulty"},
		{"no accounts", func(c *Config) { c.Ledger.Accounts = nil }, "ledger.accounts"},
		{"empty account", func(c *Config) { c.Ledger.Accounts = []string{"A", ""} }, "empty id"},
		{"invalid utf-8 account", func(c *Config) { c.Ledger.Accounts = []string{"A", "B", "C", "\xff"} }, "not valid UTF-8"},
		{"duplicate account", func(c *Config) { c.Ledger.Accounts = []string{"A", "C", "A"} }, "twice"},
		{"zero seed", func(c *Config) { c.Ledger.SeedBalance = 0 }, "ledger.seed_balance"},
		{"unknown admission", func(c *Config) { c.Ledger.Admission = "lenient" }, "ledger.admission"},
		{"negative delay", func(c *Config) { c.Attack.Delay = -time.Second }, "attack.delay"},
		{"zero attack amount", func(c *Config) { c.Attack.Amount = 0 }, "attack.amount"},
		{"attack sender not an account", func(c *Config) { c.Attack.Sender = "Z" }, "attack.sender"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := validate(cfg)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestOptionsBuildLedgerAndController(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Accounts = []string{"x", "y"}
	cfg.Ledger.SeedBalance = 7
	cfg.Ledger.Difficulty = 1
	cfg.Ledger.Admission = "baseline"
	cfg.Attack.Sender, cfg.Attack.Receiver, cfg.Attack.Amount = "x", "y", 3
	cfg.Attack.Delay = time.Second

	l := ledger.New(cfg.LedgerOptions()...)
	assert.Equal(t, []ledger.Account{{ID: "x", Balance: 7}, {ID: "y", Balance: 7}}, l.Accounts())
	assert.Equal(t, 1, l.Difficulty())
	assert.Equal(t, ledger.Baseline, l.Admission())

	c := attack.New(l, cfg.AttackOptions()...)
	assert.Equal(t, attack.Victim{Sender: "x", Receiver: "y", Amount: 3}, c.Victim())
	assert.Equal(t, time.Second, c.Delay())
}
