package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/luca-patrignani/finney/attack"
	"github.com/luca-patrignani/finney/config"
	"github.com/luca-patrignani/finney/ledger"
	"github.com/luca-patrignani/finney/logging"
	"github.com/luca-patrignani/finney/metrics"
	"github.com/luca-patrignani/finney/session"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      config.Config
	logger   *slog.Logger
	registry *prom.Registry
	recorder *metrics.Recorder
	meter    *meter
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), meter: &meter{}}

	root := &cobra.Command{
		Use:           "finney",
		Short:         "A proof-of-work toy ledger that demonstrates the Finney attack",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	d := config.Default()
	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.Int("difficulty", d.Ledger.Difficulty, "leading zeros required in a block hash")
	flags.StringSlice("accounts", d.Ledger.Accounts, "account ids")
	flags.Int64("seed-balance", d.Ledger.SeedBalance, "starting balance of every account")
	flags.String("admission", d.Ledger.Admission, "submission policy: baseline|strict")
	flags.Uint64("max-attempts", d.Ledger.MaxAttempts, "hash attempts per block before giving up, 0 for no limit")
	flags.Duration("attack-delay", d.Attack.Delay, "wait between the victim payment and the broadcast")
	flags.String("log-level", d.Log.Level, "log level: debug|info|warn|error")
	flags.String("log-format", d.Log.Format, "log format: text|json")
	flags.String("metrics-addr", d.Metrics.Addr, "serve Prometheus metrics on this address, empty to disable")

	bindings := map[string]string{
		"ledger.difficulty":   "difficulty",
		"ledger.accounts":     "accounts",
		"ledger.seed_balance": "seed-balance",
		"ledger.admission":    "admission",
		"ledger.max_attempts": "max-attempts",
		"attack.delay":        "attack-delay",
		"log.level":           "log-level",
		"log.format":          "log-format",
		"metrics.addr":        "metrics-addr",
	}
	for key, name := range bindings {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(newPlayCmd(a), newDemoCmd(a), newVersionCmd())
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	a.registry = prom.NewRegistry()
	a.recorder = metrics.New(a.registry)
	a.logger.Debug("configuration loaded", "difficulty", cfg.Ledger.Difficulty,
		"admission", cfg.Ledger.Admission, "accounts", cfg.Ledger.Accounts)
	return nil
}

// newSession builds a fresh ledger and session from the loaded configuration.
func (a *app) newSession(extra ...attack.Option) *session.Session {
	opts := append(a.cfg.LedgerOptions(),
		ledger.WithLogger(a.logger),
		ledger.WithRecorder(a.recorder),
		ledger.WithProgress(a.meter.report),
	)
	l := ledger.New(opts...)
	return session.New(l,
		session.WithLogger(a.logger),
		session.WithAttackOptions(append(a.cfg.AttackOptions(), extra...)...),
	)
}

// run executes fn, alongside the metrics endpoint when one is configured.
// The endpoint is shut down once fn returns.
func (a *app) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.cfg.Metrics.Addr == "" {
		return fn(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("serving metrics", "addr", a.cfg.Metrics.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "metrics server")
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("metrics server shutdown", "error", err)
			}
		}()
		return fn(ctx)
	})
	return g.Wait()
}
