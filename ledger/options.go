package ledger

import (
	"io"
	"log/slog"
	"maps"
	"time"
)

// Defaults applied by New.
const (
	DefaultDifficulty  = 2
	DefaultSeedBalance = 100
	// TimestampLayout formats block timestamps. They are display-only but
	// take part in the hash.
	TimestampLayout = "2006-01-02 15:04:05"
)

// DefaultAccounts returns the wallets every new ledger starts with.
func DefaultAccounts() map[string]int64 {
	return map[string]int64{
		"A": DefaultSeedBalance,
		"B": DefaultSeedBalance,
		"C": DefaultSeedBalance,
	}
}

// Admission selects how SubmitTransaction treats balances.
type Admission string

const (
	// Baseline only checks the transaction shape. Overdrafts are caught at
	// mining time.
	Baseline Admission = "baseline"
	// Strict also rejects a transaction whose amount exceeds the sender's
	// confirmed balance. Other pending spends of the same sender are not
	// counted.
	Strict Admission = "strict"
)

// Recorder receives ledger events, typically to export them as metrics.
type Recorder interface {
	TransactionAccepted()
	TransactionRejected(reason string)
	BlockAppended(kind string, included, dropped int, attempts uint64, height int)
	ChainVerified(valid bool)
}

type nopRecorder struct{}

func (nopRecorder) TransactionAccepted() {}

func (nopRecorder) TransactionRejected(string) {}

func (nopRecorder) BlockAppended(string, int, int, uint64, int) {}

func (nopRecorder) ChainVerified(bool) {}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDifficulty sets how many leading zeros a block hash needs.
func WithDifficulty(difficulty int) Option {
	return func(l *Ledger) {
		l.difficulty = difficulty
	}
}

// WithAccounts replaces the default wallets.
func WithAccounts(accounts map[string]int64) Option {
	return func(l *Ledger) {
		l.accounts = balances(maps.Clone(accounts))
	}
}

// WithAdmission selects how submitted transactions are checked.
func WithAdmission(policy Admission) Option {
	return func(l *Ledger) {
		l.admission = policy
	}
}

// WithClock sets the time source used for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithMaxAttempts caps the nonce search of every mined block. Zero disables
// the cap.
func WithMaxAttempts(n uint64) Option {
	return func(l *Ledger) {
		l.maxAttempts = n
	}
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithRecorder sets the hook notified of ledger events.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) {
		l.recorder = r
	}
}

// WithProgress registers a callback invoked with the running attempt count
// while a block is being mined.
func WithProgress(fn func(attempts uint64)) Option {
	return func(l *Ledger) {
		l.progress = fn
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
