package attack

import (
	"context"
	"time"

	"github.com/luca-patrignani/finney/ledger"
)

// Ledger is the part of the ledger the controller drives. *ledger.Ledger
// implements it.
type Ledger interface {
	// SubmitTransaction queues a transfer in the pending pool.
	// Returns an error if the transfer is rejected.
	SubmitTransaction(sender, receiver string, amount int64) error

	// MineWithheld mines a block from the whole pending pool, clears the pool
	// and returns the block without appending it.
	MineWithheld(ctx context.Context) (*ledger.Block, error)

	// Broadcast appends a withheld block and applies its transactions.
	Broadcast(b *ledger.Block) error
}

// Scheduler runs a function once after a delay.
type Scheduler interface {
	// After arranges for fn to run once d has elapsed and returns a handle
	// that can prevent it.
	After(d time.Duration, fn func()) Timer
}

// Timer is a pending call created by a Scheduler.
type Timer interface {
	// Stop prevents the call from running. It reports false if the call has
	// already started or was stopped before.
	Stop() bool

	// Remaining returns the time left before the call runs.
	Remaining() time.Duration
}
