package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Block kinds reported to the Recorder.
const (
	KindMined     = "mined"
	KindBroadcast = "broadcast"
)

// Errors returned by Ledger operations. Verify wraps the last three with
// the index of the offending block.
var (
	ErrNothingToMine    = errors.New("no pending transactions")
	ErrBlockNotFound    = errors.New("block not found")
	ErrNoBlock          = errors.New("no block to broadcast")
	ErrInvalidGenesis   = errors.New("invalid genesis block")
	ErrHashMismatch     = errors.New("stored hash does not match block contents")
	ErrBrokenLink       = errors.New("previous hash does not match previous block")
	ErrInsufficientWork = errors.New("hash does not satisfy difficulty")
)

// Ledger owns the chain, the pending pool and the account balances.
type Ledger struct {
	mu sync.RWMutex

	chain      []*Block
	difficulty int
	pending    []Transaction
	accounts   balances

	admission   Admission
	maxAttempts uint64
	now         func() time.Time
	progress    func(attempts uint64)
	logger      *slog.Logger
	recorder    Recorder
}

// MineResult describes a successful Mine call.
type MineResult struct {
	Block     Block
	Included  int
	Submitted int
	Attempts  uint64
}

// Dropped is the number of pending transactions left out of the block.
func (r MineResult) Dropped() int {
	return r.Submitted - r.Included
}

// New creates a ledger holding only the genesis block. Without options it
// seeds accounts A, B and C with 100 each, uses difficulty 2 and strict
// admission.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		difficulty: DefaultDifficulty,
		accounts:   balances(DefaultAccounts()),
		admission:  Strict,
		now:        time.Now,
		logger:     discardLogger(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}

	genesis := NewBlock(0, l.timestamp(), nil, "0")
	l.chain = []*Block{genesis}
	return l
}

func (l *Ledger) timestamp() string {
	return l.now().Format(TimestampLayout)
}

// SubmitTransaction validates a transfer and appends it to the pending pool.
// Nothing changes when an error is returned.
func (l *Ledger) SubmitTransaction(sender, receiver string, amount int64) error {
	tx := Transaction{Sender: sender, Receiver: receiver, Amount: amount}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.admit(tx); err != nil {
		l.recorder.TransactionRejected(rejectReason(err))
		l.logger.Debug("transaction rejected", "sender", sender, "receiver", receiver, "amount", amount, "error", err)
		return err
	}
	l.pending = append(l.pending, tx)
	l.recorder.TransactionAccepted()
	l.logger.Debug("transaction queued", "sender", sender, "receiver", receiver, "amount", amount, "pending", len(l.pending))
	return nil
}

func (l *Ledger) admit(tx Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	senderBalance, err := l.accounts.get(tx.Sender)
	if err != nil {
		return err
	}
	if _, err := l.accounts.get(tx.Receiver); err != nil {
		return err
	}
	if l.admission == Strict && senderBalance < tx.Amount {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientBalance, tx.Sender, senderBalance, tx.Amount)
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransaction):
		return "invalid"
	case errors.Is(err, ErrUnknownAccount):
		return "unknown_account"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "other"
	}
}

// Mine groups the pending transactions into a new block. Transactions are
// replayed in submission order against the balances as updated by the ones
// before them; those that would overdraw their sender are dropped. After the
// proof of work succeeds the block is appended, the balances are committed
// and the pool is cleared, dropped transactions included. If the search is
// canceled or exhausted nothing changes.
func (l *Ledger) Mine(ctx context.Context) (MineResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return MineResult{}, ErrNothingToMine
	}

	scratch := l.accounts.clone()
	included := make([]Transaction, 0, len(l.pending))
	for _, tx := range l.pending {
		bal, err := scratch.get(tx.Sender)
		if err != nil || bal-tx.Amount < 0 {
			continue
		}
		if err := scratch.transfer(tx); err != nil {
			continue
		}
		included = append(included, tx)
	}

	b := NewBlock(len(l.chain), l.timestamp(), included, l.tip().Hash)
	attempts, err := b.Mine(ctx, l.difficulty, l.maxAttempts, l.progress)
	if err != nil {
		l.logger.Warn("mining aborted", "index", b.Index, "attempts", attempts, "error", err)
		return MineResult{Attempts: attempts}, err
	}

	res := MineResult{
		Block:     *b.clone(),
		Included:  len(included),
		Submitted: len(l.pending),
		Attempts:  attempts,
	}
	l.chain = append(l.chain, b)
	l.accounts = scratch
	l.pending = nil

	l.recorder.BlockAppended(KindMined, res.Included, res.Dropped(), attempts, len(l.chain))
	l.logger.Info("block mined", "index", b.Index, "hash", b.Hash, "nonce", b.Nonce,
		"included", res.Included, "submitted", res.Submitted, "attempts", attempts)
	return res, nil
}

// MineWithheld mines a block from the whole pending pool without appending
// it. No balance is checked or changed: the pool is consumed into the
// returned block, which the caller may later hand to Broadcast.
func (l *Ledger) MineWithheld(ctx context.Context) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, ErrNothingToMine
	}

	b := NewBlock(len(l.chain), l.timestamp(), l.pending, l.tip().Hash)
	attempts, err := b.Mine(ctx, l.difficulty, l.maxAttempts, l.progress)
	if err != nil {
		l.logger.Warn("withheld mining aborted", "index", b.Index, "attempts", attempts, "error", err)
		return nil, err
	}
	l.pending = nil

	l.logger.Info("block mined and withheld", "index", b.Index, "hash", b.Hash,
		"transactions", len(b.Transactions), "attempts", attempts)
	return b, nil
}

// Broadcast appends a previously withheld block as is and applies every one
// of its transactions directly to the balances, then clears the pending pool.
// Balances are not checked, so a sender may end up negative. A block whose
// previous hash no longer matches the tip is still appended; Verify will
// report the broken link.
func (l *Ledger) Broadcast(b *Block) error {
	if b == nil {
		return ErrNoBlock
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	scratch := l.accounts.clone()
	for _, tx := range b.Transactions {
		if err := scratch.transfer(tx); err != nil {
			return fmt.Errorf("broadcast block %d: %w", b.Index, err)
		}
	}

	if tip := l.tip(); b.PrevHash != tip.Hash || b.Index != len(l.chain) {
		l.logger.Warn("broadcasting stale block", "index", b.Index, "height", len(l.chain),
			"prev_hash", b.PrevHash, "tip_hash", tip.Hash)
	}

	l.chain = append(l.chain, b.clone())
	l.accounts = scratch
	dropped := len(l.pending)
	l.pending = nil

	l.recorder.BlockAppended(KindBroadcast, len(b.Transactions), 0, 0, len(l.chain))
	l.logger.Info("withheld block broadcast", "index", b.Index, "hash", b.Hash,
		"transactions", len(b.Transactions), "superseded_pending", dropped)
	return nil
}

// Verify walks the chain and returns the first violation found, wrapped with
// the offending block index.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	err := l.verify()
	l.recorder.ChainVerified(err == nil)
	return err
}

func (l *Ledger) verify() error {
	if l.chain[0].PrevHash != "0" {
		return ErrInvalidGenesis
	}
	for i := 1; i < len(l.chain); i++ {
		if err := validateBlock(l.chain[i], l.chain[i-1], l.difficulty); err != nil {
			return fmt.Errorf("block %d invalid: %w", i, err)
		}
	}
	return nil
}

func validateBlock(current, previous *Block, difficulty int) error {
	if current.Hash != current.CalculateHash() {
		return ErrHashMismatch
	}
	if current.PrevHash != previous.Hash {
		return ErrBrokenLink
	}
	if !MeetsDifficulty(current.Hash, difficulty) {
		return ErrInsufficientWork
	}
	return nil
}

// IsValid reports whether Verify finds no violation.
func (l *Ledger) IsValid() bool {
	return l.Verify() == nil
}

// EditHash overwrites the stored hash of the block at index.
func (l *Ledger) EditHash(index int, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 || index >= len(l.chain) {
		return fmt.Errorf("%w: index %d, height %d", ErrBlockNotFound, index, len(l.chain))
	}
	l.chain[index].EditHash(hash)
	l.logger.Warn("block hash overwritten", "index", index, "hash", hash)
	return nil
}

func (l *Ledger) tip() *Block {
	return l.chain[len(l.chain)-1]
}

// Tip returns a copy of the last block.
func (l *Ledger) Tip() Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return *l.tip().clone()
}

// Block returns a copy of the block at index.
func (l *Ledger) Block(index int) (Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.chain) {
		return Block{}, fmt.Errorf("%w: index %d, height %d", ErrBlockNotFound, index, len(l.chain))
	}
	return *l.chain[index].clone(), nil
}

// Chain returns a copy of every block, genesis first.
func (l *Ledger) Chain() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Block, 0, len(l.chain))
	for _, b := range l.chain {
		out = append(out, *b.clone())
	}
	return out
}

// Len returns the number of blocks, genesis included.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Difficulty returns the number of leading zeros a block hash needs.
func (l *Ledger) Difficulty() int {
	return l.difficulty
}

// Admission returns the policy applied to submitted transactions.
func (l *Ledger) Admission() Admission {
	return l.admission
}

// Pending returns the pool in submission order.
func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Transaction, len(l.pending))
	copy(out, l.pending)
	return out
}

// Accounts returns every wallet sorted by id.
func (l *Ledger) Accounts() []Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.sorted()
}

// Balance returns the confirmed balance of id, or ErrUnknownAccount.
func (l *Ledger) Balance(id string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.get(id)
}

// TotalSupply is the sum of all balances.
func (l *Ledger) TotalSupply() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.total()
}
