// Package session is what a user interface talks to. Every operation returns
// a Status ready to be shown instead of an error.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/luca-patrignani/finney/attack"
	"github.com/luca-patrignani/finney/ledger"
)

const defaultEventBuffer = 16

// Severity classifies a Status.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Status is the outcome of an operation as shown to the user.
type Status struct {
	Severity Severity
	Message  string
}

func (s Status) String() string {
	return s.Severity.String() + ": " + s.Message
}

func info(format string, args ...any) Status {
	return Status{Info, fmt.Sprintf(format, args...)}
}

func success(format string, args ...any) Status {
	return Status{Success, fmt.Sprintf(format, args...)}
}

func warning(format string, args ...any) Status {
	return Status{Warning, fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) Status {
	return Status{Error, fmt.Sprintf(format, args...)}
}

var attackPending = warning("A pre-mined block is about to be broadcast, wait for it")

// Session ties a ledger to its attack controller.
type Session struct {
	ledger *ledger.Ledger
	attack *attack.Controller
	events chan Status
	logger *slog.Logger
}

type settings struct {
	attackOpts []attack.Option
	logger     *slog.Logger
	buffer     int
}

// Option configures a Session.
type Option func(*settings)

// WithAttackOptions configures the attack controller.
func WithAttackOptions(opts ...attack.Option) Option {
	return func(s *settings) {
		s.attackOpts = append(s.attackOpts, opts...)
	}
}

// WithLogger sets the logger shared with the attack controller.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithEventBuffer sets how many asynchronous statuses are kept before new ones
// are dropped.
func WithEventBuffer(n int) Option {
	return func(s *settings) {
		s.buffer = n
	}
}

// New returns a session over l with its own attack controller.
func New(l *ledger.Ledger, opts ...Option) *Session {
	cfg := settings{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		buffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		ledger: l,
		events: make(chan Status, cfg.buffer),
		logger: cfg.logger,
	}
	attackOpts := append([]attack.Option{attack.WithLogger(cfg.logger)}, cfg.attackOpts...)
	attackOpts = append(attackOpts, attack.WithOnComplete(s.attackCompleted))
	s.attack = attack.New(l, attackOpts...)
	return s
}

// Ledger gives read access to the underlying ledger.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Attack returns the attack controller.
func (s *Session) Attack() *attack.Controller {
	return s.attack
}

// Events delivers the statuses of operations that finish asynchronously.
func (s *Session) Events() <-chan Status {
	return s.events
}

func (s *Session) report(op string, st Status) Status {
	s.logger.Debug("operation finished", "op", op, "severity", st.Severity.String(), "message", st.Message)
	return st
}

// Submit parses the amount the way the transaction form does and queues the
// transfer.
func (s *Session) Submit(sender, receiver, amount string) Status {
	sender, receiver = strings.TrimSpace(sender), strings.TrimSpace(receiver)
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return s.report("submit", failure("Invalid amount %q", amount))
	}

	tx := ledger.Transaction{Sender: sender, Receiver: receiver, Amount: int64(n)}
	err = s.attack.Guard(func() error {
		return s.ledger.SubmitTransaction(sender, receiver, int64(n))
	})
	switch {
	case err == nil:
		return s.report("submit", success("Transaction added: %s", tx))
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("submit", attackPending)
	case errors.Is(err, ledger.ErrInvalidTransaction):
		return s.report("submit", failure("Invalid transaction: sender, receiver and a positive amount are required"))
	case errors.Is(err, ledger.ErrUnknownAccount):
		return s.report("submit", failure("Unknown account: %v", err))
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return s.report("submit", failure("Insufficient balance: %v", err))
	default:
		return s.report("submit", failure("Transaction rejected: %v", err))
	}
}

// Mine mines the pending pool into a new block.
func (s *Session) Mine(ctx context.Context) Status {
	var res ledger.MineResult
	err := s.attack.Guard(func() error {
		var err error
		res, err = s.ledger.Mine(ctx)
		return err
	})
	switch {
	case err == nil:
		return s.report("mine", success("Block #%d mined: %d of %d transactions included (nonce %d)",
			res.Block.Index, res.Included, res.Submitted, res.Block.Nonce))
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("mine", attackPending)
	case errors.Is(err, ledger.ErrNothingToMine):
		return s.report("mine", warning("No transactions to mine"))
	default:
		return s.report("mine", failure("Mining failed: %v", err))
	}
}

// Validate checks the whole chain.
func (s *Session) Validate() Status {
	if err := s.ledger.Verify(); err != nil {
		return s.report("validate", failure("Blockchain is invalid: %v", err))
	}
	return s.report("validate", success("Blockchain is valid"))
}

// EditHash overwrites the stored hash of a block. Like every other
// mutation it is refused while a broadcast is scheduled.
func (s *Session) EditHash(index int, hash string) Status {
	err := s.attack.Guard(func() error {
		return s.ledger.EditHash(index, hash)
	})
	switch {
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("edit_hash", attackPending)
	case err != nil:
		return s.report("edit_hash", failure("Cannot edit hash: %v", err))
	}
	return s.report("edit_hash", info("Hash of block #%d changed", index))
}

// StartAttack arms attack mode.
func (s *Session) StartAttack() Status {
	if !s.attack.Start() {
		return s.report("start_attack", info("Finney attack mode is already active"))
	}
	return s.report("start_attack", info("Finney attack mode activated"))
}

// PreMine mines the pending pool into a block that is held back.
func (s *Session) PreMine(ctx context.Context) Status {
	b, err := s.attack.PreMine(ctx)
	switch {
	case err == nil:
		return s.report("pre_mine", info("Block pre-mined and held back with %d transactions", len(b.Transactions)))
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("pre_mine", attackPending)
	case errors.Is(err, ledger.ErrNothingToMine):
		return s.report("pre_mine", warning("No transactions to pre-mine"))
	case errors.Is(err, attack.ErrBlockAlreadyHeld):
		return s.report("pre_mine", warning("A pre-mined block is already held, broadcast it first"))
	default:
		return s.report("pre_mine", failure("Pre-mining failed: %v", err))
	}
}

// Broadcast appends the held block right away.
func (s *Session) Broadcast() Status {
	b, err := s.attack.Broadcast()
	switch {
	case err == nil:
		return s.report("broadcast", success("Pre-mined block #%d broadcast", b.Index))
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("broadcast", attackPending)
	case errors.Is(err, attack.ErrNoHeldBlock):
		return s.report("broadcast", warning("No pre-mined block to broadcast"))
	default:
		return s.report("broadcast", failure("Broadcast failed: %v", err))
	}
}

// CompleteAttack pays the victim and schedules the broadcast. The final status
// arrives on Events.
func (s *Session) CompleteAttack(ctx context.Context) Status {
	err := s.attack.Complete(ctx)
	switch {
	case err == nil:
		return s.report("complete_attack", info("Payment %s submitted, broadcasting the pre-mined block in %s",
			s.attack.Victim(), s.attack.Delay()))
	case errors.Is(err, attack.ErrNotArmed):
		return s.report("complete_attack", warning("Start the Finney attack first"))
	case errors.Is(err, attack.ErrAttackPending):
		return s.report("complete_attack", attackPending)
	default:
		return s.report("complete_attack", failure("Cannot complete the attack: %v", err))
	}
}

// CancelAttack stops a scheduled broadcast.
func (s *Session) CancelAttack() Status {
	if !s.attack.Cancel() {
		return s.report("cancel_attack", warning("No broadcast is scheduled"))
	}
	return s.report("cancel_attack", info("Scheduled broadcast canceled"))
}

func (s *Session) attackCompleted(o attack.Outcome) {
	var st Status
	switch {
	case o.Err == nil:
		st = success("Pre-mined block #%d broadcast, payment %s superseded", o.Block.Index, s.attack.Victim())
	case errors.Is(o.Err, attack.ErrNoHeldBlock):
		st = warning("Attack finished without a pre-mined block to broadcast")
	default:
		st = failure("Scheduled broadcast failed: %v", o.Err)
	}
	s.report("attack_completed", st)

	select {
	case s.events <- st:
	default:
		s.logger.Warn("event dropped, buffer full", "status", st.String())
	}
}
