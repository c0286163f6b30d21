package attack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/luca-patrignani/finney/ledger"
)

// DefaultDelay is how long Complete waits before broadcasting the held block.
const DefaultDelay = 5 * time.Second

// Errors returned by the Controller.
var (
	ErrNotArmed         = errors.New("attack mode is not active")
	ErrNoHeldBlock      = errors.New("no pre-mined block held")
	ErrBlockAlreadyHeld = errors.New("a pre-mined block is already held")
	ErrAttackPending    = errors.New("a broadcast is already scheduled")
)

// Phase is the externally visible state of the controller.
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseArmed              Phase = "armed"
	PhasePreMined           Phase = "pre_mined"
	PhaseBroadcastScheduled Phase = "broadcast_scheduled"
)

// Victim is the payment submitted while the withheld block is still hidden.
type Victim struct {
	Sender   string
	Receiver string
	Amount   int64
}

// String renders the payment the way the pending list shows it.
func (v Victim) String() string {
	return fmt.Sprintf("From %s to %s, Amount: %d", v.Sender, v.Receiver, v.Amount)
}

// DefaultVictim is the payment A makes to C in the classic demonstration.
func DefaultVictim() Victim {
	return Victim{Sender: "A", Receiver: "C", Amount: 10}
}

// Outcome reports how a scheduled broadcast ended. Block is the block that
// was broadcast, nil if there was none.
type Outcome struct {
	Block *ledger.Block
	Err   error
}

// Controller runs a Finney attack against a ledger: a block is mined and
// held back, a second payment is made, and the held block is then published
// so that it supersedes the payment.
type Controller struct {
	mu sync.Mutex

	ledger     Ledger
	scheduler  Scheduler
	delay      time.Duration
	victim     Victim
	onComplete func(Outcome)
	logger     *slog.Logger

	armed bool
	held  *ledger.Block
	timer Timer
	// generation of the scheduled broadcast, so a call that lost the race
	// against Cancel does nothing
	gen       uint64
	stopWatch func() bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithDelay sets how long Complete waits before broadcasting.
func WithDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithVictim sets the payment submitted by Complete.
func WithVictim(v Victim) Option {
	return func(c *Controller) {
		c.victim = v
	}
}

// WithScheduler replaces the real-time scheduler, mostly for tests.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithOnComplete registers a function called after every scheduled
// broadcast, from the scheduler's goroutine.
func WithOnComplete(fn func(Outcome)) Option {
	return func(c *Controller) {
		c.onComplete = fn
	}
}

// WithLogger sets the logger used for attack events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New returns an idle controller driving l.
func New(l Ledger, opts ...Option) *Controller {
	c := &Controller{
		ledger:     l,
		scheduler:  NewScheduler(),
		delay:      DefaultDelay,
		victim:     DefaultVictim(),
		onComplete: func(Outcome) {},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the current step of the attack.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase()
}

func (c *Controller) phase() Phase {
	switch {
	case c.timer != nil:
		return PhaseBroadcastScheduled
	case c.held != nil:
		return PhasePreMined
	case c.armed:
		return PhaseArmed
	default:
		return PhaseIdle
	}
}

// Armed reports whether attack mode is active.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Held returns a copy of the withheld block, if any.
func (c *Controller) Held() (ledger.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held == nil {
		return ledger.Block{}, false
	}
	b := *c.held
	b.Transactions = slices.Clone(c.held.Transactions)
	return b, true
}

// Victim returns the payment Complete submits.
func (c *Controller) Victim() Victim {
	return c.victim
}

// Delay returns the wait between Complete and the broadcast.
func (c *Controller) Delay() time.Duration {
	return c.delay
}

// Remaining returns the time left before the scheduled broadcast and whether
// one is scheduled.
func (c *Controller) Remaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return 0, false
	}
	return c.timer.Remaining(), true
}

// Start arms attack mode. It does not touch the ledger. It reports false if
// the mode was already armed.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		return false
	}
	c.armed = true
	c.logger.Info("attack mode armed")
	return true
}

// PreMine mines the whole pending pool into a block that is kept hidden.
func (c *Controller) PreMine(ctx context.Context) (ledger.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		return ledger.Block{}, ErrAttackPending
	}
	if c.held != nil {
		return ledger.Block{}, ErrBlockAlreadyHeld
	}
	b, err := c.ledger.MineWithheld(ctx)
	if err != nil {
		return ledger.Block{}, err
	}
	c.held = b
	c.logger.Info("block pre-mined and held", "index", b.Index, "hash", b.Hash, "transactions", len(b.Transactions))

	out := *b
	out.Transactions = slices.Clone(b.Transactions)
	return out, nil
}

// Broadcast publishes the held block immediately.
func (c *Controller) Broadcast() (ledger.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		return ledger.Block{}, ErrAttackPending
	}
	b, err := c.broadcast()
	if err != nil {
		return ledger.Block{}, err
	}
	return *b, nil
}

func (c *Controller) broadcast() (*ledger.Block, error) {
	if c.held == nil {
		return nil, ErrNoHeldBlock
	}
	b := c.held
	if err := c.ledger.Broadcast(b); err != nil {
		return nil, err
	}
	c.held = nil
	c.logger.Info("held block broadcast", "index", b.Index, "hash", b.Hash)
	return b, nil
}

// Guard runs fn unless a broadcast is scheduled, in which case it returns
// ErrAttackPending. A scheduled broadcast cannot fire while fn runs.
func (c *Controller) Guard(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		return ErrAttackPending
	}
	return fn()
}

// Complete submits the victim payment and schedules the broadcast of the held
// block after the configured delay. Attack mode is disarmed once the
// broadcast has run. Canceling ctx before then cancels the broadcast.
func (c *Controller) Complete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.armed {
		return ErrNotArmed
	}
	if c.timer != nil {
		return ErrAttackPending
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	v := c.victim
	if err := c.ledger.SubmitTransaction(v.Sender, v.Receiver, v.Amount); err != nil {
		return fmt.Errorf("submit victim payment: %w", err)
	}

	c.gen++
	gen := c.gen
	c.timer = c.scheduler.After(c.delay, func() { c.fire(gen) })
	c.stopWatch = context.AfterFunc(ctx, func() { c.Cancel() })
	c.logger.Info("victim payment submitted, broadcast scheduled", "payment", v.String(), "delay", c.delay)
	return nil
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.timer == nil || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.stopWatch()
	c.stopWatch = nil

	b, err := c.broadcast()
	c.armed = false
	if err != nil {
		c.logger.Warn("scheduled broadcast failed", "error", err)
	}
	c.logger.Info("attack completed, mode disarmed")
	c.mu.Unlock()

	c.onComplete(Outcome{Block: b, Err: err})
}

// Cancel stops a scheduled broadcast. The held block and attack mode are
// kept. It reports whether a broadcast was pending.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer == nil {
		return false
	}
	c.timer.Stop()
	c.timer = nil
	c.stopWatch()
	c.stopWatch = nil
	c.logger.Info("scheduled broadcast canceled")
	return true
}
