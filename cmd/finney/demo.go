package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/finney/session"
)

type scenario struct {
	name        string
	description string
	run         func(ctx context.Context, d *demo) error
}

var scenarios = []scenario{
	{"basic", "one payment mined into a block", runBasic},
	{"overdraft", "two payments that together overdraw the sender", runOverdraft},
	{"finney", "a withheld block supersedes a payment", runFinney},
	{"tamper", "an edited hash breaks validation", runTamper},
}

func scenarioNames() []string {
	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.name
	}
	return names
}

func newDemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "demo [scenario...]",
		Short:     "Run scripted scenarios on fresh ledgers",
		Long:      "Run scripted scenarios on fresh ledgers. Without arguments every scenario runs.",
		ValidArgs: scenarioNames(),
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(a.cfg.Ledger.Accounts) < 2 {
				return errors.New("demo needs at least two accounts")
			}
			selected := args
			if len(selected) == 0 {
				selected = scenarioNames()
			}
			return a.run(cmd.Context(), func(ctx context.Context) error {
				for _, sc := range scenarios {
					if !slices.Contains(selected, sc.name) {
						continue
					}
					if err := runScenario(ctx, a, sc); err != nil {
						return errors.WithMessagef(err, "scenario %s", sc.name)
					}
				}
				return nil
			})
		},
	}
}

// demo is the state of one scenario run.
type demo struct {
	app *app
	s   *session.Session
	// payer, payee and other are the first accounts, other falls back to payee
	payer, payee, other string
}

func runScenario(ctx context.Context, a *app, sc scenario) error {
	pterm.DefaultSection.Printfln("%s: %s", sc.name, sc.description)

	accounts := a.cfg.Ledger.Accounts
	d := &demo{app: a, s: a.newSession(), payer: accounts[0], payee: accounts[1], other: accounts[1]}
	if len(accounts) > 2 {
		d.other = accounts[2]
	}
	defer d.s.Attack().Cancel()

	if err := sc.run(ctx, d); err != nil {
		return err
	}
	if err := renderChain(d.s.Ledger().Chain()); err != nil {
		return err
	}
	if err := renderDashboard(d.s); err != nil {
		return err
	}
	printStatus(d.s.Validate())
	return nil
}

// amount returns pct percent of the seed balance, at least 1.
func (d *demo) amount(pct int64) string {
	return strconv.FormatInt(max(d.app.cfg.Ledger.SeedBalance*pct/100, 1), 10)
}

// step prints st and turns an error status into an error.
func (d *demo) step(st session.Status) error {
	printStatus(st)
	if st.Severity == session.Error {
		return errors.New(st.Message)
	}
	return nil
}

func (d *demo) mine(ctx context.Context) error {
	return d.step(mining(d.app.meter, "Mining block...", func() session.Status { return d.s.Mine(ctx) }))
}

func runBasic(ctx context.Context, d *demo) error {
	if err := d.step(d.s.Submit(d.payer, d.payee, d.amount(30))); err != nil {
		return err
	}
	return d.mine(ctx)
}

func runOverdraft(ctx context.Context, d *demo) error {
	if err := d.step(d.s.Submit(d.payer, d.payee, d.amount(30))); err != nil {
		return err
	}
	if err := d.step(d.s.Submit(d.payer, d.payee, d.amount(90))); err != nil {
		return err
	}
	pterm.Info.Println("Both payments pass admission against the confirmed balance")
	return d.mine(ctx)
}

func runFinney(ctx context.Context, d *demo) error {
	if err := d.step(d.s.StartAttack()); err != nil {
		return err
	}
	if err := d.step(d.s.Submit(d.payer, d.payee, d.amount(50))); err != nil {
		return err
	}
	st := mining(d.app.meter, "Pre-mining block...", func() session.Status { return d.s.PreMine(ctx) })
	if err := d.step(st); err != nil {
		return err
	}
	if err := d.step(d.s.CompleteAttack(ctx)); err != nil {
		return err
	}
	pterm.Println(pendingBox(d.s.Ledger().Pending()))

	return waitForBroadcast(ctx, d.s, d.app.cfg.Attack.Delay)
}

func waitForBroadcast(ctx context.Context, s *session.Session, delay time.Duration) error {
	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Waiting %s for the pre-mined block to be broadcast...", delay))
	select {
	case st := <-s.Events():
		switch st.Severity {
		case session.Error:
			spinner.Fail(st.Message)
			return errors.New(st.Message)
		case session.Warning:
			spinner.Warning(st.Message)
		default:
			spinner.Success(st.Message)
		}
		return nil
	case <-ctx.Done():
		spinner.Fail("Interrupted")
		return ctx.Err()
	}
}

func runTamper(ctx context.Context, d *demo) error {
	for _, to := range []string{d.payee, d.other} {
		if err := d.step(d.s.Submit(d.payer, to, d.amount(10))); err != nil {
			return err
		}
		if err := d.mine(ctx); err != nil {
			return err
		}
	}
	if err := d.step(d.s.Validate()); err != nil {
		return err
	}
	return d.step(d.s.EditHash(1, "0000tampered"))
}
