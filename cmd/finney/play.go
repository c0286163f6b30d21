package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/spf13/cobra"

	"github.com/luca-patrignani/finney/session"
)

const (
	actionSubmit    = "Add transaction"
	actionMine      = "Mine block"
	actionValidate  = "Validate chain"
	actionChain     = "Show blockchain"
	actionInspect   = "Inspect block"
	actionWallets   = "Show wallets"
	actionPending   = "Show pending transactions"
	actionStart     = "Start Finney attack"
	actionPreMine   = "Pre-mine block"
	actionBroadcast = "Broadcast pre-mined block"
	actionComplete  = "Complete Finney attack"
	actionCancel    = "Cancel scheduled broadcast"
	actionQuit      = "Quit"
)

func newPlayCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Drive the ledger interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				return play(ctx, a)
			})
		},
	}
}

func banner() {
	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("F", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("inney", pterm.FgDarkGray.ToStyle()),
	).Render()
}

func play(ctx context.Context, a *app) error {
	s := a.newSession()
	defer s.Attack().Cancel()

	banner()
	pterm.Info.Printfln("Accounts %s start with %d each", strings.Join(a.cfg.Ledger.Accounts, ", "), a.cfg.Ledger.SeedBalance)
	if err := renderDashboard(s); err != nil {
		return err
	}

	actions := []string{
		actionSubmit, actionMine, actionValidate, actionChain, actionInspect,
		actionWallets, actionPending, actionStart, actionPreMine, actionBroadcast,
		actionComplete, actionCancel, actionQuit,
	}
	for {
		drainEvents(s)
		if ctx.Err() != nil {
			return nil
		}

		selected, err := pterm.DefaultInteractiveSelect.
			WithDefaultText("Select an action").
			WithOptions(actions).
			WithMaxHeight(len(actions)).
			Show()
		if err != nil {
			return err
		}
		drainEvents(s)

		switch selected {
		case actionSubmit:
			printStatus(inputTransaction(s))
		case actionMine:
			printStatus(mining(a.meter, "Mining block...", func() session.Status { return s.Mine(ctx) }))
		case actionValidate:
			printStatus(s.Validate())
		case actionChain:
			if err := renderChain(s.Ledger().Chain()); err != nil {
				return err
			}
		case actionInspect:
			if err := inspectBlock(s); err != nil {
				return err
			}
		case actionWallets:
			if err := renderDashboard(s); err != nil {
				return err
			}
		case actionPending:
			pterm.Println(pendingLines(s.Ledger().Pending()))
		case actionStart:
			printStatus(s.StartAttack())
		case actionPreMine:
			printStatus(mining(a.meter, "Pre-mining block...", func() session.Status { return s.PreMine(ctx) }))
		case actionBroadcast:
			printStatus(s.Broadcast())
		case actionComplete:
			printStatus(s.CompleteAttack(ctx))
		case actionCancel:
			printStatus(s.CancelAttack())
		case actionQuit:
			return nil
		}
	}
}

// drainEvents prints every asynchronous status received so far.
func drainEvents(s *session.Session) {
	for {
		select {
		case st := <-s.Events():
			printStatus(st)
		default:
			return
		}
	}
}

func inputTransaction(s *session.Session) session.Status {
	sender, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Sender").Show()
	receiver, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Receiver").Show()
	amount, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Amount").Show()
	pterm.Println()
	return s.Submit(sender, receiver, amount)
}

func inspectBlock(s *session.Session) error {
	chain := s.Ledger().Chain()
	options := make([]string, len(chain))
	for i, b := range chain {
		options[i] = fmt.Sprintf("Block #%d %s", b.Index, shortHash(b.Hash))
	}
	selected, err := pterm.DefaultInteractiveSelect.WithDefaultText("Select a block").WithOptions(options).Show()
	if err != nil {
		return err
	}
	var index int
	if _, err := fmt.Sscanf(selected, "Block #%d", &index); err != nil {
		return err
	}
	b := chain[index]
	pterm.Println(blockBox(b))

	edit, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Edit the hash of this block?").WithDefaultValue(false).Show()
	if !edit {
		return nil
	}
	hash, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("New hash").WithDefaultValue(b.Hash).Show()
	pterm.Println()
	printStatus(s.EditHash(index, strings.TrimSpace(hash)))
	return nil
}
