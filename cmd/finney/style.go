package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/finney/attack"
	"github.com/luca-patrignani/finney/ledger"
	"github.com/luca-patrignani/finney/session"
)

func printStatus(st session.Status) {
	switch st.Severity {
	case session.Success:
		pterm.Success.Println(st.Message)
	case session.Warning:
		pterm.Warning.Println(st.Message)
	case session.Error:
		pterm.Error.Println(st.Message)
	default:
		pterm.Info.Println(st.Message)
	}
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "..."
}

func describeTransactions(b ledger.Block) string {
	if b.IsGenesis() {
		return ledger.GenesisPayload
	}
	if len(b.Transactions) == 0 {
		return "-"
	}
	lines := make([]string, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		lines = append(lines, tx.String())
	}
	return strings.Join(lines, "\n")
}

func renderChain(chain []ledger.Block) error {
	data := pterm.TableData{{"#", "Timestamp", "Transactions", "Nonce", "Previous hash", "Hash"}}
	for _, b := range chain {
		data = append(data, []string{
			strconv.Itoa(b.Index),
			b.Timestamp,
			describeTransactions(b),
			strconv.FormatUint(b.Nonce, 10),
			shortHash(b.PrevHash),
			shortHash(b.Hash),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithRowSeparator("-").WithData(data).Render()
}

func blockBox(b ledger.Block) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	title := fmt.Sprintf("|BLOCK #%d|", b.Index)
	return pbox.WithTitle(pterm.LightCyan(title)).WithTitleTopCenter().Sprintf(
		"Timestamp: %s\nPrevious hash: %s\nHash: %s\nNonce: %d\n\n%s",
		b.Timestamp, b.PrevHash, b.Hash, b.Nonce, describeTransactions(b))
}

func walletBox(a ledger.Account) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	balance := pterm.LightGreen(a.Balance)
	if a.Balance < 0 {
		balance = pterm.LightRed(a.Balance)
	}
	return pbox.WithTitle(a.ID).WithTitleTopLeft().Sprintf("Balance: %s", balance)
}

func pendingLines(txs []ledger.Transaction) string {
	if len(txs) == 0 {
		return "No pending transactions"
	}
	lines := make([]string, 0, len(txs))
	for i, tx := range txs {
		lines = append(lines, fmt.Sprintf("#%d: %s", i+1, tx))
	}
	return strings.Join(lines, "\n")
}

func pendingBox(txs []ledger.Transaction) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	return pbox.WithTitle(pterm.LightYellow("|PENDING|")).WithTitleTopCenter().Sprint(pendingLines(txs))
}

func attackBox(c *attack.Controller) string {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	phase := c.Phase()
	text := "Phase: " + string(phase)
	if b, ok := c.Held(); ok {
		text += fmt.Sprintf("\nHeld block: #%d %s, %d transactions", b.Index, shortHash(b.Hash), len(b.Transactions))
	}
	if left, ok := c.Remaining(); ok {
		text += fmt.Sprintf("\nBroadcast in %s", left.Round(100*time.Millisecond))
	}
	title := pterm.LightMagenta("|FINNEY ATTACK|")
	if phase == attack.PhaseIdle {
		title = pterm.Gray("|FINNEY ATTACK|")
	}
	return pbox.WithTitle(title).WithTitleTopCenter().Sprint(text)
}

func renderDashboard(s *session.Session) error {
	l := s.Ledger()
	var wallets []pterm.Panel
	for _, a := range l.Accounts() {
		wallets = append(wallets, pterm.Panel{Data: walletBox(a)})
	}
	header := pterm.DefaultHeader.WithBackgroundStyle(pterm.BgGreen.ToStyle()).Sprintf(
		"Height %d | Difficulty %d | Admission %s", l.Len(), l.Difficulty(), l.Admission())
	return pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{{Data: header}},
		wallets,
		{{Data: pendingBox(l.Pending())}, {Data: attackBox(s.Attack())}},
	}).Render()
}
