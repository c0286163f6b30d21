package ledger

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidTransaction is returned for a malformed transfer.
var ErrInvalidTransaction = errors.New("invalid transaction")

// Transaction moves Amount from Sender to Receiver. Account ids are plain
// labels, there is no signature.
type Transaction struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   int64  `json:"amount"`
}

// Validate checks the transaction shape only; balances are not consulted.
func (tx Transaction) Validate() error {
	if tx.Sender == "" || tx.Receiver == "" {
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalidTransaction)
	}
	if !utf8.ValidString(tx.Sender) || !utf8.ValidString(tx.Receiver) {
		return fmt.Errorf("%w: account ids must be valid UTF-8", ErrInvalidTransaction)
	}
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0, got %d", ErrInvalidTransaction, tx.Amount)
	}
	return nil
}

// String renders the transaction the way the pending list shows it.
func (tx Transaction) String() string {
	return fmt.Sprintf("From %s to %s, Amount: %d", tx.Sender, tx.Receiver, tx.Amount)
}
