package ledger

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Errors returned when balances are looked up or moved.
var (
	ErrUnknownAccount      = errors.New("unknown account")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Account is a wallet entry. The id doubles as the placeholder public key.
type Account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// balances maps account ids to balances. Lookups of ids that were never
// seeded fail with ErrUnknownAccount instead of reading a zero value.
type balances map[string]int64

func (b balances) get(id string) (int64, error) {
	bal, ok := b[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAccount, id)
	}
	return bal, nil
}

// transfer moves amount without checking the sender balance.
func (b balances) transfer(tx Transaction) error {
	if _, err := b.get(tx.Sender); err != nil {
		return err
	}
	if _, err := b.get(tx.Receiver); err != nil {
		return err
	}
	b[tx.Sender] -= tx.Amount
	b[tx.Receiver] += tx.Amount
	return nil
}

func (b balances) total() int64 {
	var sum int64
	for _, bal := range b {
		sum += bal
	}
	return sum
}

func (b balances) clone() balances {
	return maps.Clone(b)
}

func (b balances) sorted() []Account {
	ids := slices.Sorted(maps.Keys(b))
	out := make([]Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, Account{ID: id, Balance: b[id]})
	}
	return out
}
