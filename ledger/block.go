package ledger

import (
	"context"
	"errors"
	"fmt"
)

// progressEvery is how many hash attempts pass between two progress callbacks.
const progressEvery = 1024

// Errors returned by Block.Mine.
var (
	ErrMiningCanceled = errors.New("mining canceled")
	ErrNonceExhausted = errors.New("nonce search exhausted")
)

// Block is a single entry of the chain. Once mined its Hash satisfies the
// ledger difficulty and equals HashBlock over the other fields, unless it was
// overwritten through EditHash.
type Block struct {
	Index        int           `json:"index"`
	Timestamp    string        `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PrevHash     string        `json:"previous_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// NewBlock builds an unmined block with nonce 0 and its hash already computed.
func NewBlock(index int, timestamp string, transactions []Transaction, prevHash string) *Block {
	txs := make([]Transaction, len(transactions))
	copy(txs, transactions)
	b := &Block{
		Index:        index,
		Timestamp:    timestamp,
		Transactions: txs,
		PrevHash:     prevHash,
	}
	b.Hash = b.CalculateHash()
	return b
}

// CalculateHash returns HashBlock over the current fields of b. For the
// genesis block the hashed payload is GenesisPayload, not Transactions.
func (b *Block) CalculateHash() string {
	return HashBlock(b.Index, b.Timestamp, b.Transactions, b.PrevHash, b.Nonce)
}

// IsGenesis reports whether b is the first block of a chain.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

// Mine increments the nonce until the hash has difficulty leading zeros. It
// returns the number of hashes evaluated. A maxAttempts of 0 means no limit;
// otherwise ErrNonceExhausted is returned once the limit is hit. On
// cancellation or exhaustion nonce and hash are restored to their values
// before the call.
func (b *Block) Mine(ctx context.Context, difficulty int, maxAttempts uint64, progress func(attempts uint64)) (uint64, error) {
	startNonce, startHash := b.Nonce, b.Hash
	var attempts uint64
	for !MeetsDifficulty(b.Hash, difficulty) {
		if maxAttempts > 0 && attempts >= maxAttempts {
			b.Nonce, b.Hash = startNonce, startHash
			return attempts, fmt.Errorf("%w after %d attempts", ErrNonceExhausted, attempts)
		}
		if attempts%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				b.Nonce, b.Hash = startNonce, startHash
				return attempts, fmt.Errorf("%w: %w", ErrMiningCanceled, err)
			}
			if progress != nil && attempts > 0 {
				progress(attempts)
			}
		}
		b.Nonce++
		b.Hash = b.CalculateHash()
		attempts++
	}
	if progress != nil {
		progress(attempts)
	}
	return attempts, nil
}

// EditHash overwrites the stored hash without recomputing it. It exists to
// show how Verify reacts to tampering.
func (b *Block) EditHash(hash string) {
	b.Hash = hash
}

func (b *Block) clone() *Block {
	c := *b
	c.Transactions = make([]Transaction, len(b.Transactions))
	copy(c.Transactions, b.Transactions)
	return &c
}
