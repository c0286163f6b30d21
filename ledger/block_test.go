package ledger

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlockStartsUnmined(t *testing.T) {
	txs := []Transaction{{Sender: "A", Receiver: "B", Amount: 30}}
	b := NewBlock(1, testTimestamp, txs, "prev")

	assert.Equal(t, uint64(0), b.Nonce)
	assert.Equal(t, b.CalculateHash(), b.Hash)

	// the block keeps its own copy of the transactions
	txs[0].Amount = 99
	assert.Equal(t, int64(30), b.Transactions[0].Amount)
}

func TestMinePostcondition(t *testing.T) {
	for difficulty := 0; difficulty <= 4; difficulty++ {
		b := NewBlock(1, testTimestamp, []Transaction{{Sender: "A", Receiver: "B", Amount: 30}}, "prev")

		attempts, err := b.Mine(context.Background(), difficulty, 0, nil)
		require.NoError(t, err)

		assert.Equal(t, strings.Repeat("0", difficulty), b.Hash[:difficulty], "difficulty %d", difficulty)
		assert.Equal(t, b.CalculateHash(), b.Hash)
		assert.Equal(t, b.Nonce, attempts, "nonce starts at zero and grows by one per attempt")
	}
}

func TestMineExhaustedRestoresBlock(t *testing.T) {
	b := NewBlock(1, testTimestamp, nil, "prev")
	hash := b.Hash

	// 64 leading zeros is unreachable
	attempts, err := b.Mine(context.Background(), 64, 10, nil)
	require.ErrorIs(t, err, ErrNonceExhausted)
	assert.Equal(t, uint64(10), attempts)
	assert.Equal(t, uint64(0), b.Nonce)
	assert.Equal(t, hash, b.Hash)
}

func TestMineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBlock(1, testTimestamp, nil, "prev")
	_, err := b.Mine(ctx, 64, 0, nil)
	require.ErrorIs(t, err, ErrMiningCanceled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(0), b.Nonce)
}

func TestMineReportsProgress(t *testing.T) {
	b := NewBlock(1, testTimestamp, nil, "prev")

	var last uint64
	calls := 0
	attempts, err := b.Mine(context.Background(), 3, 0, func(n uint64) {
		assert.GreaterOrEqual(t, n, last)
		last = n
		calls++
	})
	require.NoError(t, err)
	assert.Positive(t, calls)
	assert.Equal(t, attempts, last, "the final callback carries the total")
}

func TestBlockEditHashBypassesHashing(t *testing.T) {
	b := NewBlock(1, testTimestamp, nil, "prev")
	b.EditHash("deadbeef")

	assert.Equal(t, "deadbeef", b.Hash)
	assert.NotEqual(t, b.CalculateHash(), b.Hash)
}
