package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = "2024-01-01 00:00:00"

// The expected digests were produced with JSON.stringify + SHA256 over the
// same concatenation, so they pin the encoding byte for byte.
func TestHashBlockKnownVectors(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		txs      []Transaction
		prevHash string
		nonce    uint64
		want     string
	}{
		{
			name:     "genesis",
			index:    0,
			prevHash: "0",
			want:     "315ae3dd527d2445083c70984bfce5e36c9f8d2557156193f1b8db066cbda750",
		},
		{
			name:     "single transaction",
			index:    1,
			txs:      []Transaction{{Sender: "A", Receiver: "B", Amount: 30}},
			prevHash: "abc",
			nonce:    7,
			want:     "c2be51b47a50de09aafda13168fce6628a189b56fba72722ca8aba4a21658774",
		},
		{
			name:     "empty transaction list encodes as []",
			index:    1,
			txs:      nil,
			prevHash: "abc",
			want:     "09342539774623b6681573661d4db0f7a7c9191f179d625f5a7204731722937f",
		},
		{
			name:     "line and paragraph separators stay raw",
			index:    1,
			txs:      []Transaction{{Sender: "A\u2028", Receiver: "B\u2029", Amount: 30}},
			prevHash: "abc",
			nonce:    7,
			want:     "56e9d4b0df2ab0ed392b518d16fe98387fdd2268083694f9c64e1bbdf1fbc1f0",
		},
		{
			name:     "escaped backslash before u2028",
			index:    1,
			txs:      []Transaction{{Sender: `A\u2028`, Receiver: "B", Amount: 30}},
			prevHash: "abc",
			nonce:    7,
			want:     "0bba75ca123f07a29e1c7a79f93f7ca9ba575b6ba7b8fbdfed105e472fd3ac71",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashBlock(tt.index, testTimestamp, tt.txs, tt.prevHash, tt.nonce)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashBlockDeterministic(t *testing.T) {
	txs := []Transaction{{Sender: "A", Receiver: "B", Amount: 30}, {Sender: "B", Receiver: "C", Amount: 5}}
	first := HashBlock(3, testTimestamp, txs, "prev", 42)
	for range 10 {
		require.Equal(t, first, HashBlock(3, testTimestamp, txs, "prev", 42))
	}
	assert.Len(t, first, 64)
}

func TestHashBlockSensitivity(t *testing.T) {
	base := []Transaction{{Sender: "A", Receiver: "B", Amount: 30}, {Sender: "B", Receiver: "C", Amount: 5}}
	ref := HashBlock(1, testTimestamp, base, "prev", 0)

	variants := map[string]string{
		"index":     HashBlock(2, testTimestamp, base, "prev", 0),
		"timestamp": HashBlock(1, "2024-01-01 00:00:01", base, "prev", 0),
		"prevHash":  HashBlock(1, testTimestamp, base, "prev2", 0),
		"nonce":     HashBlock(1, testTimestamp, base, "prev", 1),
		"sender": HashBlock(1, testTimestamp, []Transaction{
			{Sender: "C", Receiver: "B", Amount: 30}, base[1],
		}, "prev", 0),
		"receiver": HashBlock(1, testTimestamp, []Transaction{
			{Sender: "A", Receiver: "C", Amount: 30}, base[1],
		}, "prev", 0),
		"amount": HashBlock(1, testTimestamp, []Transaction{
			{Sender: "A", Receiver: "B", Amount: 31}, base[1],
		}, "prev", 0),
		"order": HashBlock(1, testTimestamp, []Transaction{base[1], base[0]}, "prev", 0),
	}
	for field, got := range variants {
		assert.NotEqual(t, ref, got, "changing %s must change the hash", field)
	}
}

func TestEncodePayloadDoesNotEscapeHTML(t *testing.T) {
	got := encodePayload([]Transaction{{Sender: "<A>", Receiver: "B&C", Amount: 1}})
	assert.Equal(t, `[{"sender":"<A>","receiver":"B&C","amount":1}]`, got)
}

func TestEncodePayloadKeepsLineSeparatorsRaw(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"line separator", "A\u2028", "[{\"sender\":\"A\u2028\",\"receiver\":\"B\",\"amount\":1}]"},
		{"paragraph separator", "\u2029A", "[{\"sender\":\"\u2029A\",\"receiver\":\"B\",\"amount\":1}]"},
		{"escaped backslash", `A\u2028`, `[{"sender":"A\\u2028","receiver":"B","amount":1}]`},
		{"other escapes untouched", "A\n\"", `[{"sender":"A\n\"","receiver":"B","amount":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodePayload([]Transaction{{Sender: tt.sender, Receiver: "B", Amount: 1}})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenesisHashIgnoresTransactions(t *testing.T) {
	want := HashBlock(0, testTimestamp, nil, "0", 0)
	got := HashBlock(0, testTimestamp, []Transaction{{Sender: "A", Receiver: "B", Amount: 1}}, "0", 0)
	assert.Equal(t, want, got, "index 0 always hashes the genesis payload")
}

func TestMeetsDifficulty(t *testing.T) {
	tests := []struct {
		hash       string
		difficulty int
		want       bool
	}{
		{"abc", 0, true},
		{"abc", -1, true},
		{"0abc", 1, true},
		{"00abc", 2, true},
		{"0a0bc", 2, false},
		{"000", 4, false},
		{"", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MeetsDifficulty(tt.hash, tt.difficulty), "hash %q difficulty %d", tt.hash, tt.difficulty)
	}
}
