package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// GenesisPayload is the single entry stored in the genesis block in place of
// a transaction list.
const GenesisPayload = "Genesis Block"

// HashBlock computes the SHA256 link hash of a block from its fields. The
// transactions are JSON encoded in order, so any change to a sender, receiver,
// amount or to their order changes the digest.
//
// Index 0 is the genesis block: transactions is ignored and the payload is
// always ["Genesis Block"]. The genesis block itself stores no transactions.
func HashBlock(index int, timestamp string, transactions []Transaction, prevHash string, nonce uint64) string {
	var payload any = transactions
	if transactions == nil {
		payload = []Transaction{}
	}
	if index == 0 {
		payload = []string{GenesisPayload}
	}
	return hashFields(index, timestamp, encodePayload(payload), prevHash, nonce)
}

func hashFields(index int, timestamp string, payload string, prevHash string, nonce uint64) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(index))
	sb.WriteString(timestamp)
	sb.WriteString(payload)
	sb.WriteString(prevHash)
	sb.WriteString(strconv.FormatUint(nonce, 10))

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// encodePayload marshals v the way JSON.stringify does: compact, without HTML
// escaping, and with U+2028 and U+2029 left raw.
func encodePayload(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		// only plain strings and integers reach here
		return ""
	}
	return unescapeLineSeparators(strings.TrimSuffix(buf.String(), "\n"))
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes written by
// encoding/json back into the raw runes. Other escape sequences are copied
// as they are, so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(s string) string {
	if !strings.Contains(s, `\u202`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], `\u2028`):
			sb.WriteRune('\u2028')
			i += 5
		case strings.HasPrefix(s[i:], `\u2029`):
			sb.WriteRune('\u2029')
			i += 5
		default:
			sb.WriteString(s[i : i+2])
			i++
		}
	}
	return sb.String()
}

// MeetsDifficulty reports whether hash starts with difficulty '0' characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hash[i] != '0' {
			return false
		}
	}
	return true
}
