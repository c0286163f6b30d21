// Package ledger implements a small proof-of-work ledger used to demonstrate
// double spending.
//
// # Core Components
//
// Ledger: the chain of blocks, the pool of pending transactions and the
// account balances. Balances change only when a block is appended.
//
// Block: an indexed batch of transactions linked to its predecessor by hash
// and sealed by a nonce whose hash has the required number of leading zeros.
//
// # Mining
//
// Mine replays the pending pool against the current balances, drops every
// transaction that would overdraw its sender and appends the mined block.
// MineWithheld and Broadcast split that in two: the block is mined from the
// whole pool, kept aside and later appended as is, with no balance check.
// This is the primitive the attack package builds on.
//
// # Verification
//
// Verify recomputes every hash and link. Hashes can be overwritten with
// EditHash to see the chain turn invalid.
package ledger
