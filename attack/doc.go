// Package attack stages a Finney attack on a ledger.
//
// The sequence is:
//  1. Start arms attack mode
//  2. PreMine mines the pending pool into a block that is held back
//  3. Complete pays the victim and schedules the held block's broadcast
//  4. the broadcast appends the held block and clears the pool, so the
//     victim payment never reaches a block
//
// Delays go through a Scheduler. NewScheduler uses real timers and
// ManualScheduler lets tests move time by hand.
package attack
