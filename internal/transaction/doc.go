// Package transaction owns the Serial API transaction queue.
//
// Ownership boundary:
// - submission, priority ordering and the single send slot
// - ACK/NAK/CAN handling, retries and backoff
// - correlation of replies and callbacks with pending transactions
// - timeouts, cancellation and result delivery
//
// All state is guarded by one mutex. Timers re-enter the queue with a
// per-transaction generation so a stale timer is a no-op. Results,
// observers and the unsolicited sink run after the mutex is released.
package transaction
