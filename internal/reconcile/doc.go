// Package reconcile implements the single-flight reconciliation protocol:
// the Coordinator averages the latest value of every sensor and writes the
// average back to each of them, one attempt at a time, and the Trigger runs
// it on a fixed period.
//
// Concurrent Reconcile callers are serialized, not coalesced: each caller
// performs its own fetch/average/write-back round once it holds the token.
package reconcile
