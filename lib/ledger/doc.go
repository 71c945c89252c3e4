// Package ledger implements the transfer workload: many workers concurrently move one
// unit from account A to account B, and the sum of both balances must never change.
//
// TransferLedger keeps each balance in its own cell.SharedCell. A transfer
//
//  1. acquires the debited account,
//  2. returns NoOp if its balance is not positive (no error, no effect),
//  3. decrements it and sleeps for the processing delay while still holding it,
//  4. acquires the credited account, increments it and releases both.
//
// Holding the debited account across the delay is intentional: it serialises the
// transfers (throughput drops) but no update is ever lost, unlike RacyLedger which runs
// the very same steps on unsynchronized cells.
//
// Lock Order:
//
//	LockFromFirst (default) takes the debited account first. This is safe as long as
//	all transfers go in the same direction. With transfers in both directions two
//	workers can each hold their debited account and wait for the other one, which is
//	a deadlock. LockByAccount takes both accounts in global account order (A before B)
//	before looking at the balance, so no cyclic wait can form.
//
// If acquiring the credited account fails (context done or cell poisoned) the debit is
// rolled back before the debited account is released, so the sum invariant holds at
// every quiescent point.
package ledger
