// Package counter implements the shared counter workload: many workers increment one
// integer concurrently.
//
// Two implementations of ICounter are provided:
//
//   - AtomicCounter keeps the integer in a cell.SharedCell. Every increment acquires
//     the cell, adds one and releases it, so N workers doing K increments each always
//     end at exactly N*K, for any interleaving.
//
//   - RacyCounter keeps the integer in a cell.UnsynchronizedCell. Increments are plain
//     read-modify-write sequences and concurrent increments get lost. The final value
//     is <= N*K and, under contention, usually lower. It is a negative baseline.
//
// Run drives a counter through a pool.Pool and returns the final value.
package counter
