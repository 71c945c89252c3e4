// Package util provides small building blocks shared by the dSync workloads.
//
//   - EventQueue: an unbounded lock-free multi-producer single-consumer queue whose
//     consumer hands every item to a callback. The ring uses it to print state
//     transitions from a single goroutine without making philosophers wait on stdout.
//   - Stats / Fairness: summary statistics of a set of samples, used to report how
//     evenly meals were distributed among philosophers.
package util
