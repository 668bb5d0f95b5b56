// Package state keeps per-user conversation memory: the name of the step a
// user is in and the data collected so far in the current flow.
//
// Entries live only in process memory and disappear on restart. The store is
// guarded by a mutex because telebot and the send dispatcher run handlers on
// separate goroutines. Callers still assume at most one logical flow per user
// at a time: two flows racing for the same user would interleave their merges
// and the last writer wins.
package state
