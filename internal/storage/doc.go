// Package storage provides the optional dispatch journal.
//
// Every publish attempt (success or failure) can be appended to a file or
// SQLite journal for operator review. The journal is write-only from the
// daemon's perspective: schedules are never persisted or restored from it.
package storage
