//go:build !deadlock

// Package syncutil provides the mutex types used to guard debug links and
// flash banks. Building with -tags=deadlock swaps in go-deadlock so lock
// ordering problems between a bank and its transport show up in tests.
package syncutil

import "sync"

// Mutex is a plain sync.Mutex unless built with the deadlock tag.
type Mutex struct {
	sync.Mutex
}

// RWMutex is a plain sync.RWMutex unless built with the deadlock tag.
type RWMutex struct {
	sync.RWMutex
}
