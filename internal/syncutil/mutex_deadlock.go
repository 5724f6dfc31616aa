//go:build deadlock

// Package syncutil provides the mutex types used to guard debug links and
// flash banks. This variant reports potential deadlocks via go-deadlock.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex.
type RWMutex struct {
	deadlock.RWMutex
}
