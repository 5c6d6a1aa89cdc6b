// Package globaltime is the process-wide clock. Job timestamps go through
// it so tests can freeze time.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

// UTC returns the current time in UTC; all persisted timestamps use it.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime freezes the clock for tests. Pair with ResetTime.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
