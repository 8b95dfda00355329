package store

import (
	"strconv"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns a time-based record identifier. Two calls in the same
// nanosecond still get distinct ids: the counter is bumped past the last
// issued value.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixNano()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return strconv.FormatInt(now, 10)
}
