package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSeq reduces collisions when multiple IDs are generated within the same
// nanosecond.
var idSeq uint64

// GenID returns a unique message identifier.
func GenID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("msg-%d-%d", n, s)
}

// NowTS returns the current UTC time in nanoseconds.
func NowTS() int64 {
	return time.Now().UTC().UnixNano()
}
