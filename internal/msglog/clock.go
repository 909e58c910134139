package msglog

import (
	"sync/atomic"
	"time"
)

// nowMicros is the wall clock in microseconds. Overridable in tests.
var nowMicros = func() int64 { return time.Now().UnixMicro() }

// microClock yields monotonically non-decreasing microsecond timestamps
// even when the wall clock steps backwards.
type microClock struct {
	last atomic.Int64
}

func (c *microClock) Now() int64 {
	for {
		now := nowMicros()
		last := c.last.Load()
		if now < last {
			now = last
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
