package msglog

import "time"

// Internal constants. These are behavioral, not configuration.
const (
	// minDeliveryDelay is the smallest send delay for which batching makes
	// sense against a KCV store. Below it, messages are sent inline.
	minDeliveryDelay = 10 * time.Millisecond
	// batchSizeMultiplier sizes the outgoing queue relative to the send
	// batch size. A full queue produces backpressure on Produce.
	batchSizeMultiplier = 10
	// closeDownWait bounds how long Close waits for the batcher to drain.
	closeDownWait = 10 * time.Second
	// readPoolShutdownWait bounds how long Close waits for the reader pool.
	readPoolShutdownWait = time.Second
	// initialReaderDelay is the delay before a registered reader's pullers
	// start polling.
	initialReaderDelay = 100 * time.Millisecond
)

// Options configures one log instance.
type Options struct {
	// MaxWriteTime is the deadline for write-path backend operations.
	MaxWriteTime time.Duration
	// MaxReadTime is the deadline for read-path backend operations.
	MaxReadTime time.Duration
	// ReadLagTime is the maximum time writes may take to appear in the
	// backend; polls hold back this far (plus SendDelay) from "live".
	ReadLagTime time.Duration
	// KeyConsistent selects key-consistent transactions for all operations.
	KeyConsistent bool
	// NumBuckets is the number of row-key shards per (partition, timeslice).
	NumBuckets int
	// SendBatchSize is the maximum number of envelopes per flush; the
	// outgoing queue holds batchSizeMultiplier times as many.
	SendBatchSize int
	// SendDelay is the target maximum age of the oldest queued envelope
	// before a flush. Below minDeliveryDelay, batching is disabled and
	// Produce flushes inline.
	SendDelay time.Duration
	// ReadThreads sizes the pool shared by pullers and dispatch jobs.
	ReadThreads int
	// ReadBatchSize is the per-slice entry limit when polling.
	ReadBatchSize int
	// ReadInterval is the fixed delay between polls per puller.
	ReadInterval time.Duration
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		MaxWriteTime:  10 * time.Second,
		MaxReadTime:   4 * time.Second,
		ReadLagTime:   500 * time.Millisecond,
		KeyConsistent: false,
		NumBuckets:    1,
		SendBatchSize: 256,
		SendDelay:     time.Second,
		ReadThreads:   1,
		ReadBatchSize: 1024,
		ReadInterval:  5 * time.Second,
	}
}

// Validate rejects unusable configurations.
func (o Options) Validate() error {
	if o.MaxWriteTime <= 0 {
		return invalidArgf("MaxWriteTime must be positive")
	}
	if o.MaxReadTime <= 0 {
		return invalidArgf("MaxReadTime must be positive")
	}
	if o.ReadLagTime < 0 {
		return invalidArgf("ReadLagTime must not be negative")
	}
	if o.NumBuckets < 1 {
		return invalidArgf("NumBuckets must be at least 1")
	}
	if o.SendBatchSize < 1 {
		return invalidArgf("SendBatchSize must be at least 1")
	}
	if o.SendDelay < 0 {
		return invalidArgf("SendDelay must not be negative")
	}
	if o.ReadThreads < 1 {
		return invalidArgf("ReadThreads must be at least 1")
	}
	if o.ReadBatchSize < 1 {
		return invalidArgf("ReadBatchSize must be at least 1")
	}
	if o.ReadInterval <= 0 {
		return invalidArgf("ReadInterval must be positive")
	}
	return nil
}

// batchingEnabled reports whether produced messages go through the queue
// and batcher rather than flushing inline.
func (o Options) batchingEnabled() bool {
	return o.SendDelay >= minDeliveryDelay
}
