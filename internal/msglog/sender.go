package msglog

import (
	"time"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/log"
)

// messageEnvelope holds a produced message, its assigned row key, and its
// serialized entry while it waits for the batcher.
type messageEnvelope struct {
	future *DeliveryFuture
	key    []byte
	entry  kcv.Entry
}

// sendBatcher coalesces queued envelopes into flushes. A single instance
// runs on its own goroutine; it flushes when the batch reaches batchSize or
// the oldest envelope's age reaches maxDelay, and on shutdown drains
// whatever remains in batchSize chunks.
type sendBatcher struct {
	queue     chan *messageEnvelope
	batchSize int
	maxDelay  time.Duration
	clock     *microClock
	flush     func([]*messageEnvelope) error
	logger    log.Logger

	stop chan struct{}
	done chan struct{}
}

func newSendBatcher(queue chan *messageEnvelope, batchSize int, maxDelay time.Duration, clock *microClock, flush func([]*messageEnvelope) error, logger log.Logger) *sendBatcher {
	b := &sendBatcher{
		queue:     queue,
		batchSize: batchSize,
		maxDelay:  maxDelay,
		clock:     clock,
		flush:     flush,
		logger:    logger,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// ageOfOldest is how long the first batched envelope has been waiting.
func (b *sendBatcher) ageOfOldest(batch []*messageEnvelope) time.Duration {
	if len(batch) == 0 {
		return 0
	}
	age := b.clock.Now() - batch[0].future.msg.TimestampMicros
	if age < 0 {
		return 0
	}
	return time.Duration(age) * time.Microsecond
}

func (b *sendBatcher) run() {
	defer close(b.done)
	var batch []*messageEnvelope
	for {
		// Wait for the next envelope: indefinitely while the batch is
		// empty, else only until the oldest envelope hits maxDelay.
		if len(batch) == 0 {
			select {
			case env := <-b.queue:
				batch = append(batch, env)
			case <-b.stop:
				b.cleanup(batch)
				return
			}
		} else {
			wait := b.maxDelay - b.ageOfOldest(batch)
			if wait < 0 {
				wait = 0
			}
			timer := time.NewTimer(wait)
			select {
			case env := <-b.queue:
				batch = append(batch, env)
			case <-timer.C:
			case <-b.stop:
				timer.Stop()
				b.cleanup(batch)
				return
			}
			timer.Stop()
		}

		// Drain whatever else is immediately available.
	drain:
		for len(batch) < b.batchSize {
			select {
			case env := <-b.queue:
				batch = append(batch, env)
			default:
				break drain
			}
		}

		if len(batch) > 0 && (b.ageOfOldest(batch) >= b.maxDelay || len(batch) >= b.batchSize) {
			if err := b.flush(batch); err != nil {
				b.logger.Error("message batch flush failed",
					log.Int("messages", len(batch)), log.Err(err))
			}
			batch = nil
		}
	}
}

// cleanup flushes the pending batch plus anything still queued, in
// batchSize chunks.
func (b *sendBatcher) cleanup(batch []*messageEnvelope) {
	for {
		select {
		case env := <-b.queue:
			batch = append(batch, env)
			continue
		default:
		}
		break
	}
	for i := 0; i < len(batch); i += b.batchSize {
		end := i + b.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := b.flush(batch[i:end]); err != nil {
			b.logger.Error("message batch flush failed during shutdown",
				log.Int("messages", end-i), log.Err(err))
		}
	}
}

// close stops the batcher and waits up to wait for the drain to finish.
func (b *sendBatcher) close(wait time.Duration) bool {
	close(b.stop)
	select {
	case <-b.done:
		return true
	case <-time.After(wait):
		b.logger.Error("send batcher did not drain in time", log.Dur("wait", wait))
		return false
	}
}
