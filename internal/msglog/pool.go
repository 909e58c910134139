package msglog

import (
	"sync"
	"time"
)

// readerPool runs puller ticks and dispatch jobs on a fixed set of workers.
// Jobs submitted after shutdown run inline on the submitting goroutine so
// that late arrivals from a puller mid-shutdown are not silently dropped.
type readerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closing bool

	workers sync.WaitGroup

	schedStop chan struct{}
	schedWG   sync.WaitGroup
}

func newReaderPool(numWorkers int) *readerPool {
	p := &readerPool{schedStop: make(chan struct{})}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < numWorkers; i++ {
		p.workers.Add(1)
		go p.worker()
	}
	return p
}

func (p *readerPool) worker() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closing {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()
		job()
	}
}

// Submit queues a job, or runs it inline when the pool is shutting down.
func (p *readerPool) Submit(job func()) {
	p.mu.Lock()
	if p.closing {
		p.mu.Unlock()
		job()
		return
	}
	p.queue = append(p.queue, job)
	p.cond.Signal()
	p.mu.Unlock()
}

// ScheduleWithFixedDelay runs job on the pool repeatedly, waiting interval
// between the end of one run and the start of the next, so a job never
// overlaps itself.
func (p *readerPool) ScheduleWithFixedDelay(job func(), initialDelay, interval time.Duration) {
	p.schedWG.Add(1)
	go func() {
		defer p.schedWG.Done()
		timer := time.NewTimer(initialDelay)
		defer timer.Stop()
		for {
			select {
			case <-p.schedStop:
				return
			case <-timer.C:
			}
			p.runAndWait(job)
			timer.Reset(interval)
		}
	}()
}

func (p *readerPool) runAndWait(job func()) {
	done := make(chan struct{})
	p.Submit(func() {
		defer close(done)
		job()
	})
	<-done
}

// Shutdown stops scheduling, waits for in-flight scheduled runs, then lets
// workers drain queued jobs for at most wait before force-dropping the
// rest. Returns true if the pool drained cleanly.
func (p *readerPool) Shutdown(wait time.Duration) bool {
	close(p.schedStop)
	p.schedWG.Wait()

	p.mu.Lock()
	p.closing = true
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(wait):
		p.mu.Lock()
		p.queue = nil
		p.cond.Broadcast()
		p.mu.Unlock()
		return false
	}
}
