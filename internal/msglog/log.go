package msglog

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/log"
)

// Log is one named, partitioned message log. Producers call Produce;
// consumers register MessageReaders. Instances are created through a
// Manager and are open until Close.
type Log struct {
	manager *Manager
	name    string
	store   kcv.Store
	marker  ReadMarker
	opts    Options
	logger  log.Logger

	clock    *microClock
	settings *settingStore
	// readLagMicros is the holdback from "live" on polls: the configured
	// lag plus the send delay, since writers may still be batching.
	readLagMicros int64

	// queue is nil when batching is disabled.
	queue   chan *messageEnvelope
	batcher *sendBatcher

	seqCounter    atomic.Int64
	bucketCounter atomic.Int64

	// mu makes registration and close mutually exclusive and guards pool
	// creation. The readers list has its own lock so dispatch can snapshot
	// it while close holds mu.
	mu        sync.Mutex
	readersMu sync.Mutex
	readers   []MessageReader
	pool      *readerPool
	pullers   []*messagePuller

	isOpen atomic.Bool
}

func newLog(manager *Manager, name string, store kcv.Store, marker ReadMarker, opts Options) (*Log, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l := &Log{
		manager:       manager,
		name:          name,
		store:         store,
		marker:        marker,
		opts:          opts,
		logger:        manager.logger.With(log.Str("log", name)),
		clock:         &microClock{},
		readLagMicros: (opts.ReadLagTime + opts.SendDelay).Microseconds(),
	}
	l.settings = &settingStore{
		store:        store,
		txp:          l,
		maxReadTime:  opts.MaxReadTime,
		maxWriteTime: opts.MaxWriteTime,
		logger:       l.logger,
	}

	seq, err := l.settings.read(manager.senderID, messageCounterColumn, 0)
	if err != nil {
		return nil, err
	}
	l.seqCounter.Store(seq)

	if opts.batchingEnabled() {
		l.queue = make(chan *messageEnvelope, opts.SendBatchSize*batchSizeMultiplier)
		l.batcher = newSendBatcher(l.queue, opts.SendBatchSize, opts.SendDelay, l.clock, l.flushEnvelopes, l.logger)
	}

	l.isOpen.Store(true)
	return l, nil
}

// Name returns the log's unique name.
func (l *Log) Name() string { return l.name }

// openTx implements transactionalProvider with the log's consistency level.
func (l *Log) openTx() (kcv.Transaction, error) {
	var cfg kcv.TxConfig
	if l.opts.KeyConsistent {
		cfg = l.manager.storeManager.Features().KeyConsistentTxConfig
	}
	return l.manager.storeManager.BeginTransaction(cfg)
}

func (l *Log) logKeyFor(partitionID uint32, bucketID int, timeslice int32) []byte {
	return logKey(partitionID, l.manager.partitionBitWidth, bucketID, timeslice)
}

func (l *Log) checkPartition(partitionID uint32) error {
	if uint64(partitionID) >= uint64(1)<<uint(l.manager.partitionBitWidth) {
		return invalidArgf("partition id %d out of range for bit width %d", partitionID, l.manager.partitionBitWidth)
	}
	return nil
}

// Produce appends payload to the default partition. The returned future
// completes once the message is durably written or the write has failed.
func (l *Log) Produce(payload []byte) (*DeliveryFuture, error) {
	return l.produceToPartition(payload, l.manager.defaultPartitionID)
}

// ProduceWithKey derives the partition from the first up-to-4 bytes of
// routingKey, so equal keys land on equal partitions.
func (l *Log) ProduceWithKey(payload, routingKey []byte) (*DeliveryFuture, error) {
	var pid uint32
	for i := 0; i < 4; i++ {
		var b byte
		if i < len(routingKey) {
			b = routingKey[i]
		}
		pid = pid<<8 | uint32(b)
	}
	pid >>= uint(32 - l.manager.partitionBitWidth)
	return l.produceToPartition(payload, pid)
}

func (l *Log) produceToPartition(payload []byte, partitionID uint32) (*DeliveryFuture, error) {
	if !l.isOpen.Load() {
		return nil, ErrClosed
	}
	if len(payload) == 0 {
		return nil, invalidArgf("empty payload")
	}
	if err := l.checkPartition(partitionID); err != nil {
		return nil, err
	}

	timestamp := l.clock.Now()
	timeslice, err := timesliceOf(timestamp)
	if err != nil {
		return nil, err
	}
	msg := Message{Payload: payload, TimestampMicros: timestamp, SenderID: l.manager.senderID}
	entry, err := encodeMessage(msg, l.seqCounter.Add(1))
	if err != nil {
		return nil, err
	}

	bucket := int(l.bucketCounter.Add(1) % int64(l.opts.NumBuckets))
	envelope := &messageEnvelope{
		future: newDeliveryFuture(msg),
		key:    l.logKeyFor(partitionID, bucket, timeslice),
		entry:  entry,
	}

	if l.queue == nil {
		if err := l.flushEnvelopes([]*messageEnvelope{envelope}); err != nil {
			return envelope.future, err
		}
		return envelope.future, nil
	}
	// Backpressure: a full queue blocks the producer here.
	l.queue <- envelope
	return envelope.future, nil
}

// flushEnvelopes writes a batch to the backend in one transaction and
// completes every envelope's future. Envelopes are grouped by row key with
// insertion order preserved within a key; a store with batch mutation gets
// one multi-key call. On failure every future fails and the envelopes are
// lost; the next batch is independent.
func (l *Log) flushEnvelopes(envelopes []*messageEnvelope) error {
	keys := make([]string, 0, len(envelopes))
	byKey := make(map[string][]kcv.Entry, len(envelopes))
	for _, env := range envelopes {
		k := string(env.key)
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], env.entry)
	}

	op := backendOp[struct{}]{
		name: "messageSending",
		run: func(tx kcv.Transaction) (struct{}, error) {
			if l.manager.storeManager.Features().BatchMutation {
				mutations := make(map[string]kcv.Mutation, len(byKey))
				for k, entries := range byKey {
					mutations[k] = kcv.Mutation{Additions: entries}
				}
				return struct{}{}, l.manager.storeManager.MutateMany(l.store.Name(), mutations, tx)
			}
			for _, k := range keys {
				if err := l.store.Mutate([]byte(k), byKey[k], nil, tx); err != nil {
					return struct{}{}, err
				}
			}
			return struct{}{}, nil
		},
	}
	if _, err := executeOp(op, l, l.opts.MaxWriteTime, l.logger); err != nil {
		for _, env := range envelopes {
			env.future.fail(err)
		}
		return err
	}
	l.logger.Debug("wrote messages to backend", log.Int("messages", len(envelopes)))
	for _, env := range envelopes {
		env.future.delivered()
	}
	return nil
}

// RegisterReader adds one or more readers. See RegisterReaders.
func (l *Log) RegisterReader(readers ...MessageReader) error {
	return l.RegisterReaders(readers)
}

// RegisterReaders adds unique readers to the log. The first successful
// registration creates the reader pool and starts one puller per
// (read-partition, bucket), polling at the configured interval.
func (l *Log) RegisterReaders(readers []MessageReader) error {
	if len(readers) == 0 {
		return invalidArgf("must specify at least one reader")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isOpen.Load() {
		return ErrClosed
	}

	l.readersMu.Lock()
	first := l.pool == nil
	for _, r := range readers {
		if r == nil {
			l.readersMu.Unlock()
			return invalidArgf("nil reader")
		}
		if !l.containsReader(r) {
			l.readers = append(l.readers, r)
		}
	}
	registered := len(l.readers)
	l.readersMu.Unlock()

	if first && registered > 0 {
		pool := newReaderPool(l.opts.ReadThreads)
		var pullers []*messagePuller
		for _, partitionID := range l.manager.readPartitionIDs {
			for bucket := 0; bucket < l.opts.NumBuckets; bucket++ {
				p, err := newMessagePuller(l, partitionID, bucket)
				if err != nil {
					pool.Shutdown(0)
					return err
				}
				pullers = append(pullers, p)
			}
		}
		l.pool = pool
		l.pullers = pullers
		for _, p := range pullers {
			pool.ScheduleWithFixedDelay(p.run, initialReaderDelay, l.opts.ReadInterval)
		}
	}
	return nil
}

// UnregisterReader removes a reader, reporting whether it was registered.
// A message already decoded when the reader is removed may still be
// delivered to it once.
func (l *Log) UnregisterReader(r MessageReader) bool {
	l.readersMu.Lock()
	defer l.readersMu.Unlock()
	for i, existing := range l.readers {
		if existing == r {
			l.readers = append(l.readers[:i], l.readers[i+1:]...)
			return true
		}
	}
	return false
}

// containsReader is called with readersMu held.
func (l *Log) containsReader(r MessageReader) bool {
	for _, existing := range l.readers {
		if existing == r {
			return true
		}
	}
	return false
}

func (l *Log) snapshotReaders() []MessageReader {
	l.readersMu.Lock()
	defer l.readersMu.Unlock()
	out := make([]MessageReader, len(l.readers))
	copy(out, l.readers)
	return out
}

// Close shuts the log down: the reader pool is drained (bounded, then
// force-cancelled), the batcher drains the outgoing queue, puller cursors
// are persisted if the pool drained in time, the send-side sequence counter
// is persisted, and the store is closed. Produce and register operations
// fail afterwards.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isOpen.CompareAndSwap(true, false) {
		return nil
	}

	var errs []error
	poolDrained := true
	if l.pool != nil {
		poolDrained = l.pool.Shutdown(readPoolShutdownWait)
		if !poolDrained {
			l.logger.Error("reader pool did not shut down in time; read markers not persisted")
		}
	}
	if l.batcher != nil {
		l.batcher.close(closeDownWait)
	}
	if poolDrained {
		for _, p := range l.pullers {
			p.close()
		}
	}
	if err := l.settings.write(l.manager.senderID, messageCounterColumn, l.seqCounter.Load()); err != nil {
		errs = append(errs, err)
	}
	if err := l.store.Close(); err != nil {
		errs = append(errs, err)
	}
	l.manager.closedLog(l)
	return errors.Join(errs...)
}
