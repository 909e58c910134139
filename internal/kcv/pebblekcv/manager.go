package pebblekcv

import (
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/kcvlog/internal/kcv"
)

// FsyncMode defines durability behavior for committed transactions.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed transaction.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by allowing Pebble to coalesce
	// WAL syncs for commits within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application. Pebble
	// may still sync based on its own policies.
	FsyncModeNever
)

// Options configures the Pebble-backed KCV manager.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
	// PebbleOptions allows advanced tuning. If nil, defaults are used.
	PebbleOptions *pebble.Options
	// Metrics allows observing commit and read latencies. Optional.
	Metrics MetricsHook
}

// MetricsHook is a minimal hook surface for storage observations.
type MetricsHook interface {
	ObserveCommit(elapsed time.Duration, bytes int)
	ObserveSlice(elapsed time.Duration, entries int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveCommit(time.Duration, int) {}
func (NoopMetrics) ObserveSlice(time.Duration, int)  {}

// Manager implements kcv.StoreManager on one Pebble database.
type Manager struct {
	db        *pebble.DB
	writeSync bool
	metrics   MetricsHook

	mu     sync.Mutex
	stores map[string]*store
	closed bool
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*Manager, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblekcv: Options.DataDir is required")
	}

	po := opts.PebbleOptions
	if po == nil {
		po = &pebble.Options{}
	}

	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync on each commit; WALMinSyncInterval left at default (0).
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		// Default to small group-commit for a reasonable latency/throughput
		// tradeoff.
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	db, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	return &Manager{
		db:        db,
		writeSync: opts.Fsync == FsyncModeAlways,
		metrics:   metrics,
		stores:    make(map[string]*store),
	}, nil
}

// OpenStore opens (creating if needed) the named store. Opening the same
// name twice returns the same instance.
func (m *Manager) OpenStore(name string) (kcv.Store, error) {
	if name == "" {
		return nil, errors.New("pebblekcv: store name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, kcv.ErrStoreClosed
	}
	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	s := &store{manager: m, name: name}
	m.stores[name] = s
	return s, nil
}

// BeginTransaction starts an indexed batch transaction.
func (m *Manager) BeginTransaction(cfg kcv.TxConfig) (kcv.Transaction, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, kcv.ErrStoreClosed
	}
	sync := m.writeSync
	if cfg.KeyConsistent {
		// Key-consistent transactions always sync so a committed counter or
		// cursor survives process death.
		sync = true
	}
	return &tx{manager: m, batch: m.db.NewIndexedBatch(), sync: sync}, nil
}

// Features reports Pebble's capabilities: batches give us atomic multi-row
// mutation for free.
func (m *Manager) Features() kcv.Features {
	return kcv.Features{
		BatchMutation:         true,
		KeyConsistentTxConfig: kcv.TxConfig{KeyConsistent: true},
	}
}

// MutateMany applies mutations to many rows of one store inside tx.
func (m *Manager) MutateMany(storeName string, mutations map[string]kcv.Mutation, tx kcv.Transaction) error {
	s, err := m.OpenStore(storeName)
	if err != nil {
		return err
	}
	for key, mut := range mutations {
		if err := s.Mutate([]byte(key), mut.Additions, mut.Deletions, tx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the Pebble database and every store opened through the
// manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	return m.db.Close()
}
