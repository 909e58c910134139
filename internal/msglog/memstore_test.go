package msglog

import (
	"bytes"
	"errors"
	"sort"
	"sync"

	"github.com/rzbill/kcvlog/internal/kcv"
)

// memStoreManager is an in-memory kcv.StoreManager for tests, with
// injectable stalls and transient failures.
type memStoreManager struct {
	mu     sync.Mutex
	stores map[string]*memStore

	batchMutation   bool
	mutateManyCalls int

	// failWrites makes that many write operations fail with a temporary
	// error before succeeding.
	failWrites int
	// stall, when non-nil, blocks writes until the channel is closed.
	stall chan struct{}
}

func newMemStoreManager() *memStoreManager {
	return &memStoreManager{stores: make(map[string]*memStore), batchMutation: true}
}

func (m *memStoreManager) OpenStore(name string) (kcv.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	s := &memStore{manager: m, name: name, rows: make(map[string][]kcv.Entry)}
	m.stores[name] = s
	return s, nil
}

func (m *memStoreManager) BeginTransaction(cfg kcv.TxConfig) (kcv.Transaction, error) {
	return &memTx{}, nil
}

func (m *memStoreManager) Features() kcv.Features {
	m.mu.Lock()
	defer m.mu.Unlock()
	return kcv.Features{
		BatchMutation:         m.batchMutation,
		KeyConsistentTxConfig: kcv.TxConfig{KeyConsistent: true},
	}
}

func (m *memStoreManager) MutateMany(storeName string, mutations map[string]kcv.Mutation, tx kcv.Transaction) error {
	m.waitIfStalled()
	m.mu.Lock()
	m.mutateManyCalls++
	if m.failWrites > 0 {
		m.failWrites--
		m.mu.Unlock()
		return kcv.Temporary(errors.New("injected failure"))
	}
	s, ok := m.stores[storeName]
	if !ok {
		m.mu.Unlock()
		return errors.New("no such store")
	}
	for key, mut := range mutations {
		s.apply([]byte(key), mut.Additions, mut.Deletions)
	}
	m.mu.Unlock()
	return nil
}

func (m *memStoreManager) Close() error { return nil }

func (m *memStoreManager) waitIfStalled() {
	m.mu.Lock()
	stall := m.stall
	m.mu.Unlock()
	if stall != nil {
		<-stall
	}
}

func (m *memStoreManager) setStall(ch chan struct{}) {
	m.mu.Lock()
	m.stall = ch
	m.mu.Unlock()
}

func (m *memStoreManager) mutateManyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateManyCalls
}

type memStore struct {
	manager *memStoreManager
	name    string
	rows    map[string][]kcv.Entry

	// failReads makes that many GetSlice calls fail with a temporary error.
	failReads int
}

func (s *memStore) Name() string { return s.name }

func (s *memStore) Mutate(key []byte, additions []kcv.Entry, deletions [][]byte, tx kcv.Transaction) error {
	s.manager.waitIfStalled()
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()
	if s.manager.failWrites > 0 {
		s.manager.failWrites--
		return kcv.Temporary(errors.New("injected failure"))
	}
	s.apply(key, additions, deletions)
	return nil
}

// apply upserts additions and removes deletions, keeping the row sorted by
// column. Callers hold the manager lock.
func (s *memStore) apply(key []byte, additions []kcv.Entry, deletions [][]byte) {
	row := s.rows[string(key)]
	for _, del := range deletions {
		for i, e := range row {
			if bytes.Equal(e.Column(), del) {
				row = append(row[:i], row[i+1:]...)
				break
			}
		}
	}
	for _, add := range additions {
		replaced := false
		for i, e := range row {
			if bytes.Equal(e.Column(), add.Column()) {
				row[i] = add
				replaced = true
				break
			}
		}
		if !replaced {
			row = append(row, add)
		}
	}
	sort.Slice(row, func(i, j int) bool {
		return bytes.Compare(row[i].Column(), row[j].Column()) < 0
	})
	s.rows[string(key)] = row
}

func (s *memStore) GetSlice(q kcv.KeySliceQuery, tx kcv.Transaction) ([]kcv.Entry, error) {
	s.manager.mu.Lock()
	defer s.manager.mu.Unlock()
	if s.failReads > 0 {
		s.failReads--
		return nil, kcv.Temporary(errors.New("injected read failure"))
	}
	var out []kcv.Entry
	for _, e := range s.rows[string(q.Key)] {
		if bytes.Compare(e.Column(), q.ColumnStart) < 0 {
			continue
		}
		if len(q.ColumnEnd) > 0 && bytes.Compare(e.Column(), q.ColumnEnd) >= 0 {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Close() error { return nil }

type memTx struct{}

func (t *memTx) Commit() error   { return nil }
func (t *memTx) Rollback() error { return nil }
