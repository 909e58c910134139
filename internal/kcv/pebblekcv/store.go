package pebblekcv

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/rzbill/kcvlog/internal/kcv"
)

// store implements kcv.Store by flattening (key, column) onto Pebble keys.
type store struct {
	manager *Manager
	name    string
}

func (s *store) Name() string { return s.name }

// rowPrefix builds the Pebble key prefix shared by all columns of one row:
// s/{store}/{uvarint len(key)}{key}
func (s *store) rowPrefix(key []byte) []byte {
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(key)))
	p := make([]byte, 0, 2+len(s.name)+1+n+len(key)+16)
	p = append(p, 's', '/')
	p = append(p, s.name...)
	p = append(p, '/')
	p = append(p, lenbuf[:n]...)
	p = append(p, key...)
	return p
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an exclusive iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff; no upper bound
}

// Mutate applies column additions and deletions to one row inside tx.
func (s *store) Mutate(key []byte, additions []kcv.Entry, deletions [][]byte, t kcv.Transaction) error {
	btx, err := s.batchTx(t)
	if err != nil {
		return err
	}
	prefix := s.rowPrefix(key)
	for _, col := range deletions {
		if err := btx.batch.Delete(append(append([]byte(nil), prefix...), col...), nil); err != nil {
			return kcv.Temporary(err)
		}
	}
	for _, e := range additions {
		pk := append(append([]byte(nil), prefix...), e.Column()...)
		if err := btx.batch.Set(pk, e.Value(), nil); err != nil {
			return kcv.Temporary(err)
		}
	}
	return nil
}

// GetSlice returns the columns of one row in [ColumnStart, ColumnEnd), in
// column order, up to Limit entries. Reads observe writes buffered in tx.
func (s *store) GetSlice(q kcv.KeySliceQuery, t kcv.Transaction) ([]kcv.Entry, error) {
	btx, err := s.batchTx(t)
	if err != nil {
		return nil, err
	}
	prefix := s.rowPrefix(q.Key)

	lower := append(append([]byte(nil), prefix...), q.ColumnStart...)
	var upper []byte
	if len(q.ColumnEnd) > 0 {
		upper = append(append([]byte(nil), prefix...), q.ColumnEnd...)
	} else {
		upper = prefixUpperBound(prefix)
	}

	start := time.Now()
	iter, err := btx.batch.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, kcv.Temporary(err)
	}
	defer iter.Close()

	var entries []kcv.Entry
	for iter.First(); iter.Valid(); iter.Next() {
		if q.Limit > 0 && len(entries) >= q.Limit {
			break
		}
		column := append([]byte(nil), iter.Key()[len(prefix):]...)
		value := append([]byte(nil), iter.Value()...)
		entries = append(entries, kcv.EntryOf(column, value))
	}
	if err := iter.Error(); err != nil {
		return nil, kcv.Temporary(err)
	}
	s.manager.metrics.ObserveSlice(time.Since(start), len(entries))
	return entries, nil
}

// Close is a no-op: the underlying Pebble instance is owned by the Manager.
func (s *store) Close() error { return nil }

func (s *store) batchTx(t kcv.Transaction) (*tx, error) {
	btx, ok := t.(*tx)
	if !ok || btx == nil {
		return nil, errors.New("pebblekcv: transaction not begun by this manager")
	}
	if btx.done {
		return nil, errors.New("pebblekcv: transaction already finished")
	}
	return btx, nil
}

// tx implements kcv.Transaction over an indexed Pebble batch.
type tx struct {
	manager *Manager
	batch   *pebble.Batch
	sync    bool
	done    bool
}

func (t *tx) Commit() error {
	if t.done {
		return errors.New("pebblekcv: transaction already finished")
	}
	t.done = true
	defer t.batch.Close()
	start := time.Now()
	size := t.batch.Len()
	mode := pebble.NoSync
	if t.sync || t.manager.writeSync {
		mode = pebble.Sync
	}
	if err := t.batch.Commit(mode); err != nil {
		return kcv.Temporary(err)
	}
	t.manager.metrics.ObserveCommit(time.Since(start), size)
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.batch.Close()
}
