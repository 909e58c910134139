package msglog

import (
	"encoding/binary"
	"time"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/log"
)

// settingStore reads and writes 8-byte counters in the reserved system
// partition: the send-side message counter per sender and the per-reader
// cursor per (partition, bucket).
type settingStore struct {
	store        kcv.Store
	txp          transactionalProvider
	maxReadTime  time.Duration
	maxWriteTime time.Duration
	logger       log.Logger
}

// read fetches the value at (settingKey(identifier), column), returning def
// when absent. A stored value that is not exactly 8 bytes is corrupt and
// rejected as an invalid argument.
func (s *settingStore) read(identifier string, column []byte, def int64) (int64, error) {
	key := settingKey(identifier)
	op := backendOp[[]kcv.Entry]{
		name: "readingLogSetting",
		run: func(tx kcv.Transaction) ([]kcv.Entry, error) {
			q := kcv.KeySliceQuery{
				Key:         key,
				ColumnStart: column,
				ColumnEnd:   columnSuccessor(column),
			}
			return s.store.GetSlice(q.WithLimit(1), tx)
		},
	}
	entries, err := executeOp(op, s.txp, s.maxReadTime, s.logger)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return def, nil
	}
	value := entries[0].Value()
	if len(value) != 8 {
		return 0, invalidArgf("setting %q has %d-byte value, want 8", identifier, len(value))
	}
	return int64(binary.BigEndian.Uint64(value)), nil
}

// write upserts an 8-byte big-endian value at (settingKey(identifier), column).
func (s *settingStore) write(identifier string, column []byte, value int64) error {
	key := settingKey(identifier)
	add := kcv.EntryOf(column, be8(value))
	op := backendOp[struct{}]{
		name: "writingLogSetting",
		run: func(tx kcv.Transaction) (struct{}, error) {
			return struct{}{}, s.store.Mutate(key, []kcv.Entry{add}, nil, tx)
		},
	}
	_, err := executeOp(op, s.txp, s.maxWriteTime, s.logger)
	return err
}
