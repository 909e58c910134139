package kcv

import "bytes"

// Entry is a single column/value pair stored in one buffer. The split point
// records where the column ends and the value begins, so an entry built by a
// writer round-trips through the store without re-slicing.
type Entry struct {
	data     []byte
	valuePos int
}

// NewEntry builds an entry from one buffer and the position at which the
// value portion starts. The buffer is retained, not copied.
func NewEntry(data []byte, valuePos int) Entry {
	if valuePos < 0 || valuePos > len(data) {
		panic("kcv: entry value position out of range")
	}
	return Entry{data: data, valuePos: valuePos}
}

// EntryOf builds an entry from separate column and value slices.
func EntryOf(column, value []byte) Entry {
	buf := make([]byte, 0, len(column)+len(value))
	buf = append(buf, column...)
	buf = append(buf, value...)
	return Entry{data: buf, valuePos: len(column)}
}

// Column returns the column portion of the entry.
func (e Entry) Column() []byte { return e.data[:e.valuePos] }

// Value returns the value portion of the entry.
func (e Entry) Value() []byte { return e.data[e.valuePos:] }

// Bytes returns the full underlying buffer (column followed by value).
func (e Entry) Bytes() []byte { return e.data }

// ColumnCompare orders entries by raw column bytes.
func (e Entry) ColumnCompare(other Entry) int {
	return bytes.Compare(e.Column(), other.Column())
}

// KeySliceQuery selects a contiguous column range of a single row.
// ColumnStart is inclusive, ColumnEnd exclusive. Limit <= 0 means unbounded.
type KeySliceQuery struct {
	Key         []byte
	ColumnStart []byte
	ColumnEnd   []byte
	Limit       int
}

// WithLimit returns a copy of the query bounded to n entries.
func (q KeySliceQuery) WithLimit(n int) KeySliceQuery {
	q.Limit = n
	return q
}

// Mutation is a batch of column additions and deletions for one row.
type Mutation struct {
	Additions []Entry
	Deletions [][]byte
}
