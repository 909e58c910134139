// Package kcv defines the Key-Column-Value storage contract the message log
// is written against.
//
// A KCV store maps a row key to an ordered set of (column, value) pairs.
// Columns within a row are ordered lexicographically by their raw bytes, and
// slice queries return a contiguous column range [start, end) of a single
// row. Writes are expressed as mutations (column additions and deletions)
// applied inside a transaction obtained from a StoreManager.
//
// Implementations live in subpackages (see pebblekcv). Test fakes implement
// the same interfaces in-memory.
package kcv
