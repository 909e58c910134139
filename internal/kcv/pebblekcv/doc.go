// Package pebblekcv implements the kcv storage contract on a single Pebble
// database.
//
// Every store opened through the Manager shares one Pebble instance. A row's
// columns are flattened into Pebble keys of the form
//
//	s/{store}/{uvarint len(key)}{key}{column}
//
// which keeps all columns of a row contiguous and in column-lexicographic
// order, so a KeySliceQuery maps directly onto a Pebble iterator range.
//
// Transactions are indexed Pebble batches: writes buffer in the batch, reads
// through the same transaction observe its uncommitted writes, and Commit
// applies the batch with the configured fsync policy.
package pebblekcv
