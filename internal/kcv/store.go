package kcv

// Transaction is a unit of work against a store. All reads and writes carry
// the transaction they execute under; Commit makes the writes durable.
type Transaction interface {
	Commit() error
	Rollback() error
}

// TxConfig selects transaction behavior when one is begun.
type TxConfig struct {
	// KeyConsistent requests that operations on a single key observe and
	// apply in a consistent order across the transaction.
	KeyConsistent bool
}

// Features describes optional capabilities of a store manager.
type Features struct {
	// BatchMutation reports whether MutateMany applies a multi-row mutation
	// atomically in one call.
	BatchMutation bool
	// KeyConsistentTxConfig is the configuration to use for key-consistent
	// transactions when KeyConsistent operations are requested.
	KeyConsistentTxConfig TxConfig
}

// Store is a single named Key-Column-Value table.
type Store interface {
	// Name returns the store's unique name.
	Name() string
	// Mutate applies column additions and deletions to one row.
	Mutate(key []byte, additions []Entry, deletions [][]byte, tx Transaction) error
	// GetSlice returns the entries of one row whose columns fall in
	// [ColumnStart, ColumnEnd), in column order, up to Limit entries.
	GetSlice(query KeySliceQuery, tx Transaction) ([]Entry, error)
	// Close releases the store. The manager that opened it stays usable.
	Close() error
}

// StoreManager opens stores and provides transactions spanning them.
type StoreManager interface {
	// OpenStore opens (creating if needed) the named store.
	OpenStore(name string) (Store, error)
	// BeginTransaction starts a new transaction.
	BeginTransaction(cfg TxConfig) (Transaction, error)
	// Features reports the manager's capabilities.
	Features() Features
	// MutateMany applies mutations to many rows of one store in a single
	// call. Row keys are the map keys, in raw-byte form.
	MutateMany(storeName string, mutations map[string]Mutation, tx Transaction) error
	// Close releases the manager and every store opened through it.
	Close() error
}
