package msglog

import (
	"fmt"
	"os"
	"sync"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/id"
	"github.com/rzbill/kcvlog/pkg/log"
)

// senderIDs generates the process-local suffix of default sender ids.
var senderIDs = id.NewGenerator()

// ManagerOptions configures a log manager.
type ManagerOptions struct {
	// SenderID identifies this process in every message it produces and
	// keys its persisted sequence counter. Defaults to hostname plus a
	// generated suffix; a stable identity across restarts requires setting
	// it explicitly.
	SenderID string
	// PartitionBitWidth is how many of a row key's leading bits carry the
	// partition id, 0 through 32.
	PartitionBitWidth int
	// DefaultPartitionID receives messages produced without a routing key.
	DefaultPartitionID uint32
	// ReadPartitionIDs are the partitions this process's pullers poll.
	// Defaults to just the default partition.
	ReadPartitionIDs []uint32
	// Logger receives structured log output. Defaults to a no-op logger.
	Logger log.Logger
}

// Manager owns the open logs of one store manager. Logs are unique by
// name: opening an already-open name returns the same instance.
type Manager struct {
	storeManager kcv.StoreManager

	senderID           string
	partitionBitWidth  int
	defaultPartitionID uint32
	readPartitionIDs   []uint32
	logger             log.Logger

	mu   sync.Mutex
	logs map[string]*Log
}

// NewManager creates a manager over the given store manager.
func NewManager(storeManager kcv.StoreManager, opts ManagerOptions) (*Manager, error) {
	if storeManager == nil {
		return nil, invalidArgf("store manager is required")
	}
	if opts.PartitionBitWidth < 0 || opts.PartitionBitWidth > 32 {
		return nil, invalidArgf("partition bit width %d out of range [0, 32]", opts.PartitionBitWidth)
	}

	senderID := opts.SenderID
	if senderID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "kcvlog"
		}
		senderID = fmt.Sprintf("%s-%s", host, senderIDs.Next().Short())
	}

	readPartitions := opts.ReadPartitionIDs
	if len(readPartitions) == 0 {
		readPartitions = []uint32{opts.DefaultPartitionID}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	m := &Manager{
		storeManager:       storeManager,
		senderID:           senderID,
		partitionBitWidth:  opts.PartitionBitWidth,
		defaultPartitionID: opts.DefaultPartitionID,
		readPartitionIDs:   append([]uint32(nil), readPartitions...),
		logger:             logger.WithComponent("msglog"),
		logs:               make(map[string]*Log),
	}
	if err := m.checkPartition(m.defaultPartitionID); err != nil {
		return nil, err
	}
	for _, p := range m.readPartitionIDs {
		if err := m.checkPartition(p); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) checkPartition(partitionID uint32) error {
	if uint64(partitionID) >= uint64(1)<<uint(m.partitionBitWidth) {
		return invalidArgf("partition id %d out of range for bit width %d", partitionID, m.partitionBitWidth)
	}
	return nil
}

// SenderID returns the identity stamped on produced messages.
func (m *Manager) SenderID() string { return m.senderID }

// OpenLog opens the named log, creating its backing store if needed. An
// already-open name returns the existing instance; marker and opts are
// ignored in that case.
func (m *Manager) OpenLog(name string, marker ReadMarker, opts Options) (*Log, error) {
	if name == "" {
		return nil, invalidArgf("log name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.logs[name]; ok {
		return l, nil
	}
	store, err := m.storeManager.OpenStore(name)
	if err != nil {
		return nil, err
	}
	l, err := newLog(m, name, store, marker, opts)
	if err != nil {
		return nil, err
	}
	m.logs[name] = l
	m.logger.Info("log opened", log.Str("log", name), log.Str("sender", m.senderID))
	return l, nil
}

// closedLog removes a log from the registry; called by Log.Close.
func (m *Manager) closedLog(l *Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.logs, l.name)
}

// Close closes every open log, then the underlying store manager.
func (m *Manager) Close() error {
	m.mu.Lock()
	open := make([]*Log, 0, len(m.logs))
	for _, l := range m.logs {
		open = append(open, l)
	}
	m.mu.Unlock()

	var errs []error
	for _, l := range open {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.storeManager.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("msglog: closing manager: %w", errs[0])
	}
	return nil
}
