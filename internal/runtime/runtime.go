package runtime

import (
	"time"

	cfgpkg "github.com/rzbill/kcvlog/internal/config"
	"github.com/rzbill/kcvlog/internal/kcv/pebblekcv"
	"github.com/rzbill/kcvlog/internal/msglog"
	"github.com/rzbill/kcvlog/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblekcv.FsyncMode
	Config  cfgpkg.Config
	Logger  log.Logger
}

// Runtime owns the store manager and log manager for one data directory.
type Runtime struct {
	storeManager *pebblekcv.Manager
	logManager   *msglog.Manager
	config       cfgpkg.Config
}

// Open initializes the underlying storage and log manager.
func Open(opts Options) (*Runtime, error) {
	storeManager, err := pebblekcv.Open(pebblekcv.Options{
		DataDir: opts.DataDir,
		Fsync:   opts.Fsync,
	})
	if err != nil {
		return nil, err
	}
	logManager, err := msglog.NewManager(storeManager, msglog.ManagerOptions{
		SenderID:           opts.Config.SenderID,
		PartitionBitWidth:  opts.Config.PartitionBitWidth,
		DefaultPartitionID: opts.Config.DefaultPartition,
		ReadPartitionIDs:   opts.Config.ReadPartitions,
		Logger:             opts.Logger,
	})
	if err != nil {
		_ = storeManager.Close()
		return nil, err
	}
	return &Runtime{storeManager: storeManager, logManager: logManager, config: opts.Config}, nil
}

// OpenLog opens the named log with the configured options.
func (r *Runtime) OpenLog(name string, marker msglog.ReadMarker) (*msglog.Log, error) {
	return r.logManager.OpenLog(name, marker, logOptions(r.config.Log))
}

// Manager returns the log manager.
func (r *Runtime) Manager() *msglog.Manager { return r.logManager }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Close closes all open logs and the underlying store.
func (r *Runtime) Close() error {
	return r.logManager.Close()
}

func logOptions(c cfgpkg.LogConfig) msglog.Options {
	opts := msglog.DefaultOptions()
	if c.MaxWriteTimeMs > 0 {
		opts.MaxWriteTime = time.Duration(c.MaxWriteTimeMs) * time.Millisecond
	}
	if c.MaxReadTimeMs > 0 {
		opts.MaxReadTime = time.Duration(c.MaxReadTimeMs) * time.Millisecond
	}
	if c.ReadLagTimeMs > 0 {
		opts.ReadLagTime = time.Duration(c.ReadLagTimeMs) * time.Millisecond
	}
	opts.KeyConsistent = c.KeyConsistent
	if c.NumBuckets > 0 {
		opts.NumBuckets = c.NumBuckets
	}
	if c.SendBatchSize > 0 {
		opts.SendBatchSize = c.SendBatchSize
	}
	if c.SendDelayMs >= 0 {
		opts.SendDelay = time.Duration(c.SendDelayMs) * time.Millisecond
	}
	if c.ReadThreads > 0 {
		opts.ReadThreads = c.ReadThreads
	}
	if c.ReadBatchSize > 0 {
		opts.ReadBatchSize = c.ReadBatchSize
	}
	if c.ReadIntervalMs > 0 {
		opts.ReadInterval = time.Duration(c.ReadIntervalMs) * time.Millisecond
	}
	return opts
}
