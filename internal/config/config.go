package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the top-level configuration loaded from file.
type Config struct {
	// SenderID identifies this process in produced messages. Empty means a
	// generated identity (not stable across restarts).
	SenderID string `json:"sender-id"`
	// PartitionBitWidth is how many leading row-key bits carry the
	// partition id, 0 through 32.
	PartitionBitWidth int `json:"partition-bit-width"`
	// DefaultPartition receives messages produced without a routing key.
	DefaultPartition uint32 `json:"default-partition"`
	// ReadPartitions are the partitions this process polls. Empty means
	// just the default partition.
	ReadPartitions []uint32 `json:"read-partitions"`

	Log LogConfig `json:"log"`
}

// LogConfig carries the per-log tuning options. All times are in
// milliseconds.
type LogConfig struct {
	MaxWriteTimeMs int  `json:"max-write-time"`
	MaxReadTimeMs  int  `json:"max-read-time"`
	ReadLagTimeMs  int  `json:"read-lag-time"`
	KeyConsistent  bool `json:"key-consistent"`
	NumBuckets     int  `json:"num-buckets"`
	SendBatchSize  int  `json:"send-batch-size"`
	SendDelayMs    int  `json:"send-delay"`
	ReadThreads    int  `json:"read-threads"`
	ReadBatchSize  int  `json:"read-batch-size"`
	ReadIntervalMs int  `json:"read-interval"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		PartitionBitWidth: 0,
		DefaultPartition:  0,
		Log: LogConfig{
			MaxWriteTimeMs: 10000,
			MaxReadTimeMs:  4000,
			ReadLagTimeMs:  500,
			KeyConsistent:  false,
			NumBuckets:     1,
			SendBatchSize:  256,
			SendDelayMs:    1000,
			ReadThreads:    1,
			ReadBatchSize:  1024,
			ReadIntervalMs: 5000,
		},
	}
}

// Load reads configuration from a JSON file, layered over the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
