package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Log.MaxWriteTimeMs != 10000 {
		t.Fatalf("max-write-time default: %d", cfg.Log.MaxWriteTimeMs)
	}
	if cfg.Log.MaxReadTimeMs != 4000 {
		t.Fatalf("max-read-time default: %d", cfg.Log.MaxReadTimeMs)
	}
	if cfg.Log.ReadLagTimeMs != 500 {
		t.Fatalf("read-lag-time default: %d", cfg.Log.ReadLagTimeMs)
	}
	if cfg.Log.KeyConsistent {
		t.Fatalf("key-consistent should default to false")
	}
	if cfg.Log.NumBuckets < 1 {
		t.Fatalf("num-buckets default must be at least 1")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log != Default().Log || cfg.SenderID != "" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kcvlog.json")
	body := `{
		"sender-id": "node-1",
		"partition-bit-width": 8,
		"read-partitions": [0, 1],
		"log": {"send-batch-size": 32, "send-delay": 5}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SenderID != "node-1" || cfg.PartitionBitWidth != 8 {
		t.Fatalf("top-level fields not loaded: %+v", cfg)
	}
	if len(cfg.ReadPartitions) != 2 {
		t.Fatalf("read-partitions not loaded: %v", cfg.ReadPartitions)
	}
	if cfg.Log.SendBatchSize != 32 || cfg.Log.SendDelayMs != 5 {
		t.Fatalf("log options not loaded: %+v", cfg.Log)
	}
	// Untouched options keep their defaults.
	if cfg.Log.MaxWriteTimeMs != 10000 {
		t.Fatalf("defaults not preserved: %+v", cfg.Log)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
