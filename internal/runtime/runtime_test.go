package runtime

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/kcvlog/internal/config"
	"github.com/rzbill/kcvlog/internal/kcv/pebblekcv"
	"github.com/rzbill/kcvlog/internal/msglog"
)

func testConfig() cfgpkg.Config {
	cfg := cfgpkg.Default()
	cfg.SenderID = "node-1"
	cfg.PartitionBitWidth = 8
	cfg.Log.ReadLagTimeMs = 1
	cfg.Log.SendDelayMs = 20
	cfg.Log.ReadIntervalMs = 20
	cfg.Log.SendBatchSize = 4
	cfg.Log.NumBuckets = 2
	return cfg
}

func TestRuntimeOpensAndCloses(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblekcv.FsyncModeAlways, Config: testConfig()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if rt.Manager().SenderID() != "node-1" {
		t.Fatalf("sender id not wired: %q", rt.Manager().SenderID())
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

// End to end through Pebble: produce on one log handle, consume via a
// registered reader.
func TestRuntimeProduceConsume(t *testing.T) {
	rt, err := Open(Options{DataDir: t.TempDir(), Fsync: pebblekcv.FsyncModeAlways, Config: testConfig()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	l, err := rt.OpenLog("events", msglog.MarkerFromNow("r1"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}

	var mu sync.Mutex
	var received [][]byte
	reader := msglog.ReaderFunc(func(m msglog.Message) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, m.Payload)
		return nil
	})
	if err := l.RegisterReader(reader); err != nil {
		t.Fatalf("register: %v", err)
	}

	fut, err := l.Produce([]byte("through pebble"))
	if err != nil {
		t.Fatalf("produce: %v", err)
	}
	if _, err := fut.Wait(context.Background()); err != nil {
		t.Fatalf("delivery: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("message never reached the reader")
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(received[0], []byte("through pebble")) {
		t.Fatalf("payload mismatch: %q", received[0])
	}
}
