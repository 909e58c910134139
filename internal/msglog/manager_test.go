package msglog

import (
	"errors"
	"testing"
)

func TestManagerValidatesBitWidth(t *testing.T) {
	store := newMemStoreManager()
	if _, err := NewManager(store, ManagerOptions{PartitionBitWidth: 33}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
	if _, err := NewManager(store, ManagerOptions{PartitionBitWidth: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestManagerValidatesPartitions(t *testing.T) {
	store := newMemStoreManager()
	_, err := NewManager(store, ManagerOptions{
		PartitionBitWidth:  2,
		DefaultPartitionID: 4, // out of [0, 4)
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestManagerGeneratesSenderID(t *testing.T) {
	store := newMemStoreManager()
	m1, err := NewManager(store, ManagerOptions{PartitionBitWidth: 8})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	m2, err := NewManager(store, ManagerOptions{PartitionBitWidth: 8})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if m1.SenderID() == "" {
		t.Fatalf("sender id must not be empty")
	}
	if m1.SenderID() == m2.SenderID() {
		t.Fatalf("generated sender ids must be unique: %q", m1.SenderID())
	}
}

func TestManagerRegistryReturnsOpenInstance(t *testing.T) {
	store := newMemStoreManager()
	m := newTestManager(t, store, 8)
	opts := testOptions()
	opts.SendDelay = 0

	l1, err := m.OpenLog("events", ReadMarker{}, opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	l2, err := m.OpenLog("events", ReadMarker{}, opts)
	if err != nil {
		t.Fatalf("open again: %v", err)
	}
	if l1 != l2 {
		t.Fatalf("open log must be unique by name")
	}

	if err := l1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	l3, err := m.OpenLog("events", ReadMarker{}, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if l3 == l1 {
		t.Fatalf("closing must unregister the log")
	}
	_ = l3.Close()
}
