package msglog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFutureCompletesOnce(t *testing.T) {
	f := newDeliveryFuture(Message{Payload: []byte{1}})
	f.delivered()
	f.fail(errors.New("late failure"))

	msg, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("first completion should win, got error %v", err)
	}
	if len(msg.Payload) != 1 {
		t.Fatalf("message lost")
	}
}

func TestFutureFailure(t *testing.T) {
	f := newDeliveryFuture(Message{})
	want := errors.New("boom")
	f.fail(want)
	f.delivered()

	_, err := f.Wait(context.Background())
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestFutureWaitRespectsContext(t *testing.T) {
	f := newDeliveryFuture(Message{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestFutureOutcome(t *testing.T) {
	f := newDeliveryFuture(Message{})
	if _, _, ok := f.Outcome(); ok {
		t.Fatalf("pending future should not report an outcome")
	}
	f.delivered()
	if _, _, ok := f.Outcome(); !ok {
		t.Fatalf("completed future should report an outcome")
	}
}
