// Package msglog implements a durable, partitioned, append-only message log
// on top of a Key-Column-Value store.
//
// # Key scheme
//
// Message rows are addressed by a fixed 12-byte key of three big-endian
// 32-bit fields:
//   - partition id, shifted left so its significant bits come first
//   - bucket id, assigned round-robin per produced message
//   - timeslice, floor(timestamp_us / 100s)
//
// Within a row, a message's column starts with its 8-byte big-endian
// timestamp, so column-lexicographic order is timestamp order and a poll is
// a single column range scan.
//
// # Data flow
//
// Producers enqueue envelopes onto a bounded queue; a single batcher
// goroutine coalesces them into multi-key mutations under size and latency
// deadlines and completes per-message delivery futures. A fixed pool of
// pullers, one per (read-partition, bucket), polls on a fixed cadence,
// advances per-puller timestamp cursors, and hands decoded messages to
// registered readers. Cursors and the send-side sequence counter persist in
// a reserved system partition of the same store, so a restart resumes where
// the previous process left off.
//
// All store interactions run inside the backend operation harness, which
// retries transient storage failures until a deadline expires.
//
//	mgr, _ := msglog.NewManager(storeManager, msglog.ManagerOptions{PartitionBitWidth: 8})
//	l, _ := mgr.OpenLog("events", msglog.ReadMarker{Identifier: "worker-1"}, msglog.DefaultOptions())
//	fut, _ := l.Produce([]byte("hello"))
//	_, _ = fut.Wait(ctx)
//	_ = l.RegisterReader(msglog.ReaderFunc(func(m msglog.Message) error {
//		// handle m
//		return nil
//	}))
package msglog
