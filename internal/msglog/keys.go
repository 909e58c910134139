package msglog

import (
	"encoding/binary"
	"math"
)

// TimesliceInterval is the time period stored under one row key, in
// microseconds. This value is wire format: changing it makes existing logs
// unreadable. If too many messages end up under one key, configure more
// buckets or wider partitioning instead.
const TimesliceInterval int64 = 100 * 1000 * 1000 // 100 seconds

// systemPartitionID occupies the first 4 bytes of every setting key. All 1s
// is unreachable from normal partition ids, which occupy only the upper
// PartitionBitWidth bits.
const systemPartitionID uint32 = 0xFFFFFFFF

// First byte of a system column selects its type.
const (
	colTypeMessageCounter byte = 1
	colTypeMarker         byte = 2
)

// messageCounterColumn is the single-byte column holding a sender's message
// counter.
var messageCounterColumn = []byte{colTypeMessageCounter}

func appendBE4(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// be8 encodes a non-negative int64 as 8 big-endian bytes. Lexicographic
// order of the encoding matches numeric order.
func be8(v int64) []byte {
	return appendBE8(make([]byte, 0, 8), uint64(v))
}

// appendString writes a uvarint-length-prefixed string.
func appendString(dst []byte, s string) []byte {
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(s)))
	dst = append(dst, lenbuf[:n]...)
	return append(dst, s...)
}

// readString reads a uvarint-length-prefixed string and returns it with the
// remaining bytes.
func readString(b []byte) (string, []byte, error) {
	slen, n := binary.Uvarint(b)
	if n <= 0 || uint64(len(b)-n) < slen {
		return "", nil, invalidArgf("truncated length-prefixed string")
	}
	return string(b[n : n+int(slen)]), b[n+int(slen):], nil
}

// timesliceOf maps a microsecond timestamp onto its 32-bit timeslice index.
func timesliceOf(timestampMicros int64) (int32, error) {
	v := timestampMicros / TimesliceInterval
	// Division truncates toward zero, so a negative timestamp is checked
	// directly rather than through v.
	if timestampMicros < 0 || v > math.MaxInt32 {
		return 0, invalidArgf("timestamp overflow: %d", timestampMicros)
	}
	return int32(v), nil
}

// logKey builds the 12-byte row key for (partition, bucket, timeslice). The
// partition id is shifted so its significant bits lead the key, keeping the
// key space load-balanced for any bit width.
func logKey(partitionID uint32, partitionBitWidth int, bucketID int, timeslice int32) []byte {
	k := make([]byte, 0, 12)
	k = appendBE4(k, partitionID<<(32-uint(partitionBitWidth)))
	k = appendBE4(k, uint32(bucketID))
	k = appendBE4(k, uint32(timeslice))
	return k
}

// settingKey builds the row key for a setting identifier inside the
// reserved system partition.
func settingKey(identifier string) []byte {
	k := make([]byte, 0, 4+2+len(identifier))
	k = appendBE4(k, systemPartitionID)
	return appendString(k, identifier)
}

// markerColumn builds the system column holding a reader's cursor for one
// (partition, bucket).
func markerColumn(partitionID uint32, bucketID int) []byte {
	c := make([]byte, 0, 1+4+4)
	c = append(c, colTypeMarker)
	c = appendBE4(c, partitionID)
	return appendBE4(c, uint32(bucketID))
}

// columnSuccessor returns the smallest column strictly greater than col in
// lexicographic order.
func columnSuccessor(col []byte) []byte {
	out := make([]byte, 0, len(col)+1)
	out = append(out, col...)
	return append(out, 0x00)
}
