package msglog

import (
	"encoding/binary"

	"github.com/rzbill/kcvlog/internal/kcv"
)

// Message is what readers receive: an opaque payload plus the send-side
// timestamp and sender identity.
type Message struct {
	Payload         []byte
	TimestampMicros int64
	SenderID        string
}

// encodeMessage serializes a message into a store entry. The column is
// timestamp || sender || sequence and the value is the payload; because the
// timestamp leads the column, column order within a row is timestamp order
// with sender and sequence as tie-break.
func encodeMessage(msg Message, sequence int64) (kcv.Entry, error) {
	if msg.TimestampMicros <= 0 {
		return kcv.Entry{}, invalidArgf("non-positive message timestamp: %d", msg.TimestampMicros)
	}
	buf := make([]byte, 0, 8+2+len(msg.SenderID)+8+len(msg.Payload))
	buf = appendBE8(buf, uint64(msg.TimestampMicros))
	buf = appendString(buf, msg.SenderID)
	buf = appendBE8(buf, uint64(sequence))
	valuePos := len(buf)
	buf = append(buf, msg.Payload...)
	return kcv.NewEntry(buf, valuePos), nil
}

// decodeMessage reads timestamp and sender from the column and takes the
// entry value as the payload. The sequence number is present in the column
// but not needed on the read side.
func decodeMessage(e kcv.Entry) (Message, error) {
	col := e.Column()
	if len(col) < 8 {
		return Message{}, invalidArgf("message column too short: %d bytes", len(col))
	}
	timestamp := int64(binary.BigEndian.Uint64(col[:8]))
	sender, _, err := readString(col[8:])
	if err != nil {
		return Message{}, err
	}
	return Message{
		Payload:         e.Value(),
		TimestampMicros: timestamp,
		SenderID:        sender,
	}, nil
}
