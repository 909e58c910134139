package msglog

import "time"

// ReadMarker says where a log's pullers start reading. A marker with an
// identifier persists each puller's cursor under that identifier, so a
// restart with the same identifier resumes where it left off; an
// identifier-less marker always starts at StartTimeMicros.
type ReadMarker struct {
	Identifier      string
	StartTimeMicros int64
}

// MarkerFromNow starts reading at the current time under the given
// identifier (empty for a transient marker).
func MarkerFromNow(identifier string) ReadMarker {
	return ReadMarker{Identifier: identifier, StartTimeMicros: time.Now().UnixMicro()}
}

// MarkerFromTime starts reading at t under the given identifier.
func MarkerFromTime(identifier string, t time.Time) ReadMarker {
	return ReadMarker{Identifier: identifier, StartTimeMicros: t.UnixMicro()}
}

func (m ReadMarker) hasIdentifier() bool { return m.Identifier != "" }
