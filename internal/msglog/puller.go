package msglog

import (
	"encoding/binary"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/log"
)

// messagePuller polls one (partition, bucket) key and advances a timestamp
// cursor. One instance exists per (read-partition, bucket); its run is
// scheduled with a fixed delay and never overlaps itself.
type messagePuller struct {
	log         *Log
	partitionID uint32
	bucketID    int
	logger      log.Logger

	// nextTimestamp is the inclusive lower bound of the next poll. Only the
	// scheduled run and close touch it, never concurrently.
	nextTimestamp int64
}

func newMessagePuller(l *Log, partitionID uint32, bucketID int) (*messagePuller, error) {
	p := &messagePuller{
		log:         l,
		partitionID: partitionID,
		bucketID:    bucketID,
		logger: l.logger.With(
			log.Int64("partition", int64(partitionID)), log.Int("bucket", bucketID)),
	}
	marker := l.marker
	if marker.hasIdentifier() {
		next, err := l.settings.read(marker.Identifier, markerColumn(partitionID, bucketID), marker.StartTimeMicros)
		if err != nil {
			return nil, err
		}
		p.nextTimestamp = next
	} else {
		p.nextTimestamp = marker.StartTimeMicros
	}
	return p, nil
}

// run is one poll tick. Errors are logged and the cursor is left where it
// was, so the next tick retries the same range.
func (p *messagePuller) run() {
	// Recovery write: a crash after this point loses at most one poll
	// interval of progress.
	if err := p.persistCursor(); err != nil {
		p.logger.Warn("could not persist read marker", log.Err(err))
	}

	timeslice, err := timesliceOf(p.nextTimestamp)
	if err != nil {
		p.logger.Error("cursor outside representable time range", log.Err(err))
		return
	}
	// Hold back from "live" so writers still batching are not raced, and
	// cap at the end of the current timeslice so one poll stays on one row.
	maxTime := p.log.clock.Now() - p.log.readLagMicros
	if sliceEnd := (int64(timeslice) + 1) * TimesliceInterval; sliceEnd < maxTime {
		maxTime = sliceEnd
	}
	if maxTime <= p.nextTimestamp {
		return
	}

	key := p.log.logKeyFor(p.partitionID, p.bucketID, timeslice)
	query := kcv.KeySliceQuery{
		Key:         key,
		ColumnStart: be8(p.nextTimestamp),
		ColumnEnd:   be8(maxTime),
		Limit:       p.log.opts.ReadBatchSize,
	}
	entries, err := p.readSlice(query)
	if err != nil {
		p.logger.Error("message poll failed", log.Err(err))
		return
	}
	p.dispatch(entries)

	if len(entries) >= p.log.opts.ReadBatchSize {
		// The limit truncated the slice: there may be more messages at or
		// just past the last returned column. Re-read from its successor up
		// to lastTimestamp+2us with no limit; +2 rather than +1 so the
		// follow-up slice cannot come up empty on a same-microsecond burst.
		last := entries[len(entries)-1]
		lastTimestamp := int64(binary.BigEndian.Uint64(last.Column()[:8]))
		maxTime = lastTimestamp + 2
		query = kcv.KeySliceQuery{
			Key:         key,
			ColumnStart: columnSuccessor(last.Column()),
			ColumnEnd:   be8(maxTime),
		}
		extra, err := p.readSlice(query)
		if err != nil {
			p.logger.Error("message poll follow-up failed", log.Err(err))
			return
		}
		p.dispatch(extra)
	}

	p.nextTimestamp = maxTime
}

func (p *messagePuller) readSlice(query kcv.KeySliceQuery) ([]kcv.Entry, error) {
	op := backendOp[[]kcv.Entry]{
		name: "messageReading",
		run: func(tx kcv.Transaction) ([]kcv.Entry, error) {
			return p.log.store.GetSlice(query, tx)
		},
	}
	return executeOp(op, p.log, p.log.opts.MaxReadTime, p.logger)
}

// dispatch decodes each entry once and submits one processing job per
// registered reader. A failing reader is logged and does not affect other
// readers or the puller.
func (p *messagePuller) dispatch(entries []kcv.Entry) {
	for _, entry := range entries {
		msg, err := decodeMessage(entry)
		if err != nil {
			p.logger.Warn("skipping undecodable message", log.Err(err))
			continue
		}
		for _, reader := range p.log.snapshotReaders() {
			reader := reader
			p.log.pool.Submit(func() {
				if err := reader.Process(msg); err != nil {
					p.logger.Error("message reader failed", log.Err(err))
				}
			})
		}
	}
}

func (p *messagePuller) persistCursor() error {
	if !p.log.marker.hasIdentifier() {
		return nil
	}
	return p.log.settings.write(p.log.marker.Identifier, markerColumn(p.partitionID, p.bucketID), p.nextTimestamp)
}

// close persists the cursor so a reopen with the same marker identifier
// resumes here.
func (p *messagePuller) close() {
	if err := p.persistCursor(); err != nil {
		p.logger.Error("could not persist read marker on close", log.Err(err))
	}
}
