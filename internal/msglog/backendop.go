package msglog

import (
	"errors"
	"time"

	"github.com/rzbill/kcvlog/internal/kcv"
	"github.com/rzbill/kcvlog/pkg/log"
)

// transactionalProvider supplies fresh transactions for backend operations.
// The Log implements it with its configured consistency level.
type transactionalProvider interface {
	openTx() (kcv.Transaction, error)
}

// backendOp is an idempotent closure run against a fresh transaction. The
// name labels retry logging.
type backendOp[T any] struct {
	name string
	run  func(tx kcv.Transaction) (T, error)
}

// Retry backoff for transient storage failures: fixed floor, doubling to a
// cap so a struggling backend is not hammered.
const (
	retryBackoffBase = 10 * time.Millisecond
	retryBackoffMax  = 200 * time.Millisecond
)

// executeOp runs op inside freshly opened transactions, retrying temporary
// storage failures as long as the elapsed time plus the next backoff stays
// within deadline; once it would not, it fails with a
// BackendUnavailableError wrapping the last cause. Permanent errors are
// returned immediately.
func executeOp[T any](op backendOp[T], txp transactionalProvider, deadline time.Duration, logger log.Logger) (T, error) {
	var zero T
	start := time.Now()
	backoff := retryBackoffBase
	var lastErr error

	for {
		result, err := runOnce(op, txp)
		if err == nil {
			return result, nil
		}
		if !kcv.IsTemporary(err) {
			return zero, err
		}
		lastErr = err

		elapsed := time.Since(start)
		if elapsed+backoff > deadline {
			return zero, &BackendUnavailableError{Op: op.name, Deadline: deadline, Cause: lastErr}
		}
		logger.Debug("retrying backend operation",
			log.Str("op", op.name), log.Dur("elapsed", elapsed), log.Err(err))
		time.Sleep(backoff)
		if backoff *= 2; backoff > retryBackoffMax {
			backoff = retryBackoffMax
		}
	}
}

func runOnce[T any](op backendOp[T], txp transactionalProvider) (T, error) {
	var zero T
	tx, err := txp.openTx()
	if err != nil {
		return zero, err
	}
	result, err := op.run(tx)
	if err != nil {
		err = errors.Join(err, tx.Rollback())
		return zero, err
	}
	if err := tx.Commit(); err != nil {
		return zero, err
	}
	return result, nil
}
