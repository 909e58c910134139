package kcv

import (
	"errors"
	"fmt"
)

// ErrStoreClosed is returned for operations against a closed store or manager.
var ErrStoreClosed = errors.New("kcv: store closed")

// TemporaryError marks a storage failure that may succeed on retry, such as
// a timeout or a lost connection. Callers running operations under a retry
// harness only retry errors that report temporary.
type TemporaryError struct {
	Err error
}

func (e *TemporaryError) Error() string {
	return fmt.Sprintf("temporary storage failure: %v", e.Err)
}

func (e *TemporaryError) Unwrap() error { return e.Err }

// Temporary wraps err as a retryable storage failure.
func Temporary(err error) error {
	if err == nil {
		return nil
	}
	return &TemporaryError{Err: err}
}

// IsTemporary reports whether err is (or wraps) a retryable storage failure.
func IsTemporary(err error) bool {
	var te *TemporaryError
	return errors.As(err, &te)
}
