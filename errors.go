package mfs

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnsupportedOperation is returned by operations the federation never
	// performs (the copyFromLocalFile family) and by capability lookups that
	// the selected backend does not implement.
	ErrUnsupportedOperation = errors.New("mfs not support this action")

	// ErrNotSynced is returned by local-output operations when the secondary
	// backend does not hold the requested file yet.
	ErrNotSynced = errors.New("file not exists,please wait to sync")

	// ErrInvalidURI is returned by Initialize when a configured filesystem URI
	// cannot be used. It is not retryable.
	ErrInvalidURI = errors.New("invalid filesystem uri")

	// ErrNoBackend is returned when an adapter is built without a primary or
	// secondary backend.
	ErrNoBackend = errors.New("backend not configured")
)

// unsupported reports that the backend serving scheme cannot perform op.
func unsupported(op, scheme string) error {
	return errors.Wrapf(ErrUnsupportedOperation, "%s on %s", op, scheme)
}
