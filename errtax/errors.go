// Package errtax defines the replay core's error taxonomy: sentinel kinds
// the rest of the core wraps with structured context (ids, versions,
// checkpoints) via github.com/cockroachdb/errors rather than ad hoc
// strings, so callers can errors.Is/errors.As their way to the right
// recovery policy instead of string-matching a message.
package errtax

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Each is matched with errors.Is against a wrapped error.
var (
	ErrMissingInput       = errors.New("missing input")
	ErrMissingPackage     = errors.New("missing package")
	ErrMissingDynamicChild = errors.New("missing dynamic child")
	ErrLinkageFailure     = errors.New("linkage failure")
	ErrCodec              = errors.New("codec error")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotAvailable       = errors.New("not available")
	ErrTimeout            = errors.New("timeout")
	ErrCancelled          = errors.New("cancelled")
	ErrHost               = errors.New("host error")
)

// MissingInput builds a structured, errors.Is(ErrMissingInput)-compatible
// error naming the object the hydration planner could not find.
func MissingInput(id fmt.Stringer, version uint64) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrMissingInput, "object %s at version %d", id, version),
		"id=%s version=%d", id, version,
	)
}

// MissingPackage builds a structured error naming the package the linkage
// resolver could not locate.
func MissingPackage(originalID fmt.Stringer) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrMissingPackage, "package %s", originalID),
		"original_id=%s", originalID,
	)
}

// MissingDynamicChild builds a structured error for a failed lazy child
// fetch.
func MissingDynamicChild(parent fmt.Stringer, keyHex string) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrMissingDynamicChild, "child of %s key=%s", parent, keyHex),
		"parent=%s key=%s", parent, keyHex,
	)
}

// LinkageFailure builds the fatal, never-recovered error raised when the VM
// cannot resolve a function after the linkage resolver has already run —
// always a bug in the resolver or loader, never a data problem.
func LinkageFailure(module, function string) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrLinkageFailure, "%s::%s not found after relocation", module, function),
		"module=%s function=%s", module, function,
	)
}

// Codec wraps a decode/encode failure with the byte offset it occurred at.
func Codec(offset int, reason string) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrCodec, "%s", reason),
		"offset=%d", offset,
	)
}

// NotAvailable wraps the expected "no record" case, distinguished from
// InfraError kinds which are retriable.
func NotAvailable(kind string) error {
	return errors.Wrapf(ErrNotAvailable, "%s", kind)
}

// Host wraps a transport/filesystem failure as an infrastructure error.
func Host(kind string, cause error) error {
	return errors.Wrapf(errors.WithSecondaryError(ErrHost, cause), "%s", kind)
}
