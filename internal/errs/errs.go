// Package errs defines the typed error-kind taxonomy shared by every pipeline
// stage. A stage tool always returns a plain Go error; when that error needs
// to influence retry or job-failure policy it wraps a *Error built here.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a pipeline failure. The worker runtime and
// the reaper record it as a failed job's error_kind.
type Kind string

const (
	KindLocatorInvalid   Kind = "locator-invalid"
	KindAuthFailed       Kind = "auth-failed"
	KindRepoNotFound     Kind = "repo-not-found"
	KindRateLimited      Kind = "rate-limited"
	KindTimeout          Kind = "timeout"
	KindNetwork          Kind = "network"
	KindScanLimitHit     Kind = "scan-limit-hit"
	KindModelRefused     Kind = "model-refused"
	KindModelUnavailable Kind = "model-unavailable"
	KindEmptyOutput      Kind = "empty-output"
	KindPublishConflict  Kind = "publish-conflict"
	KindStorageUnavail   Kind = "storage-unavailable"
	KindCanceled         Kind = "canceled"
	KindInternal         Kind = "internal"
)

// retryable lists the kinds classed as transient. The worker runtime does not
// consult it: any pipeline error marks the job failed.
var retryable = map[Kind]bool{
	KindRateLimited:      true,
	KindTimeout:          true,
	KindNetwork:          true,
	KindModelUnavailable: true,
	KindStorageUnavail:   true,
}

// Retryable reports whether k is one of the transient kinds in retryable.
func Retryable(k Kind) bool {
	return retryable[k]
}

// Error is the typed error every stage tool should return in place of a bare
// error when the failure reason matters downstream.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{kind: kind, msg: msg, err: err}
}

func (e *Error) Kind() string { return string(e.kind) }

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// KindOf extracts the Kind of err if it (or something it wraps) carries one,
// defaulting to KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsRetryable reports whether err's kind is one of the transient kinds.
func IsRetryable(err error) bool {
	return Retryable(KindOf(err))
}
