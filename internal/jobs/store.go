package jobs

import (
	"context"
	"time"
)

// Store is the document-store collaborator, treated as a versioned
// key-value store keyed by job id with server-assigned timestamps.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]*Job, error)

	// UpdateJob persists the lifecycle-owned fields of job in a single
	// atomic write, conditional on the job still being in the expected
	// status. It returns the persisted entity with refreshed timestamps,
	// ErrConflict when the precondition failed, ErrNotFound when the id
	// does not resolve, or ErrPermissionDenied when server-side
	// authorization rejected the write.
	UpdateJob(ctx context.Context, job *Job, expected Status) (*Job, error)
}

// TransitionEvent describes a successful status transition for downstream
// consumers (event bus, dashboards).
type TransitionEvent struct {
	JobID string    `json:"job_id"`
	From  Status    `json:"from"`
	To    Status    `json:"to"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

// TransitionPublisher pushes transition events to an external bus. The
// controller treats it as optional and never fails a transition over a
// publish error.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, ev TransitionEvent) error
}
