package jobs

import (
	"errors"
	"fmt"
)

// Typed failures reported by the lifecycle controller. Callers are expected
// to show the specific reason: the permission predicate has three
// independent clauses a user needs to tell apart.
var (
	// ErrForbidden: the actor fails the permission predicate. Checked
	// before any storage call.
	ErrForbidden = errors.New("actor may not perform this transition")

	// ErrInvalidTransition: the target status was reached but its
	// preconditions (completion evidence) were not satisfied.
	ErrInvalidTransition = errors.New("transition preconditions not satisfied")

	// ErrPermissionDenied: storage-level authorization rejected a write the
	// local check had approved. The caller should refresh its view of the
	// actor's role rather than retry blindly.
	ErrPermissionDenied = errors.New("storage rejected update: permission denied")

	// ErrConflict: the job's status changed between read and write.
	ErrConflict = errors.New("job status changed since it was read")

	// ErrNotFound: the job id does not resolve in storage.
	ErrNotFound = errors.New("job not found")
)

// UploadError reports a failed evidence upload, carrying the original
// filename for diagnostics.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %q failed: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
