package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fieldops/jobcard/internal/jobs"
)

// pgInsufficientPrivilege is the Postgres error code raised when row-level
// or role-based authorization rejects a statement the client-side
// permission check had approved.
const pgInsufficientPrivilege = "42501"

// Store handles database operations for job cards.
type Store struct {
	db *sql.DB
}

// NewStore creates a new database store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `
	id, title, description, client_name, client_contact, client_address,
	status, assigned_to, start_time, attachments,
	feedback, feedback_attachments, completed_by, completed_at,
	created_at, updated_at, updated_by
`

// CreateJob inserts a new job. created_at and updated_at are assigned by
// the server and read back into the entity.
func (s *Store) CreateJob(ctx context.Context, job *jobs.Job) error {
	query := `
		INSERT INTO jobs (
			id, title, description, client_name, client_contact, client_address,
			status, assigned_to, start_time, attachments, updated_by,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	// A nil slice would encode as NULL and trip the NOT NULL constraint.
	attachments := job.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	err := s.db.QueryRowContext(ctx, query,
		job.ID, job.Title, job.Description,
		job.ClientName, job.ClientContact, job.ClientAddress,
		string(job.Status), job.AssignedTo, job.StartTime,
		pq.Array(attachments), job.UpdatedBy,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return translateErr(err)
	}
	return nil
}

// GetJob retrieves a job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs retrieves all jobs, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]*jobs.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var result []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

// UpdateJob writes the lifecycle-owned fields in one statement, conditional
// on the row still holding the expected status. updated_at is
// server-assigned.
func (s *Store) UpdateJob(ctx context.Context, job *jobs.Job, expected jobs.Status) (*jobs.Job, error) {
	query := `
		UPDATE jobs
		SET status = $2,
		    assigned_to = $3,
		    start_time = $4,
		    feedback = $5,
		    feedback_attachments = $6,
		    completed_by = $7,
		    completed_at = $8,
		    updated_by = $9,
		    updated_at = NOW()
		WHERE id = $1 AND status = $10
		RETURNING updated_at
	`

	var (
		feedback            sql.NullString
		feedbackAttachments interface{}
		completedBy         sql.NullString
		completedAt         sql.NullTime
	)
	if c := job.Completion; c != nil {
		feedback = sql.NullString{String: c.Feedback, Valid: true}
		feedbackAttachments = pq.Array(c.Attachments)
		completedBy = sql.NullString{String: c.By, Valid: true}
		completedAt = sql.NullTime{Time: c.At, Valid: true}
	}

	updated := job.Clone()
	err := s.db.QueryRowContext(ctx, query,
		job.ID, string(job.Status), job.AssignedTo, job.StartTime,
		feedback, feedbackAttachments, completedBy, completedAt,
		job.UpdatedBy, string(expected),
	).Scan(&updated.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a vanished row from a lost race on status.
		var exists bool
		if checkErr := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, job.ID).Scan(&exists); checkErr != nil {
			return nil, translateErr(checkErr)
		}
		if exists {
			return nil, fmt.Errorf("%w: job %s is no longer %q", jobs.ErrConflict, job.ID, expected)
		}
		return nil, fmt.Errorf("%w: %s", jobs.ErrNotFound, job.ID)
	}
	if err != nil {
		return nil, translateErr(err)
	}
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*jobs.Job, error) {
	var (
		job                 jobs.Job
		rawStatus           string
		assignedTo          sql.NullString
		startTime           sql.NullTime
		attachments         pq.StringArray
		feedback            sql.NullString
		feedbackAttachments pq.StringArray
		completedBy         sql.NullString
		completedAt         sql.NullTime
		updatedBy           sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.Title, &job.Description,
		&job.ClientName, &job.ClientContact, &job.ClientAddress,
		&rawStatus, &assignedTo, &startTime, &attachments,
		&feedback, &feedbackAttachments, &completedBy, &completedAt,
		&job.CreatedAt, &job.UpdatedAt, &updatedBy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, translateErr(err)
	}

	// Older records may carry a different casing or hyphenation; normalize
	// on read rather than reject.
	status, err := jobs.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", job.ID, err)
	}
	job.Status = status

	job.AssignedTo = assignedTo.String
	job.UpdatedBy = updatedBy.String
	if startTime.Valid {
		t := startTime.Time
		job.StartTime = &t
	}
	job.Attachments = []string(attachments)

	switch {
	case feedback.Valid && completedBy.Valid && completedAt.Valid:
		job.Completion = &jobs.Completion{
			Feedback:    feedback.String,
			Attachments: []string(feedbackAttachments),
			By:          completedBy.String,
			At:          completedAt.Time,
		}
	case feedback.Valid || completedBy.Valid || completedAt.Valid || len(feedbackAttachments) > 0:
		return nil, fmt.Errorf("job %s has a partial completion record", job.ID)
	}

	return &job, nil
}

func translateErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgInsufficientPrivilege {
		return fmt.Errorf("%w: %v", jobs.ErrPermissionDenied, err)
	}
	return err
}
