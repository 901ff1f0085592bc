package jobs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldops/jobcard/internal/identity"
	"github.com/fieldops/jobcard/internal/logger"
	"github.com/fieldops/jobcard/internal/metrics"
	"github.com/fieldops/jobcard/internal/objectstore"
)

// Controller owns the job status lifecycle: it validates permissions and
// preconditions, applies transition side effects and persists them as one
// write. All checks run before the store is touched, so a rejected
// transition never leaves partial state behind.
type Controller struct {
	store     Store
	objects   objectstore.Store
	publisher TransitionPublisher
}

// NewController wires the controller to its collaborators. publisher may be
// nil when no event bus is configured.
func NewController(store Store, objects objectstore.Store, publisher TransitionPublisher) *Controller {
	return &Controller{
		store:     store,
		objects:   objects,
		publisher: publisher,
	}
}

// Get fetches a single job.
func (c *Controller) Get(ctx context.Context, id string) (*Job, error) {
	return c.store.GetJob(ctx, id)
}

// List fetches all jobs.
func (c *Controller) List(ctx context.Context) ([]*Job, error) {
	return c.store.ListJobs(ctx)
}

// Create persists a new job card with status new.
func (c *Controller) Create(ctx context.Context, job *Job) (*Job, error) {
	job.Status = StatusNew
	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	metrics.JobsCreatedTotal.Inc()
	logger.WithJobID(job.ID).Info().Str("title", job.Title).Msg("Job created")
	return job, nil
}

// RequestTransition moves a job to targetStatus on behalf of actor.
// targetStatus is a raw string and is normalized before any comparison.
// Evidence is required only when the target is completed, and every time it
// is re-entered. The status observed at read time is passed to the store as
// an expected-previous-status precondition, so two racing transitions
// cannot silently overwrite each other.
func (c *Controller) RequestTransition(ctx context.Context, jobID string, actor identity.Actor, targetStatus string, evidence *Evidence) (*Job, error) {
	start := time.Now()

	target, err := ParseStatus(targetStatus)
	if err != nil {
		metrics.TransitionsRejectedTotal.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}

	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.canTransition(actor, target) {
		metrics.TransitionsRejectedTotal.WithLabelValues("forbidden").Inc()
		logger.WithJobID(job.ID).Warn().
			Str("actor", actor.Email).
			Str("target", string(target)).
			Msg("Transition forbidden")
		return nil, fmt.Errorf("%w: %s is neither admin nor assignee of job %s", ErrForbidden, actor.Email, job.ID)
	}

	if target == StatusCompleted {
		if err := validateEvidence(evidence); err != nil {
			metrics.TransitionsRejectedTotal.WithLabelValues("missing_evidence").Inc()
			return nil, err
		}
	}

	now := time.Now().UTC()
	updated := job.Clone()
	updated.Status = target
	updated.UpdatedBy = actor.Email
	updated.UpdatedAt = now

	if target == StatusInProgress {
		// Accepting a brand-new job assigns it to the accepting actor.
		if job.Status == StatusNew {
			updated.AssignedTo = actor.Email
		}
		if job.StartTime == nil {
			t := now
			updated.StartTime = &t
		}
	}

	if target == StatusCompleted {
		updated.Completion = &Completion{
			Feedback:    strings.TrimSpace(evidence.Notes),
			Attachments: append([]string(nil), evidence.Attachments...),
			By:          actor.Email,
			At:          now,
		}
	} else {
		// Leaving completed (an admin correction) drops the completion
		// block; re-entering demands fresh evidence.
		updated.Completion = nil
	}

	persisted, err := c.store.UpdateJob(ctx, updated, job.Status)
	if err != nil {
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(target)).Inc()
	if target == StatusCompleted {
		metrics.CompletionsTotal.Inc()
	}
	metrics.TransitionDuration.Observe(time.Since(start).Seconds())

	logger.WithJobID(job.ID).Info().
		Str("from", string(job.Status)).
		Str("to", string(target)).
		Str("actor", actor.Email).
		Msg("Job transitioned")

	c.publish(ctx, TransitionEvent{
		JobID: job.ID,
		From:  job.Status,
		To:    target,
		Actor: actor.Email,
		At:    now,
	})

	return persisted, nil
}

// Assign sets the responsible party for a job directly, an administrator
// capability usable at any point in the lifecycle. A brand-new job moves to
// assigned in the same write; any other status is left alone.
func (c *Controller) Assign(ctx context.Context, jobID string, actor identity.Actor, assignee string) (*Job, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an administrator may assign jobs directly", ErrForbidden)
	}
	assignee = strings.ToLower(strings.TrimSpace(assignee))
	if assignee == "" {
		return nil, fmt.Errorf("assignee must not be empty")
	}

	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updated := job.Clone()
	updated.AssignedTo = assignee
	updated.UpdatedBy = actor.Email
	updated.UpdatedAt = now
	if job.Status == StatusNew {
		updated.Status = StatusAssigned
	}

	persisted, err := c.store.UpdateJob(ctx, updated, job.Status)
	if err != nil {
		return nil, err
	}

	logger.WithJobID(job.ID).Info().
		Str("assignee", assignee).
		Str("actor", actor.Email).
		Msg("Job assigned")

	if updated.Status != job.Status {
		metrics.TransitionsTotal.WithLabelValues(string(updated.Status)).Inc()
		c.publish(ctx, TransitionEvent{
			JobID: job.ID,
			From:  job.Status,
			To:    updated.Status,
			Actor: actor.Email,
			At:    now,
		})
	}

	return persisted, nil
}

// AttachEvidenceFile uploads one evidence file for a job and returns its
// URL. The caller appends the URL to the pending evidence list before
// requesting the completed transition.
func (c *Controller) AttachEvidenceFile(ctx context.Context, jobID string, actor identity.Actor, filename string, r io.Reader) (string, error) {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return "", err
	}

	if !job.canAct(actor) {
		return "", fmt.Errorf("%w: %s may not attach evidence to job %s", ErrForbidden, actor.Email, job.ID)
	}

	return c.uploadEvidence(ctx, job, filename, r)
}

// EvidenceFile is one completion artifact pending upload.
type EvidenceFile struct {
	Name   string
	Reader io.Reader
}

// Complete uploads all evidence files in parallel and, once every upload
// has succeeded, requests the completed transition as a single write. The
// first upload failure cancels the remaining uploads and nothing is
// persisted.
func (c *Controller) Complete(ctx context.Context, jobID string, actor identity.Actor, notes string, files []EvidenceFile) (*Job, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: completion notes must not be empty", ErrInvalidTransition)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: completion requires at least one evidence file", ErrInvalidTransition)
	}

	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.canAct(actor) {
		return nil, fmt.Errorf("%w: %s may not attach evidence to job %s", ErrForbidden, actor.Email, job.ID)
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := c.uploadEvidence(gctx, job, f.Name, f.Reader)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return c.RequestTransition(ctx, jobID, actor, string(StatusCompleted), &Evidence{
		Notes:       notes,
		Attachments: urls,
	})
}

func (c *Controller) uploadEvidence(ctx context.Context, job *Job, filename string, r io.Reader) (string, error) {
	path := fmt.Sprintf("jobs/%s/%s", job.ID, objectstore.SanitizeFilename(filename))

	url, err := c.objects.Put(ctx, path, r)
	if err != nil {
		metrics.EvidenceUploadFailuresTotal.Inc()
		logger.WithJobID(job.ID).Error().Err(err).Str("filename", filename).Msg("Evidence upload failed")
		return "", &UploadError{Filename: filename, Err: err}
	}

	metrics.EvidenceUploadsTotal.Inc()
	return url, nil
}

func (c *Controller) publish(ctx context.Context, ev TransitionEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishTransition(ctx, ev); err != nil {
		logger.WithJobID(ev.JobID).Warn().Err(err).Msg("Failed to publish transition event")
	}
}

func validateEvidence(evidence *Evidence) error {
	if evidence == nil || strings.TrimSpace(evidence.Notes) == "" {
		return fmt.Errorf("%w: completion notes must not be empty", ErrInvalidTransition)
	}
	if len(evidence.Attachments) == 0 {
		return fmt.Errorf("%w: completion requires at least one evidence attachment", ErrInvalidTransition)
	}
	return nil
}
