package jobs

import (
	"fmt"
	"time"

	"github.com/fieldops/jobcard/internal/identity"
)

// Job is a unit of client work tracked through the status lifecycle.
type Job struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ClientName    string      `json:"client_name"`
	ClientContact string      `json:"client_contact"`
	ClientAddress string      `json:"client_address"`
	Status        Status      `json:"status"`
	AssignedTo    string      `json:"assigned_to,omitempty"`
	StartTime     *time.Time  `json:"start_time,omitempty"`
	Attachments   []string    `json:"attachments,omitempty"`
	Completion    *Completion `json:"completion,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	UpdatedBy     string      `json:"updated_by,omitempty"`
}

// Completion holds the evidence captured when a job enters the completed
// status. It travels as one block: a Job either has all of it or none of
// it, which keeps the evidence-iff-completed invariant structural.
type Completion struct {
	Feedback    string    `json:"feedback"`
	Attachments []string  `json:"attachments"`
	By          string    `json:"by"`
	At          time.Time `json:"at"`
}

// Evidence is the completion input supplied by the caller.
type Evidence struct {
	Notes       string   `json:"notes"`
	Attachments []string `json:"attachments"`
}

// String returns a short representation for logs.
func (j *Job) String() string {
	return fmt.Sprintf("Job{ID: %s, Title: %s, Status: %s}", j.ID, j.Title, j.Status)
}

// Clone returns a deep copy so transition side effects never mutate the
// caller's snapshot before the store write succeeds.
func (j *Job) Clone() *Job {
	c := *j
	c.Attachments = append([]string(nil), j.Attachments...)
	if j.StartTime != nil {
		t := *j.StartTime
		c.StartTime = &t
	}
	if j.Completion != nil {
		comp := *j.Completion
		comp.Attachments = append([]string(nil), j.Completion.Attachments...)
		c.Completion = &comp
	}
	return &c
}

// canTransition is the permission predicate for a status transition:
// admins may do anything, the assignee may move their own job, and any
// authenticated actor may accept a brand-new job by moving it straight
// into progress (which assigns it to them).
func (j *Job) canTransition(actor identity.Actor, target Status) bool {
	if actor.IsAdmin() {
		return true
	}
	if j.AssignedTo != "" && j.AssignedTo == actor.Email {
		return true
	}
	return j.Status == StatusNew && target == StatusInProgress
}

// canAct gates evidence uploads: admin, assignee, or a job nobody has
// claimed yet.
func (j *Job) canAct(actor identity.Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if j.AssignedTo != "" && j.AssignedTo == actor.Email {
		return true
	}
	return j.Status == StatusNew
}
