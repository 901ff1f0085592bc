package jobs

import (
	"fmt"
	"strings"
)

// Status is the canonical lifecycle state of a job. Only the four constants
// below are representable after parsing; normalization happens once at the
// boundaries (request decoding and storage reads), never in comparisons.
type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in progress"
	StatusCompleted  Status = "completed"
)

// NormalizeStatus lower-cases the input, treats hyphens and underscores as
// spaces and collapses runs of whitespace, so "In-Progress", "IN PROGRESS"
// and "in_progress" all reduce to "in progress". It is idempotent.
func NormalizeStatus(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ParseStatus normalizes s and maps it onto the canonical status set.
// Persisted records written with a different casing or separator are
// accepted; anything outside the vocabulary is an error.
func ParseStatus(s string) (Status, error) {
	switch normalized := NormalizeStatus(s); normalized {
	case string(StatusNew):
		return StatusNew, nil
	case string(StatusAssigned):
		return StatusAssigned, nil
	case string(StatusInProgress):
		return StatusInProgress, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}
