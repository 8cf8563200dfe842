package entity

import (
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"

	// StatusNotFound is only ever synthesised for queries, never stored.
	StatusNotFound JobStatus = "not_found"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition enforces pending -> processing -> (completed | failed).
func (s JobStatus) CanTransition(to JobStatus) bool {
	if s == to {
		return !s.Terminal()
	}
	switch s {
	case StatusPending:
		return to == StatusProcessing || to == StatusFailed
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

type Job struct {
	ID              string    `json:"job_id"`
	Keyword         string    `json:"keyword,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Status          JobStatus `json:"status"`
	Progress        *string   `json:"progress"`
	VideoURL        *string   `json:"video_url"`
	Error           *string   `json:"error"`
	ErrorKind       *string   `json:"error_kind,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// JobPatch is a partial update: only non-nil fields are written.
type JobPatch struct {
	Status    *JobStatus
	Progress  *string
	VideoURL  *string
	Error     *string
	ErrorKind *string
}

// Apply merges p into j and bumps UpdatedAt.
func (p JobPatch) Apply(j *Job, now time.Time) {
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Progress != nil {
		j.Progress = ptr(*p.Progress)
	}
	if p.VideoURL != nil {
		j.VideoURL = ptr(*p.VideoURL)
	}
	if p.Error != nil {
		j.Error = ptr(*p.Error)
	}
	if p.ErrorKind != nil {
		j.ErrorKind = ptr(*p.ErrorKind)
	}
	j.UpdatedAt = now
}

// Clone returns a deep copy so readers never share pointers with the store.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Progress = clonePtr(j.Progress)
	c.VideoURL = clonePtr(j.VideoURL)
	c.Error = clonePtr(j.Error)
	c.ErrorKind = clonePtr(j.ErrorKind)
	return &c
}

func ptr[T any](v T) *T { return &v }

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return ptr(*s)
}
