package domain

import "time"

// JobStatus enumerates image job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further processing happens in this state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Active reports whether the job still drives its content item.
func (s JobStatus) Active() bool {
	return s == JobStatusQueued || s == JobStatusRunning
}

// DefaultMaxAttempts is the attempt ceiling used when none is configured.
const DefaultMaxAttempts = 3

// ImageJob tracks the attempts to produce an image for one generated content item.
type ImageJob struct {
	ID                 string
	GeneratedContentID string
	Status             JobStatus
	Attempts           int
	LastError          *string
	RetryAfter         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Exhausted reports whether the job has used every allowed attempt.
func (j *ImageJob) Exhausted(maxAttempts int) bool {
	return j.Attempts >= maxAttempts
}

// SweepResult lists job ids touched by one recovery sweep.
type SweepResult struct {
	// Due are QUEUED jobs whose retry delay elapsed; they must be pushed again.
	Due []string
	// Orphaned are QUEUED jobs idle past the lease timeout, usually after a
	// lost push. Pushing them twice is harmless; the claim admits one worker.
	Orphaned []string
	// Requeued are stale RUNNING jobs returned to QUEUED.
	Requeued []string
	// Failed are stale RUNNING jobs that had no attempts left.
	Failed []string
}

// Pushable returns the ids that need a fresh queue entry.
func (r SweepResult) Pushable() []string {
	out := make([]string, 0, len(r.Due)+len(r.Orphaned)+len(r.Requeued))
	out = append(out, r.Due...)
	out = append(out, r.Orphaned...)
	return append(out, r.Requeued...)
}
