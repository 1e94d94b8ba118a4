// Package memory is an in-process implementation of the job and content
// repositories with the same guards as the Postgres queries. It backs tests and
// local experiments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"brandpost/internal/domain"
)

const (
	leaseExpiredMessage   = "worker lease expired"
	leaseExhaustedMessage = "Image generation timed out. Please try again."
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	jobs     map[string]*domain.ImageJob
	order    []string
	contents map[string]*domain.ContentBundle
	assets   []domain.MediaAsset
	attempts map[string][]int

	// FailOn injects an error into the named method ("Claim", "Complete", ...).
	FailOn map[string]error
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		jobs:     map[string]*domain.ImageJob{},
		contents: map[string]*domain.ContentBundle{},
		attempts: map[string][]int{},
		FailOn:   map[string]error{},
	}
}

// SeedContent stores a content bundle as-is.
func (s *Store) SeedContent(b domain.ContentBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := b
	s.contents[b.Content.ID] = &cp
}

// SeedJob stores a job as-is.
func (s *Store) SeedJob(j domain.ImageJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := j
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	if _, ok := s.jobs[j.ID]; !ok {
		s.order = append(s.order, j.ID)
	}
	s.jobs[j.ID] = &cp
	s.attempts[j.ID] = append(s.attempts[j.ID], cp.Attempts)
}

// Job returns a copy of the stored job.
func (s *Store) Job(id string) (domain.ImageJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return domain.ImageJob{}, false
	}
	return *j, true
}

// Content returns a copy of the stored content record.
func (s *Store) Content(id string) (domain.GeneratedContent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.contents[id]
	if !ok {
		return domain.GeneratedContent{}, false
	}
	return b.Content, true
}

func (s *Store) Assets() []domain.MediaAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MediaAsset(nil), s.assets...)
}

// AttemptLog lists every attempts value the job has been written with.
func (s *Store) AttemptLog(id string) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.attempts[id]...)
}

func (s *Store) injected(method string) error {
	if err, ok := s.FailOn[method]; ok {
		return err
	}
	return nil
}

func (s *Store) touch(j *domain.ImageJob) {
	j.UpdatedAt = s.now()
	s.attempts[j.ID] = append(s.attempts[j.ID], j.Attempts)
}

func (s *Store) GetByID(ctx context.Context, jobID string) (*domain.ImageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetByID"); err != nil {
		return nil, err
	}
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) LatestForContent(ctx context.Context, contentID string) (*domain.ImageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if j := s.jobs[s.order[i]]; j.GeneratedContentID == contentID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) CreateForContent(ctx context.Context, jobID, contentID string) (*domain.ImageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("CreateForContent"); err != nil {
		return nil, err
	}
	for _, j := range s.jobs {
		if j.GeneratedContentID == contentID && j.Status.Active() {
			return nil, domain.ErrActiveJob
		}
	}
	now := s.now()
	j := &domain.ImageJob{
		ID:                 jobID,
		GeneratedContentID: contentID,
		Status:             domain.JobStatusQueued,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	s.jobs[jobID] = j
	s.order = append(s.order, jobID)
	s.attempts[jobID] = append(s.attempts[jobID], 0)
	if b, ok := s.contents[contentID]; ok {
		b.Content.ImageStatus = domain.ImageStatusGenerating
		b.Content.ImageError = nil
	}
	cp := *j
	return &cp, nil
}

func (s *Store) Claim(ctx context.Context, jobID string, maxAttempts int, now time.Time) (*domain.ImageJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Claim"); err != nil {
		return nil, err
	}
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusQueued || j.Attempts >= maxAttempts {
		return nil, domain.ErrNotClaimed
	}
	if j.RetryAfter != nil && j.RetryAfter.After(now) {
		return nil, domain.ErrNotClaimed
	}
	j.Status = domain.JobStatusRunning
	j.Attempts++
	j.RetryAfter = nil
	s.touch(j)
	if b, ok := s.contents[j.GeneratedContentID]; ok {
		b.Content.ImageStatus = domain.ImageStatusGenerating
	}
	cp := *j
	return &cp, nil
}

func (s *Store) running(jobID string) (*domain.ImageJob, error) {
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusRunning {
		return nil, domain.ErrNotClaimed
	}
	return j, nil
}

func (s *Store) Complete(ctx context.Context, done domain.CompletedImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Complete"); err != nil {
		return err
	}
	j, err := s.running(done.JobID)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusSucceeded
	j.LastError = nil
	j.RetryAfter = nil
	s.touch(j)

	asset := done.Asset
	asset.CreatedAt = s.now()
	s.assets = append(s.assets, asset)

	if b, ok := s.contents[done.ContentID]; ok {
		url, model, prompt, assetID := asset.URL, done.Model, done.Prompt, asset.ID
		b.Content.ImageStatus = domain.ImageStatusReady
		b.Content.ImageURL = &url
		b.Content.ImageModel = &model
		b.Content.ImagePrompt = &prompt
		b.Content.ImageError = nil
		b.Content.PrimaryImageAssetID = &assetID
	}
	return nil
}

func (s *Store) Requeue(ctx context.Context, jobID, contentID, lastError string, retryAfter *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Requeue"); err != nil {
		return err
	}
	j, err := s.running(jobID)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusQueued
	j.LastError = &lastError
	if retryAfter != nil {
		at := *retryAfter
		j.RetryAfter = &at
	} else {
		j.RetryAfter = nil
	}
	s.touch(j)
	if b, ok := s.contents[contentID]; ok {
		b.Content.ImageStatus = domain.ImageStatusGenerating
	}
	return nil
}

func (s *Store) Fail(ctx context.Context, jobID, contentID, lastError, imageError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Fail"); err != nil {
		return err
	}
	j, err := s.running(jobID)
	if err != nil {
		return err
	}
	j.Status = domain.JobStatusFailed
	j.LastError = &lastError
	j.RetryAfter = nil
	s.touch(j)
	s.failContent(contentID, imageError)
	return nil
}

func (s *Store) failContent(contentID, imageError string) {
	if b, ok := s.contents[contentID]; ok {
		msg := imageError
		b.Content.ImageStatus = domain.ImageStatusFailed
		b.Content.ImageError = &msg
	}
}

func (s *Store) Sweep(ctx context.Context, now, leaseCutoff time.Time, maxAttempts int, limit int) (domain.SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res domain.SweepResult
	if err := s.injected("Sweep"); err != nil {
		return res, err
	}
	for _, id := range s.sortedIDs() {
		j := s.jobs[id]
		switch {
		case j.Status == domain.JobStatusQueued && j.RetryAfter != nil && !j.RetryAfter.After(now):
			if len(res.Due) >= limit {
				continue
			}
			j.RetryAfter = nil
			s.touch(j)
			res.Due = append(res.Due, id)
		case j.Status == domain.JobStatusQueued && j.RetryAfter == nil && j.UpdatedAt.Before(leaseCutoff):
			if len(res.Orphaned) >= limit {
				continue
			}
			j.UpdatedAt = s.now()
			res.Orphaned = append(res.Orphaned, id)
		case j.Status == domain.JobStatusRunning && j.UpdatedAt.Before(leaseCutoff) && j.Attempts < maxAttempts:
			if len(res.Requeued) >= limit {
				continue
			}
			msg := leaseExpiredMessage
			j.Status = domain.JobStatusQueued
			j.LastError = &msg
			s.touch(j)
			res.Requeued = append(res.Requeued, id)
		case j.Status == domain.JobStatusRunning && j.UpdatedAt.Before(leaseCutoff):
			if len(res.Failed) >= limit {
				continue
			}
			msg := leaseExpiredMessage
			j.Status = domain.JobStatusFailed
			j.LastError = &msg
			j.RetryAfter = nil
			s.touch(j)
			s.failContent(j.GeneratedContentID, leaseExhaustedMessage)
			res.Failed = append(res.Failed, id)
		}
	}
	return res, nil
}

func (s *Store) sortedIDs() []string {
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) GetBundle(ctx context.Context, contentID string) (*domain.ContentBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("GetBundle"); err != nil {
		return nil, err
	}
	b, ok := s.contents[contentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) GetImageState(ctx context.Context, contentID string) (*domain.ContentImageState, error) {
	s.mu.Lock()
	b, ok := s.contents[contentID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	c := b.Content
	s.mu.Unlock()

	state := &domain.ContentImageState{
		ContentID:           c.ID,
		ImageStatus:         c.ImageStatus,
		ImageURL:            c.ImageURL,
		ImageModel:          c.ImageModel,
		ImageError:          c.ImageError,
		PrimaryImageAssetID: c.PrimaryImageAssetID,
	}
	if job, err := s.LatestForContent(ctx, contentID); err == nil {
		state.LatestJob = job
	}
	return state, nil
}

var (
	_ domain.ImageJobRepository = (*Store)(nil)
	_ domain.ContentRepository  = (*Store)(nil)
)
