package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"brandpost/internal/domain"
	"brandpost/internal/domain/jsoncfg"
	"brandpost/internal/infra"
	"brandpost/internal/sqlinline"
)

// ContentRepositoryPG implements domain.ContentRepository.
type ContentRepositoryPG struct {
	sql  infra.SQLExecutor
	jobs domain.ImageJobRepository
}

func NewContentRepository(sql infra.SQLExecutor, jobs domain.ImageJobRepository) *ContentRepositoryPG {
	return &ContentRepositoryPG{sql: sql, jobs: jobs}
}

// GetBundle loads content, request, and brand, decoding the JSON blobs into
// their typed variants.
func (r *ContentRepositoryPG) GetBundle(ctx context.Context, contentID string) (*domain.ContentBundle, error) {
	var (
		b             domain.ContentBundle
		status        string
		output        []byte
		contentType   string
		direction     []byte
		brandAccount  *string
		brand         domain.BrandProfile
		contentUpdate time.Time
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectContentBundle, contentID).Scan(
		&b.Content.ID,
		&b.Content.AccountID,
		&b.Content.RequestID,
		&output,
		&status,
		&b.Content.ImageURL,
		&b.Content.ImageModel,
		&b.Content.ImagePrompt,
		&b.Content.ImageError,
		&b.Content.PrimaryImageAssetID,
		&contentUpdate,
		&contentType,
		&direction,
		&brandAccount,
		&brand.Name,
		&brand.Niche,
		&brand.Audience,
		&brand.Goals,
		&brand.Colors,
		&brand.Voice,
		&brand.LogoURL,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get content bundle: %w", err)
	}
	b.Content.ImageStatus = domain.ImageStatus(status)
	b.Content.UpdatedAt = contentUpdate
	b.Request.ID = b.Content.RequestID

	ct, err := jsoncfg.ParseContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	b.Request.ContentType = ct
	if b.Request.Direction, err = jsoncfg.DecodeDirection(ct, direction); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if b.Content.Output, err = jsoncfg.DecodeOutput(ct, output); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if brandAccount != nil {
		brand.AccountID = *brandAccount
		b.Brand = &brand
	}
	return &b, nil
}

// GetImageState returns the image projection plus the newest job, if any.
func (r *ContentRepositoryPG) GetImageState(ctx context.Context, contentID string) (*domain.ContentImageState, error) {
	var (
		state  domain.ContentImageState
		status string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QSelectContentImageState, contentID).Scan(
		&state.ContentID,
		&status,
		&state.ImageURL,
		&state.ImageModel,
		&state.ImageError,
		&state.PrimaryImageAssetID,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get content image state: %w", err)
	}
	state.ImageStatus = domain.ImageStatus(status)
	if r.jobs != nil {
		job, err := r.jobs.LatestForContent(ctx, contentID)
		switch {
		case err == nil:
			state.LatestJob = job
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
	}
	return &state, nil
}

var _ domain.ContentRepository = (*ContentRepositoryPG)(nil)
