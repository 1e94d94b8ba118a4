package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"brandpost/internal/domain"
)

type createJobResponse struct {
	JobID       string             `json:"job_id"`
	Status      domain.JobStatus   `json:"status"`
	ImageStatus domain.ImageStatus `json:"image_status"`
}

type jobView struct {
	ID        string           `json:"id"`
	Status    domain.JobStatus `json:"status"`
	Attempts  int              `json:"attempts"`
	LastError *string          `json:"last_error"`
}

type imageStateResponse struct {
	ContentID           string             `json:"content_id"`
	ImageStatus         domain.ImageStatus `json:"image_status"`
	ImageURL            *string            `json:"image_url"`
	ImageModel          *string            `json:"image_model"`
	ImageError          *string            `json:"image_error"`
	PrimaryImageAssetID *string            `json:"primary_image_asset_id"`
	Job                 *jobView           `json:"job"`
}

func contentIDParam(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "content_id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// CreateImageJob starts a fresh job for a graphic content item. It serves first
// generation, regeneration, and manual retry after a failure alike.
func (a *App) CreateImageJob(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDParam(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "content_id must be a UUID")
		return
	}
	ctx := r.Context()
	log := a.Logger.With().Str("content_id", contentID).Logger()

	bundle, err := a.Contents.GetBundle(ctx, contentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "content not found")
		return
	case errors.Is(err, domain.ErrInvalidPayload):
		a.error(w, http.StatusUnprocessableEntity, "invalid_content", "content payload cannot be read")
		return
	case err != nil:
		log.Error().Err(err).Msg("http: load content failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load content")
		return
	}
	if _, _, err := bundle.RequireGraphic(); errors.Is(err, domain.ErrUnsupportedContent) {
		a.error(w, http.StatusNotFound, "not_found", "content has no image")
		return
	}

	job, err := a.Jobs.CreateForContent(ctx, a.NewID(), contentID)
	if errors.Is(err, domain.ErrActiveJob) {
		a.error(w, http.StatusConflict, "job_active", "an image job is already running for this content")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("http: create image job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create image job")
		return
	}
	log = log.With().Str("job_id", job.ID).Logger()

	// Inline processing must finish even if the client goes away, or the job
	// would be left RUNNING with nothing to recover it.
	if err := a.Queue.Enqueue(context.WithoutCancel(ctx), job.ID); err != nil {
		log.Error().Err(err).Bool("durable", a.Queue.Durable()).Msg("http: enqueue failed")
	}

	resp := createJobResponse{JobID: job.ID, Status: job.Status, ImageStatus: domain.ImageStatusGenerating}
	if !a.Queue.Durable() {
		if state, err := a.Contents.GetImageState(ctx, contentID); err == nil {
			resp.ImageStatus = state.ImageStatus
			if state.LatestJob != nil && state.LatestJob.ID == job.ID {
				resp.Status = state.LatestJob.Status
			}
		}
	}
	a.json(w, http.StatusAccepted, resp)
}

func (a *App) ImageState(w http.ResponseWriter, r *http.Request) {
	contentID, ok := contentIDParam(r)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "content_id must be a UUID")
		return
	}
	state, err := a.Contents.GetImageState(r.Context(), contentID)
	if errors.Is(err, domain.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "content not found")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Str("content_id", contentID).Msg("http: load image state failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load image state")
		return
	}

	resp := imageStateResponse{
		ContentID:           state.ContentID,
		ImageStatus:         state.ImageStatus,
		ImageURL:            state.ImageURL,
		ImageModel:          state.ImageModel,
		ImageError:          state.ImageError,
		PrimaryImageAssetID: state.PrimaryImageAssetID,
	}
	if j := state.LatestJob; j != nil {
		resp.Job = &jobView{ID: j.ID, Status: j.Status, Attempts: j.Attempts, LastError: j.LastError}
	}
	a.json(w, http.StatusOK, resp)
}
