package domain

import (
	"time"

	"brandpost/internal/domain/jsoncfg"
)

// ImageStatus is the client-facing projection of the image job state.
type ImageStatus string

const (
	ImageStatusNone       ImageStatus = "none"
	ImageStatusGenerating ImageStatus = "generating"
	ImageStatusReady      ImageStatus = "ready"
	ImageStatusFailed     ImageStatus = "failed"
)

// Settled reports whether a poller can stop watching this status.
func (s ImageStatus) Settled() bool {
	return s != ImageStatusGenerating
}

// GeneratedContent is one generated social post. Only the image fields are
// written by the pipeline.
type GeneratedContent struct {
	ID                  string
	AccountID           string
	RequestID           string
	Output              jsoncfg.Output
	ImageStatus         ImageStatus
	ImageURL            *string
	ImageModel          *string
	ImagePrompt         *string
	ImageError          *string
	PrimaryImageAssetID *string
	UpdatedAt           time.Time
}

// ContentRequest is the user request that produced the content.
type ContentRequest struct {
	ID          string
	ContentType jsoncfg.ContentType
	Direction   jsoncfg.Direction
}

// ContentBundle is everything the worker reads for one job.
type ContentBundle struct {
	Content GeneratedContent
	Request ContentRequest
	Brand   *BrandProfile
}

// Graphic returns the typed graphic variants, or false when the content does
// not need an image.
func (b *ContentBundle) Graphic() (*jsoncfg.GraphicDirection, *jsoncfg.GraphicOutput, bool) {
	if b == nil || b.Request.ContentType != jsoncfg.ContentTypeGraphic {
		return nil, nil, false
	}
	dir := b.Request.Direction.Graphic
	if dir == nil {
		dir = &jsoncfg.GraphicDirection{}
	}
	out := b.Content.Output.Graphic
	if out == nil {
		out = &jsoncfg.GraphicOutput{}
	}
	return dir, out, true
}

// RequireGraphic is Graphic with ErrUnsupportedContent for non-graphic items.
func (b *ContentBundle) RequireGraphic() (*jsoncfg.GraphicDirection, *jsoncfg.GraphicOutput, error) {
	dir, out, ok := b.Graphic()
	if !ok {
		return nil, nil, ErrUnsupportedContent
	}
	return dir, out, nil
}

// ContentImageState is the read model served to status pollers.
type ContentImageState struct {
	ContentID           string
	ImageStatus         ImageStatus
	ImageURL            *string
	ImageModel          *string
	ImageError          *string
	PrimaryImageAssetID *string
	LatestJob           *ImageJob
}
