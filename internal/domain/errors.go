package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNotClaimed         = errors.New("job not claimed")
	ErrActiveJob          = errors.New("active image job exists")
	ErrUnsupportedContent = errors.New("content does not take an image")
	ErrInvalidPayload     = errors.New("invalid content payload")
	ErrProviderFailure    = errors.New("provider failure")
)
