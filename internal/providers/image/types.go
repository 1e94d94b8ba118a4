package image

import (
	"context"

	"brandpost/internal/domain/jsoncfg"
)

// GenerateRequest describes one image to produce.
type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	RequestID   string
	// References are collected for the prompt builder only. Providers receive
	// them for logging and must not forward pixel data.
	References []jsoncfg.Reference
}

// Result is the raw image returned by a provider.
type Result struct {
	Data     []byte
	MIMEType string
	Model    string
	Width    int
	Height   int
}

// Generator is the contract implemented by all image providers. Every error is
// treated by the worker as a retryable failure.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Result, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (*Result, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	return f(ctx, req)
}
