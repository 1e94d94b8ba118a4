package image

import (
	"context"
	"fmt"

	"brandpost/internal/domain"
	"brandpost/internal/providers/genai"
)

const syntheticModelPrefix = "synthetic/"

type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(client *genai.Client) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		RequestID:   req.RequestID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProviderFailure, err)
	}
	if asset == nil || len(asset.Data) == 0 {
		return nil, fmt.Errorf("%w: gemini: empty image", domain.ErrProviderFailure)
	}
	model := g.client.Model()
	if asset.Synthetic {
		model = syntheticModelPrefix + model
	}
	return &Result{
		Data:     asset.Data,
		MIMEType: asset.MIMEType,
		Model:    model,
		Width:    asset.Width,
		Height:   asset.Height,
	}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
