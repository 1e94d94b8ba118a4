package genai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"brandpost/internal/infra"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash-image"
	maxErrorBody   = 2048
)

var (
	// ErrNoImage is returned when Gemini answers without any image part.
	ErrNoImage = errors.New("gemini returned no image")
	// ErrBlocked is returned when the prompt or candidate was blocked by safety filters.
	ErrBlocked = errors.New("gemini blocked the request")
)

// APIError carries a non-2xx Gemini response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the Gemini image model. Without an API key it renders a
// deterministic placeholder PNG so local runs exercise the whole pipeline.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// ImageRequest represents the information required to generate one image.
type ImageRequest struct {
	Prompt      string
	AspectRatio string
	RequestID   string
}

// ImageAsset is the normalized representation returned by the Gemini client.
type ImageAsset struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
	// Synthetic marks placeholder output rendered without calling the API.
	Synthetic bool
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; one without a global timeout is created and the caller's
// context bounds each call.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 120 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		}}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Synthetic reports whether the client renders placeholders instead of calling the API.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// GenerateImage returns the first image Gemini produces for the prompt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}
	return c.remoteGenerateImage(ctx, req)
}

func (c *Client) syntheticImage(req ImageRequest) *ImageAsset {
	width, height := normalizeAspect(req.AspectRatio)
	seed := deterministicSeed(req.RequestID, req.Prompt, c.model)
	asset := &ImageAsset{
		Data:      renderSyntheticImage(width, height, seed),
		MIMEType:  "image/png",
		Width:     width,
		Height:    height,
		Synthetic: true,
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Msg("genai: rendered synthetic image")

	return asset
}

func (c *Client) remoteGenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("gemini: prompt is required")
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		payload.GenerationConfig.ImageConfig = &geminiImageConfig{AspectRatio: aspect}
	}

	var response geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.model)), payload, &response); err != nil {
		return nil, err
	}
	if fb := response.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, strings.ToLower(fb.BlockReason))
	}

	var blockedReason string
	for _, candidate := range response.Candidates {
		if isBlockedFinish(candidate.FinishReason) {
			blockedReason = candidate.FinishReason
		}
		for _, part := range candidate.Content.Parts {
			asset, err := c.decodeInlineAsset(ctx, part)
			if err != nil {
				return nil, err
			}
			if len(asset.Data) == 0 {
				continue
			}
			mime := firstNonEmpty(asset.Format, http.DetectContentType(asset.Data))
			w, h := decodeImageDimensions(asset.Data)

			c.logger.Debug().
				Str("request_id", req.RequestID).
				Str("model", c.model).
				Int("bytes", len(asset.Data)).
				Msg("genai: generated remote image")

			return &ImageAsset{Data: asset.Data, MIMEType: mime, Width: w, Height: h}, nil
		}
	}
	if blockedReason != "" {
		return nil, fmt.Errorf("%w: %s", ErrBlocked, strings.ToLower(blockedReason))
	}
	return nil, ErrNoImage
}

func isBlockedFinish(reason string) bool {
	switch strings.ToUpper(reason) {
	case "SAFETY", "PROHIBITED_CONTENT", "IMAGE_SAFETY", "BLOCKLIST", "SPII":
		return true
	}
	return false
}

type inlineAsset struct {
	Data   []byte
	Format string
}

func (c *Client) invokeGemini(ctx context.Context, path string, payload any, out any) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func (c *Client) decodeInlineAsset(ctx context.Context, part geminiPart) (inlineAsset, error) {
	if part.InlineData != nil && part.InlineData.Data != "" {
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return inlineAsset{}, fmt.Errorf("decode inline data: %w", err)
		}
		return inlineAsset{Data: data, Format: part.InlineData.MimeType}, nil
	}

	if part.FileData != nil && part.FileData.FileURI != "" {
		data, mime, err := c.downloadFile(ctx, part.FileData.FileURI)
		if err != nil {
			return inlineAsset{}, err
		}
		return inlineAsset{Data: data, Format: firstNonEmpty(part.FileData.MimeType, mime)}, nil
	}

	return inlineAsset{}, nil
}

func (c *Client) downloadFile(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func renderSyntheticImage(width, height int, seed string) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &image.Uniform{base}, image.Point{}, draw.Src)

	stripeHeight := max(32, height/12)
	for y := 0; y < height; y += stripeHeight * 2 {
		stripe := image.Rect(0, y, width, min(height, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{accent}, image.Point{}, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.RGBA{R: parseHexByte(segment[0:2]), G: parseHexByte(segment[2:4]), B: parseHexByte(segment[4:6]), A: 255}
}

func parseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(part))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// normalizeAspect maps an aspect ratio to placeholder pixel dimensions.
func normalizeAspect(aspect string) (int, int) {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return 1280, 720
	case "9:16":
		return 720, 1280
	case "4:5":
		return 1024, 1280
	case "4:3":
		return 1024, 768
	case "3:4":
		return 768, 1024
	default:
		return 1024, 1024
	}
}
