package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"brandpost/internal/infra"
	"brandpost/internal/sqlinline"
)

const (
	ProviderGemini = "gemini"
)

// Store reads provider API keys kept in the integration_tokens table. It is
// the fallback used by the worker when GEMINI_API_KEY is not set.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// Token returns the trimmed token for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// ResolveGeminiAPIKey prefers the configured key and falls back to the store.
func ResolveGeminiAPIKey(ctx context.Context, configured string, store *Store) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if store == nil {
		return "", nil
	}
	return store.GeminiAPIKey(ctx)
}
