// Package credentials stores integration tokens in the database so the
// generation service key can be rotated without redeploying.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"regen/internal/infra"
	"regen/internal/sqlinline"
)

const (
	// ProviderGenerate is the remote generation service credential slot.
	ProviderGenerate = "generate"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GenerateAPIKey returns the stored generation service key, or empty when no
// key has been configured.
func (s *Store) GenerateAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGenerate)
}

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

func (s *Store) SetGenerateAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("generation api key is required")
	}
	return s.upsert(ctx, ProviderGenerate, key, nil)
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
