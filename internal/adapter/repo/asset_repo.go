package repo

import (
	"context"
	"fmt"

	"regen/internal/domain"
	"regen/internal/infra"
	"regen/internal/sqlinline"
)

// AssetRepoPG resolves replacement targets and records applied replacements.
type AssetRepoPG struct {
	runner infra.SQLExecutor
}

// NewAssetRepo creates an asset repository backed by the SQL runner.
func NewAssetRepo(runner infra.SQLExecutor) *AssetRepoPG {
	return &AssetRepoPG{runner: runner}
}

// Resolve maps a target reference to its storage key. A missing row is
// surfaced as domain.ErrNotFound so the apply stage can classify it.
func (r *AssetRepoPG) Resolve(ctx context.Context, targetRef string) (string, error) {
	var storageKey string
	row := r.runner.QueryRow(ctx, sqlinline.QAssetStorageKey, targetRef)
	if err := row.Scan(&storageKey); err != nil {
		if infra.IsNoRows(err) {
			return "", fmt.Errorf("asset %s: %w", targetRef, domain.ErrNotFound)
		}
		return "", err
	}
	return storageKey, nil
}

// MarkReplaced records which artifact now backs the asset.
func (r *AssetRepoPG) MarkReplaced(ctx context.Context, targetRef, artifactID string, size int64) error {
	tag, err := r.runner.Exec(ctx, sqlinline.QMarkAssetReplaced, targetRef, artifactID, size)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("asset %s: %w", targetRef, domain.ErrNotFound)
	}
	return nil
}
