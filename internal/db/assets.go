package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func (db *DB) CreateMediaAsset(ctx context.Context, asset *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (id, project_id, scene_id, kind, url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		asset.ID, asset.ProjectID, asset.SceneID,
		asset.Kind, asset.URL, asset.Metadata,
	).Scan(&asset.CreatedAt)
}

// GetProjectMediaAssets returns all of a project's media assets of the given
// kinds, newest first. Regenerations are kept; the resolver picks the winner.
func (db *DB) GetProjectMediaAssets(ctx context.Context, projectID uuid.UUID, kinds ...models.AssetKind) ([]models.MediaAsset, error) {
	query := `
		SELECT id, project_id, scene_id, kind, url, metadata, created_at
		FROM media_assets
		WHERE project_id = $1 AND kind = ANY($2)
		ORDER BY created_at DESC
	`

	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}

	rows, err := db.QueryContext(ctx, query, projectID, pq.Array(kindStrs))
	if err != nil {
		return nil, fmt.Errorf("failed to query media assets: %w", err)
	}
	defer rows.Close()

	var assets []models.MediaAsset
	for rows.Next() {
		var a models.MediaAsset
		if err := rows.Scan(
			&a.ID, &a.ProjectID, &a.SceneID,
			&a.Kind, &a.URL, &a.Metadata, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan media asset: %w", err)
		}
		assets = append(assets, a)
	}

	return assets, rows.Err()
}

func (db *DB) GetMediaAsset(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	query := `
		SELECT id, project_id, scene_id, kind, url, metadata, created_at
		FROM media_assets
		WHERE id = $1
	`

	asset := &models.MediaAsset{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID, &asset.ProjectID, &asset.SceneID,
		&asset.Kind, &asset.URL, &asset.Metadata, &asset.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}

	return asset, nil
}
