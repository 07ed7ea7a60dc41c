package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateFinalVideo(ctx context.Context, video *models.FinalVideo) error {
	query := `
		INSERT INTO final_videos (
			id, project_id, url, duration_seconds, resolution, credit_cost, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.ProjectID, video.URL, video.DurationSeconds,
		video.Resolution, video.CreditCost, video.Metadata,
	).Scan(&video.CreatedAt)
}

func (db *DB) GetFinalVideo(ctx context.Context, id uuid.UUID) (*models.FinalVideo, error) {
	query := `
		SELECT id, project_id, url, duration_seconds, resolution, credit_cost, metadata, created_at
		FROM final_videos
		WHERE id = $1
	`

	video := &models.FinalVideo{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.ProjectID, &video.URL, &video.DurationSeconds,
		&video.Resolution, &video.CreditCost, &video.Metadata, &video.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("final video %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get final video: %w", err)
	}

	return video, nil
}

// GetLatestFinalVideo returns the newest compiled video for a project, or nil
// when the project has never compiled.
func (db *DB) GetLatestFinalVideo(ctx context.Context, projectID uuid.UUID) (*models.FinalVideo, error) {
	query := `
		SELECT id, project_id, url, duration_seconds, resolution, credit_cost, metadata, created_at
		FROM final_videos
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	video := &models.FinalVideo{}
	err := db.QueryRowContext(ctx, query, projectID).Scan(
		&video.ID, &video.ProjectID, &video.URL, &video.DurationSeconds,
		&video.Resolution, &video.CreditCost, &video.Metadata, &video.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest final video: %w", err)
	}

	return video, nil
}
