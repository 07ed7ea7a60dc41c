package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (
			id, user_id, product_name, product_description,
			target_duration_seconds, resolution, aspect_ratio, output_format,
			music_volume, music_source, music_preset_slug, current_step
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		project.ID, project.UserID, project.ProductName, project.ProductDescription,
		project.TargetDurationSeconds, project.Resolution, project.AspectRatio,
		project.OutputFormat, project.MusicVolume, project.MusicSource,
		project.MusicPresetSlug, project.CurrentStep,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
}

func (db *DB) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `
		SELECT
			id, user_id, product_name, product_description,
			target_duration_seconds, resolution, aspect_ratio, output_format,
			music_volume, music_source, music_preset_slug, current_step,
			final_video_id, created_at, updated_at
		FROM projects
		WHERE id = $1
	`

	project := &models.Project{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.UserID, &project.ProductName, &project.ProductDescription,
		&project.TargetDurationSeconds, &project.Resolution, &project.AspectRatio,
		&project.OutputFormat, &project.MusicVolume, &project.MusicSource,
		&project.MusicPresetSlug, &project.CurrentStep,
		&project.FinalVideoID, &project.CreatedAt, &project.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// AdvanceProjectStep moves the project's wizard step forward and records the
// final video that completed the compile.
func (db *DB) AdvanceProjectStep(ctx context.Context, projectID uuid.UUID, step models.ProjectStep, finalVideoID uuid.UUID) error {
	query := `
		UPDATE projects
		SET current_step = $1, final_video_id = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := db.ExecContext(ctx, query, step, finalVideoID, projectID)
	return err
}
