package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

// GetCaptionSettings returns the project's caption settings, or nil when the
// project never configured captions (treated as disabled).
func (db *DB) GetCaptionSettings(ctx context.Context, projectID uuid.UUID) (*models.CaptionSettings, error) {
	query := `
		SELECT project_id, enabled, font_family, font_size, font_color,
			position, words_per_line, style, effect, updated_at
		FROM caption_settings
		WHERE project_id = $1
	`

	settings := &models.CaptionSettings{}
	err := db.QueryRowContext(ctx, query, projectID).Scan(
		&settings.ProjectID, &settings.Enabled, &settings.FontFamily,
		&settings.FontSize, &settings.FontColor, &settings.Position,
		&settings.WordsPerLine, &settings.Style, &settings.Effect,
		&settings.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get caption settings: %w", err)
	}

	return settings, nil
}

func (db *DB) UpsertCaptionSettings(ctx context.Context, settings *models.CaptionSettings) error {
	query := `
		INSERT INTO caption_settings (
			project_id, enabled, font_family, font_size, font_color,
			position, words_per_line, style, effect
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			font_family = EXCLUDED.font_family,
			font_size = EXCLUDED.font_size,
			font_color = EXCLUDED.font_color,
			position = EXCLUDED.position,
			words_per_line = EXCLUDED.words_per_line,
			style = EXCLUDED.style,
			effect = EXCLUDED.effect,
			updated_at = NOW()
		RETURNING updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		settings.ProjectID, settings.Enabled, settings.FontFamily,
		settings.FontSize, settings.FontColor, settings.Position,
		settings.WordsPerLine, settings.Style, settings.Effect,
	).Scan(&settings.UpdatedAt)
}
