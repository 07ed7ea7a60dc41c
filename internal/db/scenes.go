package db

import (
	"context"
	"fmt"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

func (db *DB) CreateScene(ctx context.Context, scene *models.Scene) error {
	query := `
		INSERT INTO scenes (id, project_id, scene_number, script_text, visual_description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		scene.ID, scene.ProjectID, scene.SceneNumber,
		scene.ScriptText, scene.VisualDescription,
	).Scan(&scene.CreatedAt)
}

// GetProjectScenes returns a project's scenes ordered by scene number.
func (db *DB) GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	query := `
		SELECT id, project_id, scene_number, script_text, visual_description, created_at
		FROM scenes
		WHERE project_id = $1
		ORDER BY scene_number
	`

	rows, err := db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes: %w", err)
	}
	defer rows.Close()

	var scenes []models.Scene
	for rows.Next() {
		var s models.Scene
		if err := rows.Scan(
			&s.ID, &s.ProjectID, &s.SceneNumber,
			&s.ScriptText, &s.VisualDescription, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scene: %w", err)
		}
		scenes = append(scenes, s)
	}

	return scenes, rows.Err()
}
