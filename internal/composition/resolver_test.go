package composition

import (
	"testing"
	"time"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

func makeScene(num int) models.Scene {
	return models.Scene{
		ID:          uuid.New(),
		SceneNumber: num,
		ScriptText:  "scene script",
	}
}

func assetForScene(sceneID uuid.UUID, url string, createdAt time.Time) models.MediaAsset {
	return models.MediaAsset{
		ID:        uuid.New(),
		SceneID:   &sceneID,
		Kind:      models.AssetKindImage,
		URL:       url,
		CreatedAt: createdAt,
	}
}

func assetWithHint(hint int, url string, createdAt time.Time) models.MediaAsset {
	return models.MediaAsset{
		ID:        uuid.New(),
		Kind:      models.AssetKindImage,
		URL:       url,
		Metadata:  models.JSONB{"scene_number": float64(hint)},
		CreatedAt: createdAt,
	}
}

func TestResolvePrefersSceneIDOverHint(t *testing.T) {
	scene := makeScene(1)
	now := time.Now()

	assets := []models.MediaAsset{
		assetWithHint(1, "https://cdn.example.com/by-hint.png", now.Add(time.Hour)),
		assetForScene(scene.ID, "https://cdn.example.com/by-id.png", now),
	}

	matches := ResolveSceneAssets([]models.Scene{scene}, assets)
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.Kind != MatchedByID {
		t.Errorf("expected matched_by_id, got %s", m.Kind)
	}
	if m.Asset.URL != "https://cdn.example.com/by-id.png" {
		t.Errorf("wrong asset selected: %s", m.Asset.URL)
	}
}

func TestResolveFallsBackToHint(t *testing.T) {
	scene := makeScene(3)
	assets := []models.MediaAsset{
		assetWithHint(3, "https://cdn.example.com/legacy.png", time.Now()),
	}

	matches := ResolveSceneAssets([]models.Scene{scene}, assets)
	if matches[0].Kind != MatchedByHint {
		t.Fatalf("expected matched_by_hint, got %s", matches[0].Kind)
	}
	if matches[0].Asset.URL != "https://cdn.example.com/legacy.png" {
		t.Errorf("wrong asset: %s", matches[0].Asset.URL)
	}
}

func TestResolvePicksNewestRegeneration(t *testing.T) {
	scene := makeScene(1)
	now := time.Now()

	// Delivered oldest-first on purpose — the resolver must sort, not trust
	// delivery order.
	assets := []models.MediaAsset{
		assetForScene(scene.ID, "https://cdn.example.com/v1.png", now.Add(-2*time.Hour)),
		assetForScene(scene.ID, "https://cdn.example.com/v3.png", now),
		assetForScene(scene.ID, "https://cdn.example.com/v2.png", now.Add(-time.Hour)),
	}

	matches := ResolveSceneAssets([]models.Scene{scene}, assets)
	if matches[0].Asset.URL != "https://cdn.example.com/v3.png" {
		t.Errorf("expected newest regeneration, got %s", matches[0].Asset.URL)
	}
}

func TestResolveReportsUnresolved(t *testing.T) {
	resolved := makeScene(1)
	missing := makeScene(2)

	assets := []models.MediaAsset{
		assetForScene(resolved.ID, "https://cdn.example.com/ok.png", time.Now()),
	}

	matches := ResolveSceneAssets([]models.Scene{resolved, missing}, assets)
	if len(matches) != 2 {
		t.Fatalf("expected a match entry per scene, got %d", len(matches))
	}
	if matches[0].Kind != MatchedByID {
		t.Errorf("scene 1: expected matched_by_id, got %s", matches[0].Kind)
	}
	if matches[1].Kind != Unresolved {
		t.Errorf("scene 2: expected unresolved, got %s", matches[1].Kind)
	}
	if matches[1].Asset != nil {
		t.Error("unresolved match must carry no asset")
	}
}

func TestSceneNumberHintFormats(t *testing.T) {
	tests := []struct {
		name     string
		metadata models.JSONB
		want     int
		wantOK   bool
	}{
		{"json number", models.JSONB{"scene_number": float64(4)}, 4, true},
		{"string", models.JSONB{"scene_number": "7"}, 7, true},
		{"garbage string", models.JSONB{"scene_number": "seven"}, 0, false},
		{"absent", models.JSONB{"other": 1}, 0, false},
		{"nil metadata", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := models.MediaAsset{Metadata: tt.metadata}
			got, ok := a.SceneNumberHint()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("got (%d,%v), want (%d,%v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
