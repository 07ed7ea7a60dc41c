package composition

import (
	"sort"

	"github.com/adreel/composer/internal/models"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SceneAssetResolver — maps each scene to the one visual asset that should
// represent it. Two historical association schemes exist: the current one
// links an asset to its scene by scene_id, the legacy one carries the scene
// number in the asset's metadata bag. Resolution is a two-stage lookup with
// a tagged result so the origin of every match stays auditable.
// ---------------------------------------------------------------------------

type MatchKind string

const (
	MatchedByID   MatchKind = "matched_by_id"
	MatchedByHint MatchKind = "matched_by_hint"
	Unresolved    MatchKind = "unresolved"
)

// Match is the resolution result for one scene. Asset is nil iff Kind is
// Unresolved.
type Match struct {
	Scene models.Scene
	Kind  MatchKind
	Asset *models.MediaAsset
}

// ResolveSceneAssets resolves every scene against the given assets and
// returns one Match per scene, in the input scene order. Regenerations
// produce multiple assets per scene; the most recently created one wins.
// An unresolved scene is reported, never dropped — the builder turns it
// into a fatal error.
func ResolveSceneAssets(scenes []models.Scene, assets []models.MediaAsset) []Match {
	// Newest-first before indexing, so the first asset seen for a key is the
	// one to keep. Delivery order from the store is not guaranteed.
	sorted := make([]models.MediaAsset, len(assets))
	copy(sorted, assets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	byID := make(map[uuid.UUID]*models.MediaAsset)
	byHint := make(map[int]*models.MediaAsset)
	for i := range sorted {
		a := &sorted[i]
		if a.SceneID != nil {
			if _, seen := byID[*a.SceneID]; !seen {
				byID[*a.SceneID] = a
			}
		}
		if hint, ok := a.SceneNumberHint(); ok {
			if _, seen := byHint[hint]; !seen {
				byHint[hint] = a
			}
		}
	}

	matches := make([]Match, len(scenes))
	for i, scene := range scenes {
		switch {
		case byID[scene.ID] != nil:
			matches[i] = Match{Scene: scene, Kind: MatchedByID, Asset: byID[scene.ID]}
		case byHint[scene.SceneNumber] != nil:
			matches[i] = Match{Scene: scene, Kind: MatchedByHint, Asset: byHint[scene.SceneNumber]}
		default:
			matches[i] = Match{Scene: scene, Kind: Unresolved}
		}
	}

	return matches
}
