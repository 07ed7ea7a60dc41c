package composition

import (
	"sort"

	"github.com/adreel/composer/internal/models"
)

// ---------------------------------------------------------------------------
// AudioMixPlanner — selects the voiceover and music references and the music
// playback level. No mixing of multiple music sources: the authoring step
// produces exactly one of preset / library / generated, and supplying more
// than one here is a caller error, not resolved heuristically.
// ---------------------------------------------------------------------------

// DefaultMusicVolume is applied when the caller leaves the level unspecified.
const DefaultMusicVolume = 0.3

// MusicSelection names at most one music source. PresetURL comes from the
// built-in track catalog; LibraryAsset and GeneratedAsset are media assets.
type MusicSelection struct {
	PresetURL      string
	LibraryAsset   *models.MediaAsset
	GeneratedAsset *models.MediaAsset
}

func (m MusicSelection) sourceCount() int {
	n := 0
	if m.PresetURL != "" {
		n++
	}
	if m.LibraryAsset != nil {
		n++
	}
	if m.GeneratedAsset != nil {
		n++
	}
	return n
}

// AudioMix is the planned audio layer of the composition.
type AudioMix struct {
	VoiceoverURL string
	MusicURL     string
	MusicVolume  float64
}

// PlanAudioMix selects the most recent voiceover (or none), the single music
// reference, and the playback level. volume nil means the default; a value
// outside [0,1] is rejected.
func PlanAudioMix(voiceovers []models.MediaAsset, music MusicSelection, volume *float64) (AudioMix, error) {
	mix := AudioMix{MusicVolume: DefaultMusicVolume}

	if volume != nil {
		if *volume < 0 || *volume > 1 {
			return AudioMix{}, errInvalidSettings("music_volume", "must be between 0 and 1")
		}
		mix.MusicVolume = *volume
	}

	if music.sourceCount() > 1 {
		return AudioMix{}, errInvalidSettings("music_source", "more than one music source supplied")
	}
	switch {
	case music.PresetURL != "":
		mix.MusicURL = music.PresetURL
	case music.LibraryAsset != nil:
		mix.MusicURL = music.LibraryAsset.URL
	case music.GeneratedAsset != nil:
		mix.MusicURL = music.GeneratedAsset.URL
	}

	if vo := latestVoiceover(voiceovers); vo != nil {
		mix.VoiceoverURL = vo.URL
	}

	return mix, nil
}

func latestVoiceover(assets []models.MediaAsset) *models.MediaAsset {
	var latest *models.MediaAsset
	for i := range assets {
		a := &assets[i]
		if a.Kind != models.AssetKindVoiceover {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	return latest
}

// sortScenes orders scenes by scene number ascending. The store returns them
// ordered already, but the single global ordering invariant of the engine is
// enforced here rather than assumed.
func sortScenes(scenes []models.Scene) []models.Scene {
	sorted := make([]models.Scene, len(scenes))
	copy(sorted, scenes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SceneNumber < sorted[j].SceneNumber
	})
	return sorted
}
