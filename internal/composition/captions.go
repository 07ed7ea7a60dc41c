package composition

import "github.com/adreel/composer/internal/models"

// ---------------------------------------------------------------------------
// CaptionSynchronizer — derives one caption cue per scene, aligned to the
// allocated scene boundaries. A running accumulator guarantees the cues
// partition [0, targetDuration) with no gaps or overlaps by construction.
// ---------------------------------------------------------------------------

// SynchronizeCaptions emits one cue per scene, or nil when captions are
// disabled. scenes and durations must be index-aligned and in scene number
// order; the builder guarantees both.
func SynchronizeCaptions(scenes []models.Scene, durations []float64, settings *models.CaptionSettings) []CaptionCue {
	if settings == nil || !settings.Enabled {
		return nil
	}

	cues := make([]CaptionCue, len(scenes))
	currentTime := 0.0
	for i, scene := range scenes {
		cues[i] = CaptionCue{
			Text:     scene.ScriptText,
			Start:    currentTime,
			Duration: durations[i],
		}
		currentTime += durations[i]
	}
	return cues
}

// captionStyleFrom copies the authoring-time settings into the renderer
// pass-through shape.
func captionStyleFrom(settings *models.CaptionSettings) *CaptionStyle {
	if settings == nil || !settings.Enabled {
		return nil
	}
	return &CaptionStyle{
		FontFamily:   settings.FontFamily,
		FontSize:     settings.FontSize,
		FontColor:    settings.FontColor,
		Position:     settings.Position,
		WordsPerLine: settings.WordsPerLine,
		Style:        settings.Style,
		Effect:       settings.Effect,
	}
}
