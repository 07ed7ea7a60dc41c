package composition

import "github.com/adreel/composer/internal/models"

// ---------------------------------------------------------------------------
// CompositionBuilder — orchestrates resolution, allocation, caption sync and
// audio planning into one validated Composition Plan.
//
// Pure: no I/O, no clock, no randomness. Identical inputs always produce an
// identical plan, so a failed submission can rebuild (or reuse) the plan at
// no cost and tests need no network.
// ---------------------------------------------------------------------------

const (
	// DefaultOutputFormat is used when the project does not specify one.
	DefaultOutputFormat = "mp4"

	transitionNone      = "none"
	transitionCrossfade = "crossfade"
)

// BuildInput is the complete snapshot the builder needs. Partial snapshots
// must never be composed; the coordinator waits for all upstream reads
// before constructing one.
type BuildInput struct {
	Scenes         []models.Scene
	Visuals        []models.MediaAsset // image / video_clip assets
	Voiceovers     []models.MediaAsset
	Music          MusicSelection
	Captions       *models.CaptionSettings
	TargetDuration float64
	Resolution     models.Resolution
	AspectRatio    models.AspectRatio
	OutputFormat   string
	MusicVolume    *float64 // nil = DefaultMusicVolume
}

// Build validates the input and derives the Composition Plan.
//
// Validation order is fixed so error messages are reproducible:
//  1. at least one scene exists
//  2. every scene resolves to a visual asset
//  3. target duration is positive
//  4. resolution and aspect ratio are members of their enumerated sets
//  5. music volume is in range (and the music source is unambiguous)
//
// The first violated rule aborts the build; there is no partial plan.
func Build(in BuildInput) (*Plan, error) {
	if len(in.Scenes) == 0 {
		return nil, errEmptyProject()
	}

	scenes := sortScenes(in.Scenes)

	matches := ResolveSceneAssets(scenes, in.Visuals)
	for _, m := range matches {
		if m.Kind == Unresolved {
			return nil, errMissingSceneAsset(m.Scene.SceneNumber)
		}
	}

	durations, err := AllocateDurations(len(scenes), in.TargetDuration)
	if err != nil {
		return nil, err
	}

	if !in.Resolution.Valid() {
		return nil, errInvalidSettings("resolution", "must be one of 480p, 720p, 1080p, 4k")
	}
	if !in.AspectRatio.Valid() {
		return nil, errInvalidSettings("aspect_ratio", "must be one of portrait, landscape, square")
	}

	mix, err := PlanAudioMix(in.Voiceovers, in.Music, in.MusicVolume)
	if err != nil {
		return nil, err
	}

	clips := make([]Clip, len(matches))
	offset := 0.0
	for i, m := range matches {
		transition := transitionCrossfade
		if i == 0 {
			transition = transitionNone
		}
		clips[i] = Clip{
			SourceURL:    m.Asset.URL,
			StartOffset:  offset,
			Duration:     durations[i],
			TransitionIn: transition,
		}
		offset += durations[i]
	}

	format := in.OutputFormat
	if format == "" {
		format = DefaultOutputFormat
	}

	return &Plan{
		Clips:        clips,
		CaptionCues:  SynchronizeCaptions(scenes, durations, in.Captions),
		CaptionStyle: captionStyleFrom(in.Captions),
		VoiceoverURL: mix.VoiceoverURL,
		MusicURL:     mix.MusicURL,
		MusicVolume:  mix.MusicVolume,
		Resolution:   in.Resolution,
		AspectRatio:  in.AspectRatio,
		OutputFormat: format,
	}, nil
}
