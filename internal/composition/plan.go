package composition

import "github.com/adreel/composer/internal/models"

// ---------------------------------------------------------------------------
// Composition Plan — the engine's sole output. An ordered, time-indexed
// description of what the external renderer must encode. Built once,
// never mutated; the JSON encoding is the renderer request body as-is.
// ---------------------------------------------------------------------------

// Clip is one scene's resolved visual plus its time slice on the timeline.
type Clip struct {
	SourceURL    string  `json:"source_url"`
	StartOffset  float64 `json:"start_offset"` // seconds from timeline start
	Duration     float64 `json:"duration"`     // seconds
	TransitionIn string  `json:"transition_in"`
}

// CaptionCue is one scene's subtitle text plus its time slice, aligned to the
// corresponding Clip.
type CaptionCue struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// CaptionStyle carries the authoring-time caption settings through to the
// renderer verbatim. WordsPerLine 0 means the renderer must not auto-wrap.
type CaptionStyle struct {
	FontFamily   string       `json:"font_family"`
	FontSize     int          `json:"font_size"`
	FontColor    string       `json:"font_color"`
	Position     int          `json:"position"` // vertical %, 10-90
	WordsPerLine int          `json:"words_per_line"`
	Style        models.JSONB `json:"style,omitempty"`
	Effect       models.JSONB `json:"effect,omitempty"`
}

// Plan is the validated composition handed to the renderer. CaptionCues and
// CaptionStyle are nil when captions are disabled; VoiceoverURL and MusicURL
// are empty when the project has no such track.
type Plan struct {
	Clips        []Clip             `json:"clips"`
	CaptionCues  []CaptionCue       `json:"caption_cues,omitempty"`
	CaptionStyle *CaptionStyle      `json:"caption_style,omitempty"`
	VoiceoverURL string             `json:"voiceover_url,omitempty"`
	MusicURL     string             `json:"music_url,omitempty"`
	MusicVolume  float64            `json:"music_volume"`
	Resolution   models.Resolution  `json:"resolution"`
	AspectRatio  models.AspectRatio `json:"aspect_ratio"`
	OutputFormat string             `json:"output_format"`
}

// TotalDuration returns the sum of all clip durations.
func (p *Plan) TotalDuration() float64 {
	var total float64
	for _, c := range p.Clips {
		total += c.Duration
	}
	return total
}
