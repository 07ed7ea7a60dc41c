package models

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Enums

type ProjectStep string

const (
	ProjectStepScript    ProjectStep = "script"
	ProjectStepVisuals   ProjectStep = "visuals"
	ProjectStepVoiceover ProjectStep = "voiceover"
	ProjectStepMusic     ProjectStep = "music"
	ProjectStepCompile   ProjectStep = "compile"
	ProjectStepDone      ProjectStep = "done"
)

type AssetKind string

const (
	AssetKindImage     AssetKind = "image"
	AssetKindVideoClip AssetKind = "video_clip"
	AssetKindVoiceover AssetKind = "voiceover"
	AssetKindMusic     AssetKind = "music"
)

type Resolution string

const (
	Resolution480p  Resolution = "480p"
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// Valid reports whether r is a member of the supported resolution set.
func (r Resolution) Valid() bool {
	switch r {
	case Resolution480p, Resolution720p, Resolution1080p, Resolution4K:
		return true
	}
	return false
}

type AspectRatio string

const (
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"
	AspectSquare    AspectRatio = "square"
)

func (a AspectRatio) Valid() bool {
	switch a {
	case AspectPortrait, AspectLandscape, AspectSquare:
		return true
	}
	return false
}

type MusicSource string

const (
	MusicSourcePreset    MusicSource = "preset"
	MusicSourceLibrary   MusicSource = "library"
	MusicSourceGenerated MusicSource = "generated"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

// Models

type Project struct {
	ID                    uuid.UUID    `json:"id"`
	UserID                *uuid.UUID   `json:"user_id,omitempty"`
	ProductName           string       `json:"product_name"`
	ProductDescription    *string      `json:"product_description,omitempty"`
	TargetDurationSeconds float64      `json:"target_duration_seconds"`
	Resolution            Resolution   `json:"resolution"`
	AspectRatio           AspectRatio  `json:"aspect_ratio"`
	OutputFormat          string       `json:"output_format"` // "mp4"
	MusicVolume           *float64     `json:"music_volume,omitempty"`
	MusicSource           *MusicSource `json:"music_source,omitempty"`
	MusicPresetSlug       *string      `json:"music_preset_slug,omitempty"`
	CurrentStep           ProjectStep  `json:"current_step"`
	FinalVideoID          *uuid.UUID   `json:"final_video_id,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

type Scene struct {
	ID                uuid.UUID `json:"id"`
	ProjectID         uuid.UUID `json:"project_id"`
	SceneNumber       int       `json:"scene_number"` // 1-based, unique per project
	ScriptText        string    `json:"script_text"`
	VisualDescription string    `json:"visual_description"`
	CreatedAt         time.Time `json:"created_at"`
}

// MediaAsset is one generated media file. SceneID links an asset to its scene;
// assets from older generation runs instead carry a scene number hint in the
// metadata bag.
type MediaAsset struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	SceneID   *uuid.UUID `json:"scene_id,omitempty"`
	Kind      AssetKind  `json:"kind"`
	URL       string     `json:"url"`
	Metadata  JSONB      `json:"metadata,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SceneNumberHint extracts the legacy scene-number association from the
// metadata bag. Some runs stored it as a JSON number, some as a string;
// both are accepted.
func (a *MediaAsset) SceneNumberHint() (int, bool) {
	if a.Metadata == nil {
		return 0, false
	}
	raw, ok := a.Metadata["scene_number"]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// CaptionSettings is a project-level singleton. Position and words_per_line
// are validated at authoring time; the engine passes them through verbatim.
type CaptionSettings struct {
	ProjectID    uuid.UUID `json:"project_id"`
	Enabled      bool      `json:"enabled"`
	FontFamily   string    `json:"font_family"`
	FontSize     int       `json:"font_size"`
	FontColor    string    `json:"font_color"`
	Position     int       `json:"position"`       // vertical %, 10-90
	WordsPerLine int       `json:"words_per_line"` // 0 = renderer must not wrap
	Style        JSONB     `json:"style,omitempty"`
	Effect       JSONB     `json:"effect,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type FinalVideo struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       uuid.UUID  `json:"project_id"`
	URL             string     `json:"url"`
	DurationSeconds float64    `json:"duration_seconds"`
	Resolution      Resolution `json:"resolution"`
	CreditCost      int        `json:"credit_cost"`
	Metadata        JSONB      `json:"metadata,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MusicPreset is one entry of the built-in background track catalog.
type MusicPreset struct {
	Slug string `json:"slug" yaml:"slug"`
	Name string `json:"name" yaml:"name"`
	Mood string `json:"mood" yaml:"mood"`
	URL  string `json:"url" yaml:"url"`
}

// DTOs for API responses

type ProjectResponse struct {
	Project
	Scenes     []Scene          `json:"scenes,omitempty"`
	Captions   *CaptionSettings `json:"captions,omitempty"`
	FinalVideo *FinalVideo      `json:"final_video,omitempty"`
}

type CompileResponse struct {
	ProjectID  uuid.UUID   `json:"project_id"`
	FinalVideo *FinalVideo `json:"final_video"`
}

// VideoResponse is a final video plus a time-limited download link.
type VideoResponse struct {
	FinalVideo
	DownloadURL string `json:"download_url,omitempty"`
}

type CompileStatusResponse struct {
	ProjectID uuid.UUID `json:"project_id"`
	InFlight  bool      `json:"in_flight"`
}
