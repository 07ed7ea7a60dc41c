package compile

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/adreel/composer/internal/composition"
	"github.com/adreel/composer/internal/config"
	"github.com/adreel/composer/internal/models"
	"github.com/adreel/composer/internal/renderer"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------------
// Render submission coordinator.
//
// Owns everything around the pure builder: fetching a complete project
// snapshot, serializing compiles per project, handing the plan to the
// renderer, and persisting the final video record. Build failures come back
// as *composition.BuildError; anything after a valid build is a retryable
// *composition.SubmissionError.
// ---------------------------------------------------------------------------

// creditSecondsPerUnit sizes the duration-derived usage cost: one credit per
// started 30 seconds of output.
const creditSecondsPerUnit = 30

// ProjectStore is the subset of the database the coordinator reads and writes.
type ProjectStore interface {
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error)
	GetProjectMediaAssets(ctx context.Context, projectID uuid.UUID, kinds ...models.AssetKind) ([]models.MediaAsset, error)
	GetCaptionSettings(ctx context.Context, projectID uuid.UUID) (*models.CaptionSettings, error)
	CreateFinalVideo(ctx context.Context, video *models.FinalVideo) error
	AdvanceProjectStep(ctx context.Context, projectID uuid.UUID, step models.ProjectStep, finalVideoID uuid.UUID) error
}

// Gate serializes compiles per project. Acquire hands back a holder token;
// Release with a stale token (the gate expired and was re-acquired) is a
// no-op, so a slow compile can never free its successor's gate.
type Gate interface {
	Acquire(ctx context.Context, projectID uuid.UUID) (string, error)
	Release(ctx context.Context, projectID uuid.UUID, token string) error
}

// Renderer is the external encoder boundary.
type Renderer interface {
	Render(ctx context.Context, plan *composition.Plan) (*renderer.Result, error)
}

// PlanArchiver stores the serialized plan for later auditing. Optional.
type PlanArchiver interface {
	ArchivePlan(ctx context.Context, projectID uuid.UUID, plan interface{}) (string, error)
}

type Coordinator struct {
	store    ProjectStore
	gate     Gate
	renderer Renderer
	archiver PlanArchiver // nil = plans are not archived
	catalog  *config.MusicCatalog
}

func New(store ProjectStore, g Gate, r Renderer, archiver PlanArchiver, catalog *config.MusicCatalog) *Coordinator {
	return &Coordinator{
		store:    store,
		gate:     g,
		renderer: r,
		archiver: archiver,
		catalog:  catalog,
	}
}

// snapshot is the complete upstream state a build needs. Partial snapshots
// are never composed: the reads run concurrently and the build waits for all
// of them.
type snapshot struct {
	project  *models.Project
	scenes   []models.Scene
	visuals  []models.MediaAsset
	audio    []models.MediaAsset
	captions *models.CaptionSettings
}

func (c *Coordinator) fetchSnapshot(ctx context.Context, projectID uuid.UUID) (*snapshot, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	snap := &snapshot{project: project}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.scenes, err = c.store.GetProjectScenes(gctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to get scenes: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		snap.visuals, err = c.store.GetProjectMediaAssets(gctx, projectID, models.AssetKindImage, models.AssetKindVideoClip)
		if err != nil {
			return fmt.Errorf("failed to get visual assets: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		snap.audio, err = c.store.GetProjectMediaAssets(gctx, projectID, models.AssetKindVoiceover, models.AssetKindMusic)
		if err != nil {
			return fmt.Errorf("failed to get audio assets: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		snap.captions, err = c.store.GetCaptionSettings(gctx, projectID)
		if err != nil {
			return fmt.Errorf("failed to get caption settings: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}

// musicSelection maps the project's authoring-time music choice onto the
// builder's exclusive selection. The authoring step produced exactly one
// source; which kind it was is recorded on the project.
func (c *Coordinator) musicSelection(snap *snapshot) (composition.MusicSelection, error) {
	var sel composition.MusicSelection
	project := snap.project

	if project.MusicSource == nil {
		return sel, nil
	}

	switch *project.MusicSource {
	case models.MusicSourcePreset:
		if project.MusicPresetSlug == nil {
			return sel, fmt.Errorf("project selected a preset track but has no preset slug")
		}
		preset, ok := c.catalog.Lookup(*project.MusicPresetSlug)
		if !ok {
			return sel, fmt.Errorf("unknown music preset %q", *project.MusicPresetSlug)
		}
		sel.PresetURL = preset.URL
	case models.MusicSourceLibrary:
		sel.LibraryAsset = newestMusic(snap.audio)
	case models.MusicSourceGenerated:
		sel.GeneratedAsset = newestMusic(snap.audio)
	default:
		return sel, fmt.Errorf("unknown music source %q", *project.MusicSource)
	}

	return sel, nil
}

func newestMusic(assets []models.MediaAsset) *models.MediaAsset {
	var newest *models.MediaAsset
	for i := range assets {
		a := &assets[i]
		if a.Kind != models.AssetKindMusic {
			continue
		}
		if newest == nil || a.CreatedAt.After(newest.CreatedAt) {
			newest = a
		}
	}
	return newest
}

// BuildPlan fetches a snapshot and runs the builder without submitting
// anything — the dry-run path behind GET /projects/{id}/plan.
func (c *Coordinator) BuildPlan(ctx context.Context, projectID uuid.UUID) (*composition.Plan, error) {
	snap, err := c.fetchSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return c.buildFromSnapshot(snap)
}

func (c *Coordinator) buildFromSnapshot(snap *snapshot) (*composition.Plan, error) {
	music, err := c.musicSelection(snap)
	if err != nil {
		return nil, err
	}

	return composition.Build(composition.BuildInput{
		Scenes:         snap.scenes,
		Visuals:        snap.visuals,
		Voiceovers:     snap.audio,
		Music:          music,
		Captions:       snap.captions,
		TargetDuration: snap.project.TargetDurationSeconds,
		Resolution:     snap.project.Resolution,
		AspectRatio:    snap.project.AspectRatio,
		OutputFormat:   snap.project.OutputFormat,
		MusicVolume:    snap.project.MusicVolume,
	})
}

// Compile runs one full compile: gate, snapshot, build, render, persist.
// A second call while one is in flight fails with the gate's in-flight
// error, surfaced unwrapped so the API can map it to 409.
func (c *Coordinator) Compile(ctx context.Context, projectID uuid.UUID) (*models.FinalVideo, error) {
	token, err := c.gate.Acquire(ctx, projectID)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Release with a fresh context: the caller may already be gone, and a
		// stuck gate would block the next compile until the TTL expires.
		if err := c.gate.Release(context.Background(), projectID, token); err != nil {
			log.Printf("[Compile] failed to release gate for project %s: %v", projectID, err)
		}
	}()

	snap, err := c.fetchSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	plan, err := c.buildFromSnapshot(snap)
	if err != nil {
		return nil, err
	}

	if c.archiver != nil {
		if _, err := c.archiver.ArchivePlan(ctx, projectID, plan); err != nil {
			// Auditing nicety, not a reason to fail the compile.
			log.Printf("[Compile] failed to archive plan for project %s: %v", projectID, err)
		}
	}

	log.Printf("[Compile] project %s: plan built (%d clips, %d cues), submitting to renderer", projectID, len(plan.Clips), len(plan.CaptionCues))

	result, err := c.renderer.Render(ctx, plan)
	if err != nil {
		return nil, composition.NewSubmissionError("render", err)
	}

	video := &models.FinalVideo{
		ID:              uuid.New(),
		ProjectID:       projectID,
		URL:             result.URL,
		DurationSeconds: result.DurationSeconds,
		Resolution:      plan.Resolution,
		CreditCost:      creditCost(result.DurationSeconds),
		Metadata: models.JSONB{
			"music_volume":     plan.MusicVolume,
			"include_captions": plan.CaptionCues != nil,
			"caption_style":    plan.CaptionStyle,
		},
	}

	if err := c.store.CreateFinalVideo(ctx, video); err != nil {
		return nil, composition.NewSubmissionError("persist", err)
	}

	if err := c.store.AdvanceProjectStep(ctx, projectID, models.ProjectStepDone, video.ID); err != nil {
		return nil, composition.NewSubmissionError("persist", err)
	}

	log.Printf("[Compile] project %s: final video %s persisted (%.1fs, %d credits)", projectID, video.ID, video.DurationSeconds, video.CreditCost)
	return video, nil
}

// creditCost charges one unit per started 30s block, never less than one.
func creditCost(durationSeconds float64) int {
	if durationSeconds <= 0 {
		return 1
	}
	return int(math.Ceil(durationSeconds / creditSecondsPerUnit))
}
