package compile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adreel/composer/internal/composition"
	"github.com/adreel/composer/internal/config"
	"github.com/adreel/composer/internal/models"
	"github.com/adreel/composer/internal/renderer"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeStore struct {
	mu       sync.Mutex
	project  *models.Project
	scenes   []models.Scene
	assets   []models.MediaAsset
	captions *models.CaptionSettings

	videos         []*models.FinalVideo
	advancedTo     models.ProjectStep
	createVideoErr error
}

func (s *fakeStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.project, nil
}

func (s *fakeStore) GetProjectScenes(ctx context.Context, projectID uuid.UUID) ([]models.Scene, error) {
	return s.scenes, nil
}

func (s *fakeStore) GetProjectMediaAssets(ctx context.Context, projectID uuid.UUID, kinds ...models.AssetKind) ([]models.MediaAsset, error) {
	want := make(map[models.AssetKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []models.MediaAsset
	for _, a := range s.assets {
		if want[a.Kind] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) GetCaptionSettings(ctx context.Context, projectID uuid.UUID) (*models.CaptionSettings, error) {
	return s.captions, nil
}

func (s *fakeStore) CreateFinalVideo(ctx context.Context, video *models.FinalVideo) error {
	if s.createVideoErr != nil {
		return s.createVideoErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos = append(s.videos, video)
	return nil
}

func (s *fakeStore) AdvanceProjectStep(ctx context.Context, projectID uuid.UUID, step models.ProjectStep, finalVideoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advancedTo = step
	return nil
}

var errGateHeld = errors.New("compile already in flight")

// fakeGate mirrors the redis gate's semantics: acquire hands out a token,
// release is compare-and-delete on it.
type fakeGate struct {
	mu       sync.Mutex
	tokens   map[uuid.UUID]string
	next     int
	acquires int
	releases int
}

func newFakeGate() *fakeGate {
	return &fakeGate{tokens: make(map[uuid.UUID]string)}
}

func (g *fakeGate) Acquire(ctx context.Context, projectID uuid.UUID) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.tokens[projectID]; held {
		return "", errGateHeld
	}
	g.next++
	token := fmt.Sprintf("token-%d", g.next)
	g.tokens[projectID] = token
	g.acquires++
	return token, nil
}

func (g *fakeGate) Release(ctx context.Context, projectID uuid.UUID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tokens[projectID] == token {
		delete(g.tokens, projectID)
	}
	g.releases++
	return nil
}

// expire simulates the TTL watchdog clearing the key under the holder.
func (g *fakeGate) expire(projectID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tokens, projectID)
}

func (g *fakeGate) heldBy(projectID uuid.UUID) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	token, held := g.tokens[projectID]
	return token, held
}

type fakeRenderer struct {
	mu     sync.Mutex
	calls  int
	result *renderer.Result
	err    error
	block  chan struct{} // when set, Render blocks until closed
}

func (r *fakeRenderer) Render(ctx context.Context, plan *composition.Plan) (*renderer.Result, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	r.mu.Unlock()

	if block != nil {
		<-block
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func testCatalog(t *testing.T) *config.MusicCatalog {
	t.Helper()
	catalog, err := config.ParseMusicCatalog([]byte(
		"presets:\n  - slug: upbeat\n    name: Upbeat\n    url: https://cdn.example.com/upbeat.mp3\n"))
	if err != nil {
		t.Fatalf("failed to build test catalog: %v", err)
	}
	return catalog
}

func testStore(sceneCount int) *fakeStore {
	projectID := uuid.New()
	scenes := make([]models.Scene, sceneCount)
	assets := make([]models.MediaAsset, sceneCount)
	now := time.Now()

	for i := 0; i < sceneCount; i++ {
		scenes[i] = models.Scene{
			ID:          uuid.New(),
			ProjectID:   projectID,
			SceneNumber: i + 1,
			ScriptText:  "beat",
		}
		sceneID := scenes[i].ID
		assets[i] = models.MediaAsset{
			ID:        uuid.New(),
			ProjectID: projectID,
			SceneID:   &sceneID,
			Kind:      models.AssetKindImage,
			URL:       "https://cdn.example.com/img.png",
			CreatedAt: now,
		}
	}

	return &fakeStore{
		project: &models.Project{
			ID:                    projectID,
			ProductName:           "Test Product",
			TargetDurationSeconds: 30,
			Resolution:            models.Resolution1080p,
			AspectRatio:           models.AspectPortrait,
			OutputFormat:          "mp4",
			CurrentStep:           models.ProjectStepCompile,
		},
		scenes: scenes,
		assets: assets,
		captions: &models.CaptionSettings{
			ProjectID: projectID,
			Enabled:   true,
			Position:  80,
		},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestCompileHappyPath(t *testing.T) {
	store := testStore(3)
	g := newFakeGate()
	r := &fakeRenderer{result: &renderer.Result{URL: "https://cdn.example.com/final.mp4", DurationSeconds: 30}}

	coord := New(store, g, r, nil, testCatalog(t))

	video, err := coord.Compile(context.Background(), store.project.ID)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	if video.URL != "https://cdn.example.com/final.mp4" {
		t.Errorf("wrong video url: %s", video.URL)
	}
	if video.CreditCost != 1 {
		t.Errorf("30s video should cost 1 credit, got %d", video.CreditCost)
	}
	if len(store.videos) != 1 {
		t.Errorf("expected 1 persisted video, got %d", len(store.videos))
	}
	if store.advancedTo != models.ProjectStepDone {
		t.Errorf("project step not advanced, got %q", store.advancedTo)
	}
	if got := video.Metadata["include_captions"]; got != true {
		t.Errorf("metadata include_captions = %v, want true", got)
	}
	if g.releases != 1 {
		t.Errorf("gate released %d times, want 1", g.releases)
	}
}

func TestCompileBuildFailureSkipsRenderer(t *testing.T) {
	store := testStore(4)
	// Remove scene 2's asset.
	store.assets = append(store.assets[:1], store.assets[2:]...)

	r := &fakeRenderer{result: &renderer.Result{URL: "x"}}
	coord := New(store, newFakeGate(), r, nil, testCatalog(t))

	_, err := coord.Compile(context.Background(), store.project.ID)

	be, ok := composition.AsBuildError(err)
	if !ok {
		t.Fatalf("expected build error, got %v", err)
	}
	if be.Code != composition.ErrCodeMissingSceneAsset || be.SceneNumber != 2 {
		t.Errorf("expected missing_scene_asset for scene 2, got %+v", be)
	}
	if r.callCount() != 0 {
		t.Error("renderer must not be called when the build fails")
	}
	if len(store.videos) != 0 {
		t.Error("no video must be persisted on build failure")
	}
}

func TestCompileRendererFailureIsRetryable(t *testing.T) {
	store := testStore(2)
	r := &fakeRenderer{err: errors.New("encoder unavailable")}
	g := newFakeGate()

	coord := New(store, g, r, nil, testCatalog(t))

	_, err := coord.Compile(context.Background(), store.project.ID)
	if !composition.IsRetryable(err) {
		t.Fatalf("renderer failure should be retryable, got %v", err)
	}
	if g.releases != 1 {
		t.Error("gate must be released after a failed compile")
	}

	// The same compile can be retried immediately.
	r.err = nil
	r.result = &renderer.Result{URL: "https://cdn.example.com/final.mp4", DurationSeconds: 30}
	if _, err := coord.Compile(context.Background(), store.project.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestCompilePersistFailureIsRetryable(t *testing.T) {
	store := testStore(2)
	store.createVideoErr = errors.New("db down")
	r := &fakeRenderer{result: &renderer.Result{URL: "x", DurationSeconds: 30}}

	coord := New(store, newFakeGate(), r, nil, testCatalog(t))

	_, err := coord.Compile(context.Background(), store.project.ID)
	if !composition.IsRetryable(err) {
		t.Fatalf("persist failure should be retryable, got %v", err)
	}
}

func TestCompileRejectsConcurrentRequests(t *testing.T) {
	store := testStore(2)
	g := newFakeGate()

	block := make(chan struct{})
	r := &fakeRenderer{
		result: &renderer.Result{URL: "https://cdn.example.com/final.mp4", DurationSeconds: 30},
		block:  block,
	}

	coord := New(store, g, r, nil, testCatalog(t))

	firstDone := make(chan error, 1)
	go func() {
		_, err := coord.Compile(context.Background(), store.project.ID)
		firstDone <- err
	}()

	// Wait for the first compile to reach the renderer (gate held).
	for i := 0; i < 100 && r.callCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if r.callCount() == 0 {
		t.Fatal("first compile never reached the renderer")
	}

	_, err := coord.Compile(context.Background(), store.project.ID)
	if !errors.Is(err, errGateHeld) {
		t.Errorf("second compile should be rejected, got %v", err)
	}

	close(block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first compile failed: %v", err)
	}

	// Gate released — a new compile is allowed again.
	r.mu.Lock()
	r.block = nil
	r.mu.Unlock()
	if _, err := coord.Compile(context.Background(), store.project.ID); err != nil {
		t.Fatalf("compile after release failed: %v", err)
	}
}

func TestCompileStaleReleaseKeepsSuccessorGate(t *testing.T) {
	store := testStore(2)
	g := newFakeGate()

	firstBlock := make(chan struct{})
	secondBlock := make(chan struct{})
	r := &fakeRenderer{
		result: &renderer.Result{URL: "https://cdn.example.com/final.mp4", DurationSeconds: 30},
		block:  firstBlock,
	}

	coord := New(store, g, r, nil, testCatalog(t))

	firstDone := make(chan error, 1)
	go func() {
		_, err := coord.Compile(context.Background(), store.project.ID)
		firstDone <- err
	}()

	for i := 0; i < 100 && r.callCount() == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if r.callCount() == 0 {
		t.Fatal("first compile never reached the renderer")
	}

	// The first compile outlives its TTL: the watchdog clears the gate and a
	// second compile acquires it while the first is still rendering.
	g.expire(store.project.ID)

	r.mu.Lock()
	r.block = secondBlock
	r.mu.Unlock()

	secondDone := make(chan error, 1)
	go func() {
		_, err := coord.Compile(context.Background(), store.project.ID)
		secondDone <- err
	}()

	for i := 0; i < 100 && r.callCount() < 2; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if r.callCount() != 2 {
		t.Fatal("second compile never reached the renderer")
	}
	secondToken, _ := g.heldBy(store.project.ID)

	// Let the first compile finish. Its deferred release carries the expired
	// token and must leave the second compile's gate in place.
	close(firstBlock)
	if err := <-firstDone; err != nil {
		t.Fatalf("first compile failed: %v", err)
	}

	if token, held := g.heldBy(store.project.ID); !held || token != secondToken {
		t.Errorf("second compile's gate was freed by a stale release (held=%v token=%q want %q)", held, token, secondToken)
	}
	if _, err := coord.Compile(context.Background(), store.project.ID); !errors.Is(err, errGateHeld) {
		t.Errorf("third compile should be rejected while the second holds the gate, got %v", err)
	}

	r.mu.Lock()
	r.block = nil
	r.mu.Unlock()
	close(secondBlock)
	if err := <-secondDone; err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if _, held := g.heldBy(store.project.ID); held {
		t.Error("gate must be free after the holder's own release")
	}
}

func TestBuildPlanUsesPresetMusic(t *testing.T) {
	store := testStore(2)
	src := models.MusicSourcePreset
	slug := "upbeat"
	store.project.MusicSource = &src
	store.project.MusicPresetSlug = &slug

	coord := New(store, newFakeGate(), &fakeRenderer{}, nil, testCatalog(t))

	plan, err := coord.BuildPlan(context.Background(), store.project.ID)
	if err != nil {
		t.Fatalf("build plan failed: %v", err)
	}
	if plan.MusicURL != "https://cdn.example.com/upbeat.mp3" {
		t.Errorf("preset track not resolved, got %q", plan.MusicURL)
	}
}

func TestBuildPlanUnknownPresetFails(t *testing.T) {
	store := testStore(2)
	src := models.MusicSourcePreset
	slug := "does-not-exist"
	store.project.MusicSource = &src
	store.project.MusicPresetSlug = &slug

	coord := New(store, newFakeGate(), &fakeRenderer{}, nil, testCatalog(t))

	if _, err := coord.BuildPlan(context.Background(), store.project.ID); err == nil {
		t.Error("expected error for unknown preset slug")
	}
}

func TestCreditCost(t *testing.T) {
	tests := []struct {
		duration float64
		want     int
	}{
		{0, 1},
		{15, 1},
		{30, 1},
		{30.5, 2},
		{60, 2},
		{95, 4},
	}

	for _, tt := range tests {
		if got := creditCost(tt.duration); got != tt.want {
			t.Errorf("creditCost(%g) = %d, want %d", tt.duration, got, tt.want)
		}
	}
}
