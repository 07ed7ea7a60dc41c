package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/adreel/composer/internal/compile"
	"github.com/adreel/composer/internal/composition"
	"github.com/adreel/composer/internal/config"
	"github.com/adreel/composer/internal/db"
	"github.com/adreel/composer/internal/gate"
	"github.com/adreel/composer/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// downloadURLTTLSeconds bounds how long a final video download link stays
// valid.
const downloadURLTTLSeconds = 3600

// URLSigner exchanges a stored video URL for a time-limited download link.
type URLSigner interface {
	SignedDownloadURL(ctx context.Context, rawURL string, expiresIn int) (string, error)
}

// StatusGate exposes whether a compile currently holds a project's gate.
type StatusGate interface {
	InFlight(ctx context.Context, projectID uuid.UUID) (bool, error)
}

type Handler struct {
	db      *db.DB
	coord   *compile.Coordinator
	catalog *config.MusicCatalog
	signer  URLSigner  // nil = raw URLs are served as-is
	gate    StatusGate // nil = status endpoint reports not in flight
}

func NewHandler(database *db.DB, coord *compile.Coordinator, catalog *config.MusicCatalog, signer URLSigner, g StatusGate) *Handler {
	return &Handler{
		db:      database,
		coord:   coord,
		catalog: catalog,
		signer:  signer,
		gate:    g,
	}
}

// Compile handles POST /v1/projects/{id}/compile.
//
// Runs the full compile synchronously: build, render, persist. A second
// request while one is in flight gets 409; build errors get 422 with the
// offending scene/setting so the client can fix upstream data.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	video, err := h.coord.Compile(r.Context(), projectID)
	if err != nil {
		respondCompileError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, models.CompileResponse{
		ProjectID:  projectID,
		FinalVideo: video,
	})
}

// GetPlan handles GET /v1/projects/{id}/plan — the dry-run path. Builds and
// returns the Composition Plan without touching the renderer or the gate.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	plan, err := h.coord.BuildPlan(r.Context(), projectID)
	if err != nil {
		respondCompileError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// GetProject handles GET /v1/projects/{id}
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	project, err := h.db.GetProject(r.Context(), projectID)
	if err != nil {
		respondStoreError(w, err, "Project not found")
		return
	}

	scenes, err := h.db.GetProjectScenes(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get scenes")
		return
	}

	captions, err := h.db.GetCaptionSettings(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get caption settings")
		return
	}

	response := models.ProjectResponse{
		Project:  *project,
		Scenes:   scenes,
		Captions: captions,
	}

	if project.FinalVideoID != nil {
		if video, err := h.db.GetFinalVideo(r.Context(), *project.FinalVideoID); err == nil {
			response.FinalVideo = video
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// GetProjectVideo handles GET /v1/projects/{id}/video. The response carries
// a signed, time-limited download link next to the stored URL.
func (h *Handler) GetProjectVideo(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	video, err := h.db.GetLatestFinalVideo(r.Context(), projectID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get final video")
		return
	}
	if video == nil {
		respondError(w, http.StatusNotFound, "Video not compiled yet")
		return
	}

	response := models.VideoResponse{FinalVideo: *video}
	if h.signer != nil {
		signed, err := h.signer.SignedDownloadURL(r.Context(), video.URL, downloadURLTTLSeconds)
		if err != nil {
			// The stored URL still works; the signed link is a convenience.
			log.Printf("[API] failed to sign download URL for project %s: %v", projectID, err)
		} else {
			response.DownloadURL = signed
		}
	}

	respondJSON(w, http.StatusOK, response)
}

// CompileStatus handles GET /v1/projects/{id}/compile — reports whether a
// compile currently holds the project's gate, so clients can poll instead
// of probing with POSTs that get 409s.
func (h *Handler) CompileStatus(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid project ID")
		return
	}

	inFlight := false
	if h.gate != nil {
		inFlight, err = h.gate.InFlight(r.Context(), projectID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to check compile status")
			return
		}
	}

	respondJSON(w, http.StatusOK, models.CompileStatusResponse{
		ProjectID: projectID,
		InFlight:  inFlight,
	})
}

// ListMusicPresets handles GET /v1/music/presets
func (h *Handler) ListMusicPresets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"presets": h.catalog.Presets(),
	})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondCompileError maps engine errors onto HTTP statuses:
// in-flight rejection → 409, build errors → 422, submission failures → 502.
func respondCompileError(w http.ResponseWriter, err error) {
	if errors.Is(err, gate.ErrCompileInFlight) {
		respondError(w, http.StatusConflict, err.Error())
		return
	}

	if be, ok := composition.AsBuildError(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":        be.Error(),
			"code":         be.Code,
			"scene_number": be.SceneNumber,
			"field":        be.Field,
		})
		return
	}

	if composition.IsRetryable(err) {
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":     err.Error(),
			"retryable": true,
		})
		return
	}

	respondError(w, http.StatusInternalServerError, err.Error())
}

// respondStoreError maps store lookup failures: a missing row is the
// client's 404, anything else is a server-side 500.
func respondStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
