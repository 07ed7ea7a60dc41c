package composition

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Build error taxonomy. Every build failure is a *BuildError so callers can
// map it to a user-actionable message (which scene, which setting) without
// string matching. Submission failures after a valid build are a separate,
// retryable class — the plan itself stays valid and can be resubmitted.
// ---------------------------------------------------------------------------

type BuildErrorCode string

const (
	ErrCodeEmptyProject      BuildErrorCode = "empty_project"
	ErrCodeMissingSceneAsset BuildErrorCode = "missing_scene_asset"
	ErrCodeInvalidDuration   BuildErrorCode = "invalid_duration"
	ErrCodeInvalidSettings   BuildErrorCode = "invalid_settings"
)

// BuildError is a structural problem that prevents a Composition Plan from
// being built. SceneNumber is set only for missing_scene_asset; Field only
// for invalid_settings.
type BuildError struct {
	Code        BuildErrorCode
	SceneNumber int
	Field       string
	Detail      string
}

func (e *BuildError) Error() string {
	switch e.Code {
	case ErrCodeMissingSceneAsset:
		return fmt.Sprintf("scene %d has no resolvable visual asset", e.SceneNumber)
	case ErrCodeInvalidSettings:
		return fmt.Sprintf("invalid setting %s: %s", e.Field, e.Detail)
	default:
		return e.Detail
	}
}

func errEmptyProject() *BuildError {
	return &BuildError{Code: ErrCodeEmptyProject, Detail: "project has no scenes"}
}

func errMissingSceneAsset(sceneNumber int) *BuildError {
	return &BuildError{Code: ErrCodeMissingSceneAsset, SceneNumber: sceneNumber}
}

func errInvalidDuration(d float64) *BuildError {
	return &BuildError{
		Code:   ErrCodeInvalidDuration,
		Detail: fmt.Sprintf("target duration must be positive, got %g", d),
	}
}

func errInvalidSettings(field, detail string) *BuildError {
	return &BuildError{Code: ErrCodeInvalidSettings, Field: field, Detail: detail}
}

// AsBuildError unwraps err into a *BuildError if it is one.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// SubmissionError wraps a failure that happened after a valid plan was built
// (renderer call, final video persistence). It is the only retryable class:
// the caller may resubmit the same plan without rebuilding.
type SubmissionError struct {
	Op  string // "render", "persist"
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed during %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// NewSubmissionError tags err as a retryable post-build failure.
func NewSubmissionError(op string, err error) *SubmissionError {
	return &SubmissionError{Op: op, Err: err}
}

// IsRetryable reports whether err is a submission failure that the caller
// may retry without fixing upstream data.
func IsRetryable(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
