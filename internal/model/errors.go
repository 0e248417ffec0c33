package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrSourceUnavailable means every configured board failed in a single
// fetch. Fatal to the run; no state is mutated.
var ErrSourceUnavailable = errors.New("all job boards unavailable")

// GenerationError wraps a failed or empty LLM generation. Per-job: the job
// is skipped and retried on the next run.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Compilation stages, used in CompilationError and run summaries.
const (
	StageResumeEdit         = "resume-edit"
	StageResumeCompile      = "resume-compile"
	StageCoverLetterFill    = "cover-letter-fill"
	StageCoverLetterCompile = "cover-letter-compile"
)

// Failure stages outside compilation, used in run summaries.
const (
	StageGeneration = "generation"
	StageTracking   = "tracking"
	StageUnknown    = "unknown"
)

// FailureStage classifies a per-job error by the stage that produced it, so
// run summaries can count failures per stage.
func FailureStage(err error) string {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return StageGeneration
	}
	var cerr *CompilationError
	if errors.As(err, &cerr) {
		return cerr.Stage
	}
	var terr *TrackingError
	if errors.As(err, &terr) {
		return StageTracking
	}
	return StageUnknown
}

// CompilationError reports which artifact stage failed and why.
type CompilationError struct {
	Stage  string // one of the Stage* constants
	Detail string // compiler stderr tail or similar
	Err    error
}

func (e *CompilationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("compilation failed at %s: %v: %s", e.Stage, e.Err, e.Detail)
	}
	return fmt.Sprintf("compilation failed at %s: %v", e.Stage, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Tracking targets for TrackingError.
const (
	TargetLocal  = "local"
	TargetRemote = "remote"
)

// TrackingError reports a failed write to one of the two tracking stores.
// A local failure skips the job; a remote failure is non-fatal because the
// authoritative local record already exists.
type TrackingError struct {
	Target string // local or remote
	Err    error
}

func (e *TrackingError) Error() string {
	return fmt.Sprintf("tracking write to %s failed: %v", e.Target, e.Err)
}

func (e *TrackingError) Unwrap() error { return e.Err }

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
