package build

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, st *State) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in pipeline order.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageLoadTemplates StageName = "load_templates"
	StageCSS           StageName = "css"
	StageJS            StageName = "js"
	StageLess          StageName = "less"
	StageRobots        StageName = "robots"
	StageHumans        StageName = "humans"
	StageStatic        StageName = "static"
	StagePages         StageName = "pages"
	StagePosts         StageName = "posts"
	StageArchive       StageName = "archive"
	StageTags          StageName = "tags"
	StageAtom          StageName = "atom"
	StageSitemap       StageName = "sitemap"
	StageImages        StageName = "images"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// NewFatalStageError wraps err as a fatal error of stage.
func NewFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

// NewWarnStageError wraps err as a warning of stage.
func NewWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}

// NewCanceledStageError wraps err as a cancellation of stage.
func NewCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// itemErrors collects per-item failures of one stage. A stage that saw any
// returns them joined as a single warning.
type itemErrors struct {
	stage StageName
	errs  []error
}

func (ie *itemErrors) add(err error) { ie.errs = append(ie.errs, err) }

func (ie *itemErrors) result() error {
	if len(ie.errs) == 0 {
		return nil
	}
	return NewWarnStageError(ie.stage, stderrors.Join(ie.errs...))
}

// skipped is returned by a stage that had nothing to do.
type skipped struct{ reason string }

func (s skipped) Error() string { return "skipped: " + s.reason }

func skip(reason string) error { return skipped{reason: reason} }

// StageResult is the classified outcome of one stage run.
type StageResult string

const (
	StageResultSuccess  StageResult = "success"
	StageResultWarning  StageResult = "warning"
	StageResultFatal    StageResult = "fatal"
	StageResultCanceled StageResult = "canceled"
	StageResultSkipped  StageResult = "skipped"
)

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for an ordered list of stages.
type Pipeline struct {
	stages []StageDef
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Add appends a stage.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.stages = append(p.stages, StageDef{Name: name, Fn: fn})
	return p
}

// Build returns a copy of the configured stages.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.stages))
	copy(out, p.stages)
	return out
}

// DefaultPipeline returns the full site build in its fixed order.
func DefaultPipeline() *Pipeline {
	return NewPipeline().
		Add(StagePrepareOutput, stagePrepareOutput).
		Add(StageLoadTemplates, stageLoadTemplates).
		Add(StageCSS, stageCSS).
		Add(StageJS, stageJS).
		Add(StageLess, stageLess).
		Add(StageRobots, namedFileStage(StageRobots, "robots.txt")).
		Add(StageHumans, namedFileStage(StageHumans, "humans.txt")).
		Add(StageStatic, stageStatic).
		Add(StagePages, stagePages).
		Add(StagePosts, stagePosts).
		Add(StageArchive, stageArchive).
		Add(StageTags, stageTags).
		Add(StageAtom, stageAtom).
		Add(StageSitemap, stageSitemap).
		Add(StageImages, stageImages)
}
