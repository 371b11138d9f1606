package build

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// StageOutcome normalized result of stage execution.
type StageOutcome struct {
	Stage  StageName
	Error  *StageError
	Result StageResult
	Reason string
	Abort  bool
}

// resultFromStageErrorKind maps a StageErrorKind to a StageResult.
func resultFromStageErrorKind(k StageErrorKind) StageResult {
	switch k {
	case StageErrorWarning:
		return StageResultWarning
	case StageErrorCanceled:
		return StageResultCanceled
	case StageErrorFatal:
		return StageResultFatal
	default:
		return StageResultFatal
	}
}

// ClassifyStageResult converts a raw error from a stage into a StageOutcome.
func ClassifyStageResult(stage StageName, err error) StageOutcome {
	if err == nil {
		return StageOutcome{Stage: stage, Result: StageResultSuccess}
	}

	var sk skipped
	if errors.As(err, &sk) {
		return StageOutcome{Stage: stage, Result: StageResultSkipped, Reason: sk.reason}
	}

	var se *StageError
	if !errors.As(err, &se) {
		// Not a StageError - treat as fatal
		se = NewFatalStageError(stage, err)
	}

	return StageOutcome{
		Stage:  stage,
		Error:  se,
		Result: resultFromStageErrorKind(se.Kind),
		Abort:  se.Kind == StageErrorFatal || se.Kind == StageErrorCanceled,
	}
}

// RunStages executes stages in order, recording timing and stopping on first fatal error.
func RunStages(ctx context.Context, st *State, stages []StageDef) error {
	for _, def := range stages {
		select {
		case <-ctx.Done():
			se := NewCanceledStageError(def.Name, ctx.Err())
			st.Report.StageErrorKinds[def.Name] = se.Kind
			st.Report.Errors = append(st.Report.Errors, se)
			st.Report.AddIssue(def.Name, SeverityError, se.Error())
			st.Report.RecordStageResult(def.Name, StageResultCanceled, st.Recorder)
			return se
		default:
		}

		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)

		st.Report.StageDurations[def.Name] = dur
		st.Recorder.ObserveStageDuration(string(def.Name), dur)

		out := ClassifyStageResult(def.Name, err)
		record(st, out)
		st.Report.RecordStageResult(def.Name, out.Result, st.Recorder)

		st.Logger.Debug("Stage finished",
			logfields.Step(string(def.Name)),
			logfields.Outcome(string(out.Result)),
			logfields.Duration(dur))

		if out.Abort {
			if out.Error != nil {
				return out.Error
			}
			return fmt.Errorf("stage %s aborted", def.Name)
		}
	}
	return nil
}

// record mirrors a stage outcome into the report. Joined item errors of a
// warning become one issue each.
func record(st *State, out StageOutcome) {
	switch out.Result {
	case StageResultSkipped:
		st.Logger.Info("Stage skipped", logfields.Step(string(out.Stage)), "reason", out.Reason)
		return
	case StageResultSuccess:
		return
	case StageResultWarning, StageResultFatal, StageResultCanceled:
	}

	se := out.Error
	st.Report.StageErrorKinds[out.Stage] = se.Kind
	if se.Kind != StageErrorWarning {
		st.Report.Errors = append(st.Report.Errors, se)
		st.Report.AddIssue(out.Stage, SeverityError, se.Err.Error())
		return
	}

	st.Report.Warnings = append(st.Report.Warnings, se)
	if joined, ok := se.Err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			st.Report.AddIssue(out.Stage, SeverityWarning, e.Error())
		}
		return
	}
	st.Report.AddIssue(out.Stage, SeverityWarning, se.Err.Error())
}
