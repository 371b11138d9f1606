package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Outcome is the typed enumeration of final build result states.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueSeverity grades a report issue.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one discrete problem encountered during a build.
type Issue struct {
	Stage    StageName     `json:"stage"`
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// ItemCount aggregates per-item results of a stage.
type ItemCount struct {
	Written int `json:"written"`
	Failed  int `json:"failed"`
}

// Report captures what happened during one build.
type Report struct {
	ID      string
	Version string
	Start   time.Time
	End     time.Time

	Assets int
	Pages  int
	Posts  int
	Images int

	Errors   []error // fatal errors causing build abortion (at most one)
	Warnings []error // stage-level warnings; individual items are in Issues

	StageDurations  map[StageName]time.Duration
	StageResults    map[StageName]StageResult
	StageErrorKinds map[StageName]StageErrorKind
	Items           map[StageName]ItemCount
	Issues          []Issue

	// ChangedPages is the number of pages and posts whose fingerprint differs
	// from the previous recorded build. -1 when history is disabled.
	ChangedPages int
	Outcome      Outcome
}

func newReport(id, version string) *Report {
	return &Report{
		ID:              id,
		Version:         version,
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageResults:    make(map[StageName]StageResult),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		Items:           make(map[StageName]ItemCount),
		ChangedPages:    -1,
	}
}

// AddIssue appends a structured issue.
func (r *Report) AddIssue(stage StageName, severity IssueSeverity, msg string) {
	r.Issues = append(r.Issues, Issue{Stage: stage, Severity: severity, Message: msg})
}

// addItems accumulates item counts for stage.
func (r *Report) addItems(stage StageName, written, failed int) {
	c := r.Items[stage]
	c.Written += written
	c.Failed += failed
	r.Items[stage] = c
}

// Finish sets the end time of the report.
func (r *Report) Finish() { r.End = time.Now() }

// RecordStageResult stores the stage result and emits metrics (if recorder non-nil).
func (r *Report) RecordStageResult(stage StageName, res StageResult, recorder metrics.Recorder) {
	r.StageResults[stage] = res
	if recorder == nil {
		return
	}
	switch res {
	case StageResultSuccess:
		recorder.IncStageResult(string(stage), metrics.ResultSuccess)
	case StageResultWarning:
		recorder.IncStageResult(string(stage), metrics.ResultWarning)
	case StageResultFatal:
		recorder.IncStageResult(string(stage), metrics.ResultFatal)
	case StageResultCanceled:
		recorder.IncStageResult(string(stage), metrics.ResultCanceled)
	case StageResultSkipped:
		recorder.IncStageResult(string(stage), metrics.ResultSkipped)
	}
}

// Written returns the number of items stage wrote.
func (r *Report) Written(stage StageName) int { return r.Items[stage].Written }

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("assets=%d pages=%d posts=%d images=%d duration=%s errors=%d warnings=%d issues=%d stages=%d outcome=%s",
		r.Assets, r.Pages, r.Posts, r.Images, dur.Truncate(time.Millisecond),
		len(r.Errors), len(r.Warnings), len(r.Issues), len(r.StageDurations), string(r.Outcome))
}

// DeriveOutcome sets the Outcome field based on recorded errors/warnings.
func (r *Report) DeriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			var se *StageError
			if errors.As(e, &se) && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// ReportFile is the name Persist writes.
const ReportFile = "build-report.json"

// Persist writes the report atomically into the provided root directory.
func (r *Report) Persist(root string) error {
	if r.End.IsZero() {
		r.Finish()
		r.DeriveOutcome()
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure root for report: %w", err)
	}
	jb, err := json.MarshalIndent(r.Serializable(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	jsonPath := filepath.Join(root, ReportFile)
	tmp := jsonPath + ".tmp"
	if err := os.WriteFile(tmp, jb, 0o600); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, jsonPath); err != nil {
		return fmt.Errorf("atomic rename json: %w", err)
	}
	return nil
}

// SerializableReport is the JSON form of a Report.
type SerializableReport struct {
	ID             string               `json:"id"`
	Version        string               `json:"version"`
	Start          time.Time            `json:"start"`
	End            time.Time            `json:"end"`
	Assets         int                  `json:"assets"`
	Pages          int                  `json:"pages"`
	Posts          int                  `json:"posts"`
	Images         int                  `json:"images"`
	Errors         []string             `json:"errors"`
	Warnings       []string             `json:"warnings"`
	StageDurations map[string]int64     `json:"stage_durations_ms"`
	StageResults   map[string]string    `json:"stage_results"`
	Items          map[string]ItemCount `json:"items"`
	Issues         []Issue              `json:"issues"`
	ChangedPages   int                  `json:"changed_pages"`
	Outcome        string               `json:"outcome"`
}

// Serializable converts error fields to strings for JSON.
func (r *Report) Serializable() *SerializableReport {
	s := &SerializableReport{
		ID:             r.ID,
		Version:        r.Version,
		Start:          r.Start,
		End:            r.End,
		Assets:         r.Assets,
		Pages:          r.Pages,
		Posts:          r.Posts,
		Images:         r.Images,
		Errors:         make([]string, len(r.Errors)),
		Warnings:       make([]string, len(r.Warnings)),
		StageDurations: make(map[string]int64, len(r.StageDurations)),
		StageResults:   make(map[string]string, len(r.StageResults)),
		Items:          make(map[string]ItemCount, len(r.Items)),
		Issues:         r.Issues,
		ChangedPages:   r.ChangedPages,
		Outcome:        string(r.Outcome),
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	for k, v := range r.StageDurations {
		s.StageDurations[string(k)] = v.Milliseconds()
	}
	for k, v := range r.StageResults {
		s.StageResults[string(k)] = string(v)
	}
	for k, v := range r.Items {
		s.Items[string(k)] = v
	}
	if s.Issues == nil {
		s.Issues = []Issue{}
	}
	return s
}
