package build

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/command"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// CommandRunner executes external minifier and compiler commands.
type CommandRunner interface {
	Run(ctx context.Context, spec command.Spec) error
}

// State carries everything stages share during one build.
type State struct {
	Config    *config.Config
	Paths     config.Paths
	Index     *source.Index
	Templates *templates.Renderer
	Markdown  *markdown.Converter
	Commands  CommandRunner
	Logger    *slog.Logger
	Recorder  metrics.Recorder
	Report    *Report

	helpers templates.Helpers

	mu       sync.Mutex
	rendered map[*source.File]*markdown.Rendered
	outputs  map[string]*source.File

	tocOnce sync.Once
	toc     *IndexData
}

func newState(cfg *config.Config, idx *source.Index, opts Options, report *Report) *State {
	st := &State{
		Config:   cfg,
		Paths:    cfg.Paths(),
		Index:    idx,
		Markdown: opts.Markdown,
		Commands: opts.Commands,
		Logger:   opts.Logger,
		Recorder: opts.Recorder,
		Report:   report,
		rendered: make(map[*source.File]*markdown.Rendered),
		outputs:  make(map[string]*source.File),
	}
	st.helpers = templates.Helpers{
		SiteURL: cfg.Site.URL,
		Image: func(id int) (string, bool) {
			img, ok := idx.Images().Get(id)
			if !ok {
				return "", false
			}
			return img.URL(), true
		},
	}
	return st
}

// out maps a slash-separated destination path into the build directory.
func (st *State) out(rel string) string {
	return filepath.Join(st.Paths.Build, filepath.FromSlash(rel))
}

// claim registers f as the writer of dest and returns the previous writer.
func (st *State) claim(dest string, f *source.File) *source.File {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.outputs[dest]
	st.outputs[dest] = f
	return prev
}

// convert renders a page or post body once per build.
func (st *State) convert(f *source.File) (*markdown.Rendered, error) {
	st.mu.Lock()
	r, ok := st.rendered[f]
	st.mu.Unlock()
	if ok {
		return r, nil
	}
	r, err := st.Markdown.Convert([]byte(f.Body()))
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.rendered[f] = r
	st.mu.Unlock()
	return r, nil
}

// tableOfContents builds the index data once per build.
func (st *State) tableOfContents() *IndexData {
	st.tocOnce.Do(func() { st.toc = st.indexData() })
	return st.toc
}

// items records per-item counts for stage.
func (st *State) items(stage StageName, written, failed int) {
	st.Report.addItems(stage, written, failed)
	st.Recorder.AddStageItems(string(stage), written, failed)
}

func (st *State) commandDone(d time.Duration, err error) {
	st.Recorder.ObserveCommandDuration(d, err == nil)
}
