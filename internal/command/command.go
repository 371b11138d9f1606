// Package command runs the external minifier, compiler and deploy commands.
package command

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Spec is one invocation of a command template.
type Spec struct {
	// Template may contain {source} and {dest} placeholders.
	Template string
	Source   string
	Dest     string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Critical failures are fatal. Non-critical failures are item-level.
	Critical bool
}

// Expand tokenizes the template and substitutes placeholders per argument,
// so paths containing spaces stay one argument.
func Expand(template, source, dest string) ([]string, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(template)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid command template").
			Fatal().WithContext("command", template).Build()
	}
	if len(args) == 0 {
		return nil, errors.ConfigError("empty command template").WithContext("command", template).Build()
	}
	r := strings.NewReplacer("{source}", source, "{dest}", dest)
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	return args, nil
}

// Runner executes commands synchronously.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner that logs through logger.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes spec and waits for it to exit. A non-zero exit or start failure
// yields a command error carrying the command line and its stderr.
func (r *Runner) Run(ctx context.Context, spec Spec) error {
	args, err := Expand(spec.Template, spec.Source, spec.Dest)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = spec.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	line := strings.Join(args, " ")
	r.logger.Debug("Command finished",
		logfields.Command(line),
		logfields.Duration(time.Since(start)))

	if runErr == nil {
		return nil
	}

	b := errors.WrapError(runErr, errors.CategoryCommand, "external command failed").
		WithContext("command", line)
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		b = b.WithContext("stderr", msg)
	}
	if spec.Source != "" {
		b = b.WithContext("path", spec.Source)
	}
	if spec.Critical {
		b = b.Fatal()
	}
	return b.Build()
}
