package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("unknown command").Build(), 2},
		{"config", ConfigError("missing pages_path").Build(), 7},
		{"command", CommandError("minifier failed").Build(), 8},
		{"deploy", DeployError("rsync failed").Build(), 8},
		{"internal", InternalError("nil index").Build(), 10},
		{"build", BuildError("default template missing").Build(), 11},
		{"template", TemplateError("parse failed").Build(), 11},
		{"runtime", RuntimeError("watcher failed").Build(), 12},
		{"unclassified", errors.New("unknown error"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	require.Empty(t, adapter.FormatError(nil))
	require.Equal(t, "Internal error occurred (use -v for details)",
		adapter.FormatError(InternalError("internal issue").Build()))
	require.Equal(t, "Error: missing key (site.yaml)",
		adapter.FormatError(ConfigError("missing key").WithContext("path", "site.yaml").Build()))
	require.Equal(t, "Error: unknown error", adapter.FormatError(errors.New("unknown error")))

	verbose := NewCLIErrorAdapter(true, nil)
	require.Equal(t, "[internal:fatal] internal issue",
		verbose.FormatError(InternalError("internal issue").Build()))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	adapter := NewCLIErrorAdapter(false, logger)
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(BuildError("default template missing").WithContext("template", "default.html").Build())

	require.Equal(t, 11, code)
	require.Contains(t, out.String(), "default template missing")
	require.Contains(t, logs.String(), "category=build")
	require.Contains(t, logs.String(), "template=default.html")
}
