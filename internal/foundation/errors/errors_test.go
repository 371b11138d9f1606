package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "missing key pages_path").
			WithSeverity(SeverityFatal).
			WithContext("file", "site.yaml").
			Build()

		if err.Category() != CategoryConfig {
			t.Errorf("expected category %s, got %s", CategoryConfig, err.Category())
		}
		if err.Severity() != SeverityFatal {
			t.Errorf("expected severity %s, got %s", SeverityFatal, err.Severity())
		}
		if err.Message() != "missing key pages_path" {
			t.Errorf("unexpected message %q", err.Message())
		}
		file, exists := err.Context().GetString("file")
		if !exists || file != "site.yaml" {
			t.Errorf("expected context file=site.yaml, got %v", file)
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := ConfigError("test error").Build()

		if !IsClassified(err) {
			t.Error("expected error to be classified")
		}
		if !HasCategory(err, CategoryConfig) {
			t.Error("expected error to have config category")
		}
		if err.CanRetry() {
			t.Error("expected config error to not be retryable")
		}
		if !err.IsFatal() {
			t.Error("expected config error to be fatal")
		}
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := TemplateError("template missing").WithContext("template", "special.html").Build()
		wrapped := fmt.Errorf("rendering about.md: %w", inner)

		got, ok := AsClassified(wrapped)
		if !ok {
			t.Fatal("expected classified error in chain")
		}
		if got.Category() != CategoryTemplate {
			t.Errorf("expected template category, got %s", got.Category())
		}
		if IsFatal(wrapped) {
			t.Error("template errors are item-level by default")
		}
	})

	t.Run("Unclassified errors are fatal", func(t *testing.T) {
		if !IsFatal(errors.New("boom")) {
			t.Error("expected unclassified error to be fatal")
		}
		if IsFatal(nil) {
			t.Error("nil is not fatal")
		}
		if GetCategory(errors.New("boom")) != CategoryInternal {
			t.Error("expected internal category for unclassified error")
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := ContentError("bad front matter").Build()
		derived := base.WithContext("path", "pages/a.md")
		if _, ok := base.Context().Get("path"); ok {
			t.Error("original context must not change")
		}
		if p, _ := derived.Context().GetString("path"); p != "pages/a.md" {
			t.Errorf("expected derived path, got %q", p)
		}
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Fluent API", func(t *testing.T) {
		originalErr := errors.New("connection refused")
		err := WrapError(originalErr, CategoryNotify, "publish failed").
			Warning().
			Retryable().
			WithContext("subject", "sitebuilder.builds").
			WithContext("attempt", 2).
			Build()

		if err.Category() != CategoryNotify {
			t.Errorf("expected category %s, got %s", CategoryNotify, err.Category())
		}
		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if err.RetryStrategy() != RetryBackoff {
			t.Errorf("expected retry strategy %s, got %s", RetryBackoff, err.RetryStrategy())
		}
		if !errors.Is(err, originalErr) {
			t.Error("expected error to wrap original error")
		}
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
			retry    RetryStrategy
		}{
			{"ConfigError", ConfigError("test"), CategoryConfig, SeverityFatal, RetryUserAction},
			{"ValidationError", ValidationError("test"), CategoryValidation, SeverityFatal, RetryUserAction},
			{"TemplateError", TemplateError("test"), CategoryTemplate, SeverityError, RetryNever},
			{"ContentError", ContentError("test"), CategoryContent, SeverityError, RetryNever},
			{"CommandError", CommandError("test"), CategoryCommand, SeverityError, RetryNever},
			{"FileSystemError", FileSystemError("test"), CategoryFileSystem, SeverityError, RetryNever},
			{"BuildError", BuildError("test"), CategoryBuild, SeverityFatal, RetryNever},
			{"DeployError", DeployError("test"), CategoryDeploy, SeverityFatal, RetryNever},
			{"NotifyError", NotifyError("test"), CategoryNotify, SeverityWarning, RetryBackoff},
			{"HistoryError", HistoryError("test"), CategoryHistory, SeverityWarning, RetryNever},
			{"RuntimeError", RuntimeError("test"), CategoryRuntime, SeverityFatal, RetryNever},
			{"InternalError", InternalError("test"), CategoryInternal, SeverityFatal, RetryNever},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				if err.Category() != tt.category {
					t.Errorf("expected category %s, got %s", tt.category, err.Category())
				}
				if err.Severity() != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, err.Severity())
				}
				if err.RetryStrategy() != tt.retry {
					t.Errorf("expected retry strategy %s, got %s", tt.retry, err.RetryStrategy())
				}
			})
		}
	})

	t.Run("Fatal promotes item errors", func(t *testing.T) {
		err := CommandError("deploy command failed").Fatal().Build()
		if !err.IsFatal() {
			t.Error("expected promoted command error to be fatal")
		}
	})
}

func TestErrorContext(t *testing.T) {
	t.Run("Nil context set", func(t *testing.T) {
		var ctx ErrorContext
		ctx = ctx.Set("key", "v")
		if v, ok := ctx.GetString("key"); !ok || v != "v" {
			t.Errorf("expected key=v, got %v", v)
		}
	})

	t.Run("Context merge", func(t *testing.T) {
		ctx1 := ErrorContext{"key1": "value1", "shared": "original"}
		ctx2 := ErrorContext{"key2": "value2", "shared": "overridden"}

		merged := ctx1.Merge(ctx2)

		value1, _ := merged.GetString("key1")
		value2, _ := merged.GetString("key2")
		shared, _ := merged.GetString("shared")

		if value1 != "value1" || value2 != "value2" {
			t.Errorf("expected both keys, got %v", merged)
		}
		if shared != "overridden" {
			t.Errorf("expected shared=overridden, got %s", shared)
		}
		if s, _ := ctx1.GetString("shared"); s != "original" {
			t.Error("merge must not mutate the receiver")
		}
	})
}
