package git

import (
	stderrors "errors"
	"net"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ClassifyGitError translates go-git errors into deploy-scoped ClassifiedErrors.
func ClassifyGitError(err error, op string, url string) error {
	if err == nil {
		return nil
	}

	// Already classified
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	l := strings.ToLower(err.Error())

	builder := errors.WrapError(err, errors.CategoryDeploy, "git "+op+" failed").
		Fatal().
		WithContext("op", op).
		WithContext("url", url)

	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") || strings.Contains(l, "not authorized") || strings.Contains(l, "invalid credentials"):
		builder.UserAction().WithContext("reason", "auth")
	case strings.Contains(l, "repository not found") || strings.Contains(l, "does not exist"):
		builder.UserAction().WithContext("reason", "not_found")
	case strings.Contains(l, "non-fast-forward") || strings.Contains(l, "fast-forward"):
		builder.WithContext("reason", "diverged")
	case isTransient(err):
		builder.Retryable().WithContext("reason", "network")
	}

	return builder.Build()
}

// isPermanent reports errors that retrying a push cannot fix.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	if isTransient(err) {
		return false
	}
	if ce, ok := errors.AsClassified(err); ok {
		return !ce.CanRetry()
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"auth", "permission", "denied", "not found", "no such remote", "invalid reference", "unsupported protocol", "fast-forward"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	var nerr net.Error
	if stderrors.As(err, &nerr) {
		return nerr.Timeout()
	}
	l := strings.ToLower(err.Error())
	for _, s := range []string{"remote hung up", "connection reset", "timeout", "no route to host", "connection refused", "too many requests"} {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}
