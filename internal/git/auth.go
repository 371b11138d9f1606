package git

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Auth returns the transport credentials configured for publishing. An SSH key
// takes precedence over a token; nil means anonymous access.
func Auth(cfg config.GitConfig) (transport.AuthMethod, error) {
	switch {
	case cfg.KeyPath != "":
		keys, err := ssh.NewPublicKeysFromFile("git", cfg.KeyPath, "")
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryDeploy, "failed to load SSH key").
				Fatal().UserAction().WithContext("path", cfg.KeyPath).Build()
		}
		return keys, nil
	case cfg.Token != "":
		return &http.BasicAuth{Username: "token", Password: cfg.Token}, nil
	}
	return nil, nil
}
