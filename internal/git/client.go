package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
	"git.home.luguber.info/inful/sitebuilder/internal/workspace"
)

const remoteName = "origin"

// Client performs the git operations used by init and publish.
type Client struct {
	workspaceBase string
	logger        *slog.Logger
}

// NewClient creates a client that clones into ephemeral directories below
// workspaceBase, the system temp directory when empty.
func NewClient(workspaceBase string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{workspaceBase: workspaceBase, logger: logger}
}

// PublishOptions describes one publish run.
type PublishOptions struct {
	Source      string
	Remote      string
	Branch      string
	Auth        transport.AuthMethod
	AuthorName  string
	AuthorEmail string
	Message     string
	Retry       retry.Policy
	// Now stamps the commit; time.Now when nil.
	Now func() time.Time
}

// PublishResult reports what a publish run did.
type PublishResult struct {
	Commit  string
	Changed bool
}

// InitRepository creates a git repository in dir. It reports false without
// error when dir already holds one.
func (c *Client) InitRepository(dir string) (bool, error) {
	if _, err := git.PlainInit(dir, false); err != nil {
		if stderrors.Is(err, git.ErrRepositoryAlreadyExists) {
			c.logger.Debug("Repository already initialized", logfields.Path(dir))
			return false, nil
		}
		return false, errors.WrapError(err, errors.CategoryFileSystem, "failed to initialize repository").
			Fatal().WithContext("path", dir).Build()
	}
	c.logger.Info("Initialized git repository", logfields.Path(dir))
	return true, nil
}

// Publish commits the contents of opts.Source to opts.Branch on opts.Remote.
// Nothing is committed or pushed when the tree is unchanged.
func (c *Client) Publish(ctx context.Context, opts PublishOptions) (PublishResult, error) {
	if opts.Remote == "" {
		return PublishResult{}, errors.ConfigError("no publish remote configured").
			WithContext("key", "deploy.git.remote").Build()
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if info, err := os.Stat(opts.Source); err != nil || !info.IsDir() {
		return PublishResult{}, errors.DeployError("build directory does not exist, run build first").
			WithContext("path", opts.Source).Build()
	}

	ws := workspace.NewManager(c.workspaceBase, "publish", c.logger)
	if err := ws.Create(); err != nil {
		return PublishResult{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to create publish workspace").Fatal().Build()
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			c.logger.Warn("Failed to remove publish workspace", logfields.Error(err))
		}
	}()

	dir, err := ws.CreateSubdir("repo")
	if err != nil {
		return PublishResult{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to create publish workspace").Fatal().Build()
	}

	repo, err := c.checkout(ctx, dir, opts)
	if err != nil {
		return PublishResult{}, err
	}

	if err := syncTree(opts.Source, dir); err != nil {
		return PublishResult{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to copy build output").
			Fatal().WithContext("path", opts.Source).Build()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return PublishResult{}, ClassifyGitError(err, "worktree", opts.Remote)
	}
	changed, err := stageAll(wt)
	if err != nil {
		return PublishResult{}, ClassifyGitError(err, "add", opts.Remote)
	}
	if !changed {
		c.logger.Info("Published tree unchanged, nothing to push", logfields.URL(opts.Remote), slog.String("branch", opts.Branch))
		return PublishResult{}, nil
	}

	hash, err := wt.Commit(opts.Message, &git.CommitOptions{
		Author: &object.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail, When: opts.Now()},
	})
	if err != nil {
		return PublishResult{}, ClassifyGitError(err, "commit", opts.Remote)
	}

	ref := plumbing.NewBranchReferenceName(opts.Branch)
	spec := gitcfg.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
	err = retry.Do(ctx, opts.Retry, c.logger, "git push", isPermanent, func(ctx context.Context) error {
		err := repo.PushContext(ctx, &git.PushOptions{
			RemoteName: remoteName,
			RefSpecs:   []gitcfg.RefSpec{spec},
			Auth:       opts.Auth,
		})
		if stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return err
	})
	if err != nil {
		return PublishResult{}, ClassifyGitError(err, "push", opts.Remote)
	}

	c.logger.Info("Published site",
		logfields.URL(opts.Remote),
		slog.String("branch", opts.Branch),
		slog.String("commit", hash.String()[:8]))
	return PublishResult{Commit: hash.String(), Changed: true}, nil
}

// checkout clones the publish branch into dir, or starts a new repository
// when the remote is empty or lacks the branch.
func (c *Client) checkout(ctx context.Context, dir string, opts PublishOptions) (*git.Repository, error) {
	ref := plumbing.NewBranchReferenceName(opts.Branch)
	c.logger.Debug("Cloning publish branch", logfields.URL(opts.Remote), slog.String("branch", opts.Branch), logfields.Path(dir))

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           opts.Remote,
		Auth:          opts.Auth,
		ReferenceName: ref,
		SingleBranch:  true,
	})
	if err == nil {
		return repo, nil
	}
	if !missingBranch(err) {
		return nil, ClassifyGitError(err, "clone", opts.Remote)
	}

	c.logger.Info("Publish branch not found, starting new history", logfields.URL(opts.Remote), slog.String("branch", opts.Branch))
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to reset publish workspace").Fatal().Build()
	}
	repo, err = git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: ref},
	})
	if err != nil {
		return nil, ClassifyGitError(err, "init", opts.Remote)
	}
	if _, err := repo.CreateRemote(&gitcfg.RemoteConfig{Name: remoteName, URLs: []string{opts.Remote}}); err != nil {
		return nil, ClassifyGitError(err, "remote", opts.Remote)
	}
	return repo, nil
}

func missingBranch(err error) bool {
	return stderrors.Is(err, transport.ErrEmptyRemoteRepository) ||
		stderrors.Is(err, plumbing.ErrReferenceNotFound) ||
		stderrors.Is(err, git.NoMatchingRefSpecError{})
}

// stageAll stages additions, modifications and deletions. It reports whether
// anything differs from HEAD.
func stageAll(wt *git.Worktree) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	changed := false
	for path, st := range status {
		switch st.Worktree {
		case git.Unmodified:
			if st.Staging != git.Unmodified {
				changed = true
			}
			continue
		case git.Deleted:
			if _, err := wt.Remove(path); err != nil {
				return false, err
			}
		default:
			if _, err := wt.Add(path); err != nil {
				return false, err
			}
		}
		changed = true
	}
	return changed, nil
}

// syncTree replaces everything in dst except .git with a copy of src.
func syncTree(src, dst string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil || rel == "." {
			return err
		}
		if d.IsDir() && d.Name() == git.GitDirName {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
