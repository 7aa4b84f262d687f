// Package gitops wraps the git command line for repository operations.
package gitops

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client is the version-control contract agents depend on.
type Client interface {
	// EnsureRepo opens the repository at path, cloning url first if the
	// path does not contain one. Returns the working directory.
	EnsureRepo(ctx context.Context, url, path string) (string, error)

	// CreateBranch creates and checks out a branch.
	CreateBranch(ctx context.Context, dir, name string) error

	// Checkout switches to an existing branch.
	Checkout(ctx context.Context, dir, name string) error

	// CommitAll stages everything and commits with the message. A clean
	// tree is not an error; it reports committed=false.
	CommitAll(ctx context.Context, dir, message string) (bool, error)

	// Push pushes the named branch to origin.
	Push(ctx context.Context, dir, branch string) error

	// Pull fast-forwards the current branch from origin.
	Pull(ctx context.Context, dir string) error
}

// ExecClient runs git as a subprocess.
type ExecClient struct {
	userName  string
	userEmail string
}

// NewExecClient creates a client committing under the given identity.
func NewExecClient(userName, userEmail string) *ExecClient {
	return &ExecClient{userName: userName, userEmail: userEmail}
}

func (c *ExecClient) git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+c.userName,
		"GIT_AUTHOR_EMAIL="+c.userEmail,
		"GIT_COMMITTER_NAME="+c.userName,
		"GIT_COMMITTER_EMAIL="+c.userEmail,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (c *ExecClient) EnsureRepo(ctx context.Context, url, path string) (string, error) {
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create workspace dir: %w", err)
	}
	if _, err := c.git(ctx, "", "clone", url, path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *ExecClient) CreateBranch(ctx context.Context, dir, name string) error {
	_, err := c.git(ctx, dir, "checkout", "-b", name)
	return err
}

func (c *ExecClient) Checkout(ctx context.Context, dir, name string) error {
	_, err := c.git(ctx, dir, "checkout", name)
	return err
}

func (c *ExecClient) CommitAll(ctx context.Context, dir, message string) (bool, error) {
	if _, err := c.git(ctx, dir, "add", "-A"); err != nil {
		return false, err
	}

	status, err := c.git(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(status) == "" {
		return false, nil
	}

	if _, err := c.git(ctx, dir, "commit", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ExecClient) Push(ctx context.Context, dir, branch string) error {
	_, err := c.git(ctx, dir, "push", "-u", "origin", branch)
	return err
}

func (c *ExecClient) Pull(ctx context.Context, dir string) error {
	_, err := c.git(ctx, dir, "pull", "--ff-only")
	return err
}
