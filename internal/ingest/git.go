package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution so tests can fake git.
type CommandExecutor interface {
	// Run executes a command in dir and returns its stdout.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// execRunner executes commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// GitClient runs git commands for the repository loader.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a GitClient backed by os/exec.
func NewGitClient() *GitClient {
	return &GitClient{executor: execRunner{}}
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{executor: executor}
}

// Clone performs a shallow single-branch clone into destDir.
func (g *GitClient) Clone(ctx context.Context, url, destDir string) error {
	_, err := g.executor.Run(ctx, "", "git", "clone",
		"--depth", "1",
		"--single-branch",
		url,
		destDir,
	)
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

// Pull fast-forwards an existing working copy to the remote head.
func (g *GitClient) Pull(ctx context.Context, repoDir string) error {
	_, err := g.executor.Run(ctx, repoDir, "git", "pull", "--ff-only")
	if err != nil {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}
