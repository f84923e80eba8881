package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorebot/lore/internal/log"
)

func TestIncludeFile(t *testing.T) {
	tests := []struct {
		name    string
		relPath string
		size    int64
		want    bool
	}{
		{"python source", "src/app.py", 1024, true},
		{"markdown", "README.md", 1024, true},
		{"go source", "internal/server.go", 1024, true},
		{"png image", "assets/logo.png", 1024, false},
		{"jpg image", "assets/photo.jpg", 1024, false},
		{"no extension", "Makefile", 1024, false},
		{"allowed extension under excluded dir", "node_modules/x.js", 1024, false},
		{"nested excluded dir", "web/node_modules/lib/index.js", 1024, false},
		{"vcs metadata", ".git/config", 100, false},
		{"exactly at ceiling", "big.md", MaxFileSize, true},
		{"over ceiling", "big.md", MaxFileSize + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IncludeFile(tt.relPath, tt.size))
		})
	}
}

func TestRepoName(t *testing.T) {
	assert.Equal(t, "project", RepoName("https://github.com/example/project"))
	assert.Equal(t, "project", RepoName("https://github.com/example/project.git"))
	assert.Equal(t, "project", RepoName("https://github.com/example/project/"))
}

// recordingExecutor fakes git and records invocations.
type recordingExecutor struct {
	calls [][]string
	err   error
}

func (r *recordingExecutor) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{dir, name}, args...))
	return nil, r.err
}

func TestRepoLoader_Load(t *testing.T) {
	reposDir := t.TempDir()
	repoDir := filepath.Join(reposDir, "project")

	// Pre-seed a working copy so the loader takes the pull path and the
	// fake executor never has to materialize files.
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, ".git"), 0o750))
	writeFile(t, repoDir, "main.go", "package main\n")
	writeFile(t, repoDir, "docs/guide.md", "# Guide\n\nSome text.\n")
	writeFile(t, repoDir, "node_modules/x.js", "module.exports = {}\n")
	writeFile(t, repoDir, "logo.png", "not really a png")
	writeFile(t, repoDir, "empty.md", "   \n\t\n")
	writeFile(t, repoDir, "huge.md", strings.Repeat("a", MaxFileSize+1))

	exec := &recordingExecutor{}
	loader := NewRepoLoader(NewGitClientWithExecutor(exec), reposDir, log.NewNop())

	docs, err := loader.Load(context.Background(), "https://github.com/example/project")
	require.NoError(t, err)

	// Only main.go and docs/guide.md survive the predicate.
	require.Len(t, docs, 2)

	paths := make(map[string]Document, len(docs))
	for _, d := range docs {
		paths[d.SourcePath] = d
	}
	require.Contains(t, paths, "project/main.go")
	require.Contains(t, paths, "project/docs/guide.md")

	for _, d := range docs {
		assert.Equal(t, SourceCode, d.SourceType)
		assert.Equal(t, "https://github.com/example/project", d.RepoURL)
		assert.NotEmpty(t, d.Text)
	}

	// Existing working copy must be updated, not re-cloned.
	require.Len(t, exec.calls, 1)
	assert.Equal(t, []string{repoDir, "git", "pull", "--ff-only"}, exec.calls[0])
}

func TestRepoLoader_ClonesWhenAbsent(t *testing.T) {
	reposDir := t.TempDir()
	exec := &recordingExecutor{}
	loader := NewRepoLoader(NewGitClientWithExecutor(exec), reposDir, log.NewNop())

	// The fake clone creates nothing, so the walk fails; the clone
	// invocation is what matters here.
	_, _ = loader.Load(context.Background(), "https://github.com/example/project")

	require.Len(t, exec.calls, 1)
	call := exec.calls[0]
	assert.Equal(t, "git", call[1])
	assert.Equal(t, "clone", call[2])
	assert.Contains(t, call, "https://github.com/example/project")
	assert.Contains(t, call, filepath.Join(reposDir, "project"))
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
