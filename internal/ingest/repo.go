package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lorebot/lore/internal/log"
)

// includeExtensions is the allow-list of text and source extensions worth
// embedding. Everything else is treated as binary or generated content.
var includeExtensions = map[string]bool{
	".py": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".md": true, ".rst": true, ".txt": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
	".html": true, ".css": true, ".scss": true,
	".sql": true, ".sh": true, ".bash": true,
	".go": true, ".rs": true, ".java": true, ".kt": true,
}

// excludeDirs are pruned before descent: version-control metadata,
// dependency caches, build output, and virtual environments.
var excludeDirs = map[string]bool{
	"node_modules": true, "vendor": true, "dist": true, "build": true,
	".git": true, ".github": true, "__pycache__": true, ".pytest_cache": true,
	"venv": true, ".venv": true, "env": true, ".env": true,
	"coverage": true, ".coverage": true, "htmlcov": true,
}

// MaxFileSize is the per-file ceiling. Larger files are almost always
// generated or binary-like blobs that dilute retrieval quality.
const MaxFileSize = 100 * 1024

// IncludeFile reports whether a repository file should be indexed.
// relPath is relative to the repository root with forward slashes.
func IncludeFile(relPath string, size int64) bool {
	ext := strings.ToLower(filepath.Ext(relPath))
	if !includeExtensions[ext] {
		return false
	}

	if size > MaxFileSize {
		return false
	}

	for part := range strings.SplitSeq(filepath.ToSlash(relPath), "/") {
		if excludeDirs[part] {
			return false
		}
	}

	return true
}

// RepoLoader loads source files from a git repository as code Documents.
type RepoLoader struct {
	git      *GitClient
	reposDir string
	logger   log.Logger
}

// NewRepoLoader creates a RepoLoader that keeps working copies under reposDir.
func NewRepoLoader(git *GitClient, reposDir string, logger log.Logger) *RepoLoader {
	return &RepoLoader{git: git, reposDir: reposDir, logger: logger}
}

// RepoName derives the working-copy directory name from a repository URL.
func RepoName(repoURL string) string {
	name := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Load obtains a local working copy of repoURL (clone if absent,
// fast-forward pull if present) and returns one Document per file that
// passes the inclusion predicate.
func (l *RepoLoader) Load(ctx context.Context, repoURL string) ([]Document, error) {
	name := RepoName(repoURL)
	if name == "" {
		return nil, fmt.Errorf("cannot derive repository name from %q", repoURL)
	}
	dest := filepath.Join(l.reposDir, name)

	if err := l.sync(ctx, repoURL, dest); err != nil {
		return nil, err
	}

	var docs []Document
	walkErr := filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Prune excluded directories before descending into them.
		if d.IsDir() {
			if path != dest && excludeDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			l.logger.Warn("stat failed, skipping file", "path", rel, "error", err)
			return nil
		}

		if !IncludeFile(rel, info.Size()) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			l.logger.Warn("read failed, skipping file", "path", rel, "error", err)
			return nil
		}
		if len(strings.TrimSpace(string(content))) == 0 {
			return nil
		}

		docs = append(docs, Document{
			Text:       string(content),
			SourcePath: name + "/" + rel,
			SourceType: SourceCode,
			RepoURL:    repoURL,
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking repository %s: %w", name, walkErr)
	}

	l.logger.Info("repository loaded", "repo", name, "documents", len(docs))
	return docs, nil
}

// sync brings the working copy at dest up to date with repoURL.
func (l *RepoLoader) sync(ctx context.Context, repoURL, dest string) error {
	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		l.logger.Debug("updating existing working copy", "dest", dest)
		if err := l.git.Pull(ctx, dest); err != nil {
			return fmt.Errorf("updating %s: %w", repoURL, err)
		}
		return nil
	}

	if err := os.MkdirAll(l.reposDir, 0o750); err != nil {
		return fmt.Errorf("creating repos dir: %w", err)
	}
	l.logger.Debug("cloning repository", "url", repoURL, "dest", dest)
	if err := l.git.Clone(ctx, repoURL, dest); err != nil {
		return fmt.Errorf("cloning %s: %w", repoURL, err)
	}
	return nil
}
