package git

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const gitTimeout = 2 * time.Second

// Context is the repository state attached to published records.
type Context struct {
	RepoName   string
	Branch     string
	CommitHash string
	IsDirty    bool
}

// ExtractContext extracts git repository information from the given
// directory. Returns nil when the directory is not inside a repository.
func ExtractContext(workingDir string) *Context {
	if workingDir == "" {
		return nil
	}

	repoRoot := runGitCmd(workingDir, "rev-parse", "--show-toplevel")
	if repoRoot == "" {
		return nil
	}

	ctx := &Context{
		RepoName:   RepoName(workingDir),
		Branch:     runGitCmd(workingDir, "branch", "--show-current"),
		CommitHash: runGitCmd(workingDir, "rev-parse", "HEAD"),
	}
	ctx.IsDirty = runGitCmd(workingDir, "status", "--porcelain") != ""
	return ctx
}

// RepoName extracts the repository name from the origin remote, falling
// back to the directory name.
func RepoName(workingDir string) string {
	if remote := runGitCmd(workingDir, "remote", "get-url", "origin"); remote != "" {
		remote = strings.TrimSuffix(remote, ".git")
		if idx := strings.LastIndex(remote, "/"); idx != -1 {
			return remote[idx+1:]
		}
	}
	return filepath.Base(workingDir)
}

// runGitCmd executes a git command with timeout and returns trimmed stdout
func runGitCmd(dir string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return ""
	}

	return strings.TrimSpace(stdout.String())
}
