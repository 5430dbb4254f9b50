package gitshell

import (
	"os"
	"path/filepath"
	"strings"
)

// findNearestGitDir walks upward from dir looking for a `.git` directory, or
// a `.git` file whose content begins with "gitdir:" (the worktree pointer
// format), and returns the directory that contains it. This lets the engine
// operate correctly from inside a linked worktree (spec §6.1).
func findNearestGitDir(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return dir, nil
			}
			data, err := os.ReadFile(gitPath)
			if err == nil && strings.HasPrefix(string(data), "gitdir:") {
				return dir, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
