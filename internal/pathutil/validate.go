// Package pathutil confines snapshot files to known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutsideError reports a path that resolves outside every allowed directory.
type OutsideError struct {
	Path string
}

func (e *OutsideError) Error() string {
	return fmt.Sprintf("%s is outside allowed directories", Redact(e.Path))
}

// Guard checks paths against a fixed set of directories. Directories are
// resolved once, symlinks included, when the guard is built.
type Guard struct {
	dirs []string
}

// NewGuard builds a guard for dirs. Directories need not exist yet.
func NewGuard(dirs ...string) (*Guard, error) {
	if len(dirs) == 0 {
		return nil, errors.New("no allowed directories configured")
	}
	g := &Guard{dirs: make([]string, 0, len(dirs))}
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", Redact(d), err)
		}
		resolved, err := resolve(abs)
		if err != nil {
			return nil, err
		}
		g.dirs = append(g.dirs, resolved)
	}
	return g, nil
}

// BackupGuard allows <root>/.oracle/backups and ~/.oracle/backups.
func BackupGuard(root string) (*Guard, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewGuard(
		filepath.Join(root, ".oracle", "backups"),
		filepath.Join(home, ".oracle", "backups"),
	)
}

// Dirs returns the resolved allowed directories.
func (g *Guard) Dirs() []string {
	return append([]string(nil), g.dirs...)
}

// Check resolves path and returns it if it lies inside an allowed directory.
// The file itself may not exist yet; its deepest existing ancestor is
// resolved so a symlinked directory cannot lead outside.
func (g *Guard) Check(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is empty")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New("path contains null byte")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", Redact(path), err)
	}
	resolved, err := resolve(abs)
	if err != nil {
		return "", err
	}

	for _, dir := range g.dirs {
		if within(dir, resolved) {
			return resolved, nil
		}
	}
	return "", &OutsideError{Path: abs}
}

// resolve evaluates symlinks on the deepest existing ancestor of path and
// re-appends the missing tail.
func resolve(path string) (string, error) {
	var tail []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("cannot resolve %s", Redact(path))
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Redact reduces a path to .../<parent>/<base> for error messages.
func Redact(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}
