// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package files

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Gitignore holds the patterns of one .gitignore file. Negated patterns
// ("!pattern") are not supported and are ignored.
type Gitignore struct {
	Dir      string
	Patterns []string
}

// LoadGitignore reads the nearest .gitignore at or above start. It returns
// nil when none exists.
func LoadGitignore(start string) (*Gitignore, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		g, err := readGitignore(dir)
		if err != nil {
			return nil, err
		}
		if g != nil {
			return g, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func readGitignore(dir string) (*Gitignore, error) {
	f, err := os.Open(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading .gitignore in %s: %w", dir, err)
	}
	defer f.Close()

	g := &Gitignore{Dir: dir}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		g.Patterns = append(g.Patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading .gitignore in %s: %w", dir, err)
	}
	return g, nil
}

// Match reports whether path is ignored. Paths outside Dir never match.
// A pattern ending in "/" matches any parent directory name; a pattern
// containing "/" matches the path relative to Dir; any other pattern
// matches any single path component.
func (g *Gitignore) Match(path string) bool {
	if g == nil {
		return false
	}
	rel, err := filepath.Rel(g.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	rel = filepath.ToSlash(rel)
	parts := strings.Split(rel, "/")

	for _, pattern := range g.Patterns {
		switch {
		case strings.HasSuffix(pattern, "/"):
			dirPattern := strings.TrimRight(pattern, "/")
			for _, dir := range parts[:len(parts)-1] {
				if ok, _ := doublestar.Match(dirPattern, dir); ok {
					return true
				}
			}
		case strings.Contains(pattern, "/"):
			if ok, _ := doublestar.Match(strings.TrimPrefix(pattern, "/"), rel); ok {
				return true
			}
		default:
			for _, part := range parts {
				if ok, _ := doublestar.Match(pattern, part); ok {
					return true
				}
			}
		}
	}
	return false
}
