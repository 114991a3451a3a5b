// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package files expands upload arguments into candidate file paths.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Directory names never uploaded from.
var skipDirs = map[string]bool{
	"__pycache__":   true,
	".git":          true,
	".svn":          true,
	".hg":           true,
	".venv":         true,
	"venv":          true,
	".env":          true,
	"node_modules":  true,
	"dist":          true,
	"build":         true,
	".pytest_cache": true,
	".mypy_cache":   true,
	".ruff_cache":   true,
}

// Name suffixes never uploaded, on files or on any parent directory.
var skipSuffixes = []string{
	".pyc", ".pyo", ".pyd", ".so", ".dylib", ".DS_Store", ".egg-info", ".coverage",
}

// Skipped reports whether a relative path falls under a built-in skip rule: a parent
// directory named like a VCS, virtualenv, cache or build directory, or a
// path component ending in a compiled or system-file suffix.
func Skipped(path string) bool {
	parts := strings.Split(filepath.ToSlash(filepath.Clean(path)), "/")
	for i, part := range parts {
		if i < len(parts)-1 && skipDirs[part] {
			return true
		}
		for _, suf := range skipSuffixes {
			if strings.HasSuffix(part, suf) {
				return true
			}
		}
	}
	return false
}

// Expander turns upload arguments into absolute file paths.
type Expander struct {
	// Cwd anchors relative arguments and the .gitignore lookup (default ".").
	Cwd string

	IgnoreGitignore bool

	Log *zap.Logger
}

// Expand resolves each argument: environment variables and a leading "~"
// are expanded; arguments without wildcards name a single file; others are
// split at the last "/" before the first wildcard into a base directory and
// a glob that may use "**". Directories, skipped paths and gitignored paths
// are dropped. The result is deduplicated in argument order.
func (e Expander) Expand(args []string) ([]string, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	cwd := e.Cwd
	if cwd == "" {
		cwd = "."
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}

	var ignore *Gitignore
	if !e.IgnoreGitignore {
		ignore, err = LoadGitignore(cwd)
		if err != nil {
			log.Warn("ignoring unreadable .gitignore", zap.Error(err))
		} else if ignore != nil {
			log.Info("loaded .gitignore", zap.String("dir", ignore.Dir), zap.Int("patterns", len(ignore.Patterns)))
		}
	}

	// rel is the part of p below the argument's base directory; skip rules
	// never look above it.
	keep := func(p, rel string) bool {
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return false
		}
		return !Skipped(rel) && !ignore.Match(p)
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		expanded := expandHome(os.ExpandEnv(arg))
		log.Debug("expanded argument", zap.String("arg", arg), zap.String("expanded", expanded))

		wild := strings.IndexAny(expanded, "*?[")
		if wild < 0 {
			p := absFrom(cwd, expanded)
			if keep(p, filepath.Base(p)) {
				add(p)
			} else {
				log.Debug("dropping path", zap.String("file", p))
			}
			continue
		}

		base, pattern := cwd, expanded
		if slash := strings.LastIndex(expanded[:wild], "/"); slash >= 0 {
			base = absFrom(cwd, expanded[:slash])
			if slash == 0 {
				base = "/"
			}
			pattern = expanded[slash+1:]
		}

		matches, err := doublestar.Glob(os.DirFS(base), pattern)
		if err != nil {
			log.Warn("glob failed", zap.String("pattern", expanded), zap.Error(err))
			continue
		}
		log.Debug("glob matched", zap.String("base", base), zap.String("pattern", pattern), zap.Int("matches", len(matches)))
		for _, m := range matches {
			p := filepath.Join(base, filepath.FromSlash(m))
			if keep(p, m) {
				add(p)
			}
		}
	}
	return out, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func absFrom(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(cwd, p)
}

// Candidate describes a file for a dry run.
type Candidate struct {
	File      string `json:"file" yaml:"file"`
	SizeBytes int64  `json:"size_bytes" yaml:"size_bytes"`
	Size      string `json:"size" yaml:"size"`
}

// Describe stats each path for a dry-run listing. Unreadable files report
// size zero.
func Describe(paths []string) []Candidate {
	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		}
		out = append(out, Candidate{File: p, SizeBytes: size, Size: humanize.Bytes(uint64(size))})
	}
	return out
}
