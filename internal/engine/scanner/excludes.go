package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// BaselineExcludes are directory names that never hold first-party sources.
var BaselineExcludes = []string{
	"node_modules", "dist", "build", "out", ".git", "bin", "obj",
	"__pycache__", "venv", ".venv", ".next", "coverage",
}

// Matcher decides whether a root-relative path is excluded. Patterns without
// a slash match any path segment's base name; patterns with a slash match the
// relative path, where `*` stays inside one segment and `**` crosses them.
type Matcher struct {
	base    []glob.Glob
	path    []glob.Glob
	dirOnly []glob.Glob
	git     *ignore.GitIgnore
}

func CompileExcludes(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	all := append(append([]string{}, BaselineExcludes...), patterns...)
	for _, raw := range all {
		p := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
		if p == "" {
			continue
		}
		dirOnly := strings.HasSuffix(p, "/") && len(p) > 1
		p = strings.TrimSuffix(strings.TrimPrefix(p, "./"), "/")

		if !strings.Contains(p, "/") {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
			}
			if dirOnly {
				m.dirOnly = append(m.dirOnly, g)
			} else {
				m.base = append(m.base, g)
			}
			continue
		}

		g, err := glob.Compile(strings.TrimPrefix(p, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", raw, err)
		}
		m.path = append(m.path, g)
	}
	return m, nil
}

// LoadGitignore attaches <root>/.gitignore when it exists.
func (m *Matcher) LoadGitignore(root string) error {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	m.git = gi
	return nil
}

// Excluded reports whether rel (slash separated, relative to the scan root)
// is excluded.
func (m *Matcher) Excluded(rel string, isDir bool) bool {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return false
	}
	base := rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		base = rel[idx+1:]
	}
	for _, g := range m.base {
		if g.Match(base) {
			return true
		}
	}
	if isDir {
		for _, g := range m.dirOnly {
			if g.Match(base) {
				return true
			}
		}
	}

	variants := []string{rel, "/" + rel}
	if isDir {
		variants = append(variants, rel+"/", "/"+rel+"/")
	}
	for _, g := range m.path {
		for _, v := range variants {
			if g.Match(v) {
				return true
			}
		}
	}

	if m.git != nil {
		candidate := rel
		if isDir {
			candidate += "/"
		}
		if m.git.MatchesPath(candidate) {
			return true
		}
	}
	return false
}
