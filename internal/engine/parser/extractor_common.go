package parser

import (
	"path/filepath"
	"strings"
	"unicode"
)

func splitAndTrim(value, sep string) []string {
	parts := strings.Split(value, sep)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func isUpperInitial(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

func appendUnique(values []string, seen map[string]bool, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return values
	}
	if seen[value] {
		return values
	}
	seen[value] = true
	return append(values, value)
}

func hasAnyPrefix(value string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func containsAny(value string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(value, n) {
			return true
		}
	}
	return false
}

// pathSegments returns the lower-cased directory names of path.
func pathSegments(path string) []string {
	dir := filepath.ToSlash(filepath.Dir(path))
	parts := strings.Split(strings.ToLower(dir), "/")
	out := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

func inDirectory(path string, names ...string) bool {
	for _, seg := range pathSegments(path) {
		for _, n := range names {
			if seg == n {
				return true
			}
		}
	}
	return false
}

func lowerBase(path string) string {
	return strings.ToLower(filepath.Base(path))
}

// stripGenerics drops a trailing generic argument list: `List<T>` -> `List`.
func stripGenerics(name string) string {
	if idx := strings.IndexAny(name, "<("); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// splitTopLevel splits on sep while ignoring separators nested in <>, () or [].
func splitTopLevel(value string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '<', '(', '[':
			depth++
		case '>', ')', ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				if part := strings.TrimSpace(value[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(value[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
