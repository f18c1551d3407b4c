package formats

import (
	"fmt"
	"strings"
)

// sanitizeID keeps only [A-Za-z0-9_]. Identifiers that would start with a
// digit get an "m_" prefix and an empty result becomes "m".
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return "m"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "m_" + out
	}
	return out
}

// makeIDs maps each name to a sanitized identifier. Collisions get numeric
// suffixes in first-seen order: id, id_2, id_3.
func makeIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}
		base := sanitizeID(name)
		id := base
		for n := used[base]; taken[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n+1)
			used[base] = n + 1
		}
		if used[base] == 0 {
			used[base] = 1
		}
		taken[id] = true
		ids[name] = id
	}
	return ids
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func toIDs(names []string, ids map[string]string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, ids[name])
	}
	return out
}
