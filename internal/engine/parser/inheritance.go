package parser

import "strings"

const (
	extendsMarker    = "Extends:"
	implementsMarker = "Implements:"
	markerSeparator  = " | "
)

// FormatInheritance renders base and interface lists into the description
// field understood by the graph builder.
func FormatInheritance(extends, implements []string) string {
	var parts []string
	if len(extends) > 0 {
		parts = append(parts, extendsMarker+" "+strings.Join(extends, ", "))
	}
	if len(implements) > 0 {
		parts = append(parts, implementsMarker+" "+strings.Join(implements, ", "))
	}
	return strings.Join(parts, markerSeparator)
}

// ParseInheritance is the inverse of FormatInheritance. The Extends list is
// only read when the description starts with the marker.
func ParseInheritance(description string) (extends, implements []string) {
	desc := strings.TrimSpace(description)
	if strings.HasPrefix(desc, extendsMarker) {
		segment := desc[len(extendsMarker):]
		if idx := strings.Index(segment, implementsMarker); idx >= 0 {
			segment = segment[:idx]
		}
		segment = strings.TrimRight(strings.TrimSpace(segment), "|;")
		extends = splitNames(segment)
	}
	if idx := strings.Index(desc, implementsMarker); idx >= 0 {
		implements = splitNames(desc[idx+len(implementsMarker):])
	}
	return extends, implements
}

func splitNames(segment string) []string {
	out := make([]string, 0, 2)
	for _, name := range strings.Split(segment, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}
