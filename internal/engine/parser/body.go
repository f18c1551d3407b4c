package parser

import (
	"regexp"
	"strings"
)

// MaxBodyScan bounds how far past a declaration the body scanner looks.
const MaxBodyScan = 20000

var (
	// A tag opening is `<Name` followed by an attribute, a spread, `>` or `/>`,
	// and not preceded by an identifier character (which would make it a generic).
	jsxTagRE      = regexp.MustCompile(`(?:^|[^\w$.])<([A-Za-z][\w.]*)(?:\s+[\w-]+\s*(?:=|\s|/?>)|\s+\{\s*\.\.\.|\s*/?>)`)
	jsxCloseTagRE = regexp.MustCompile(`</[A-Za-z][\w.]*\s*>`)
	jsxFragmentRE = regexp.MustCompile(`<>|</>`)
	uiPropRE      = regexp.MustCompile(`\b(?:className|onClick|onChange|onSubmit|style)\s*=\s*[{"']`)
)

// ContainsUIMarkup reports whether body looks like it renders UI markup.
func ContainsUIMarkup(body string) bool {
	if body == "" {
		return false
	}
	return jsxFragmentRE.MatchString(body) ||
		jsxCloseTagRE.MatchString(body) ||
		jsxTagRE.MatchString(body) ||
		uiPropRE.MatchString(body)
}

// ExtractBody returns the body of a function-like declaration whose
// parameter list or arrow begins at or after from. Block bodies are balanced
// on braces, parenthesised expression bodies on parens. Scanning never runs
// more than MaxBodyScan bytes past from; an unbalanced body is cut there.
func ExtractBody(src string, from int) string {
	if from < 0 || from >= len(src) {
		return ""
	}
	end := from + MaxBodyScan
	if end > len(src) {
		end = len(src)
	}

	depth := 0
	for i := from; i < end; i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '{':
			if depth == 0 {
				return balanced(src, i, end, '{', '}')
			}
		case '=':
			if depth == 0 && i+1 < end && src[i+1] == '>' {
				return arrowBody(src, i+2, end)
			}
		case ';':
			if depth == 0 {
				return ""
			}
		}
	}
	return ""
}

func arrowBody(src string, i, end int) string {
	for i < end && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	if i >= end {
		return ""
	}
	switch src[i] {
	case '{':
		return balanced(src, i, end, '{', '}')
	case '(':
		return balanced(src, i, end, '(', ')')
	}
	rest := src[i:end]
	if idx := strings.Index(rest, ";"); idx >= 0 {
		rest = rest[:idx]
	}
	if idx := strings.Index(rest, "\n\n"); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func balanced(src string, start, end int, open, close byte) string {
	depth := 0
	for i := start; i < end; i++ {
		switch src[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return src[start : i+1]
			}
		}
	}
	return src[start:end]
}
