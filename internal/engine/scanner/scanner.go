// # internal/engine/scanner/scanner.go
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	coreerrors "compgraph/internal/core/errors"
	"compgraph/internal/engine/parser"
	"compgraph/internal/shared/observability"
	"compgraph/internal/shared/util"
)

const (
	outcomeParsed = "parsed"
	outcomeEmpty  = "empty"
	outcomeFailed = "failed"
	outcomeCached = "cached"
)

type Option func(*Scanner)

// WithCache serves unchanged files from c instead of re-parsing them.
func WithCache(c *ParseCache) Option {
	return func(s *Scanner) { s.cache = c }
}

// WithMaxFileBytes rejects files larger than n bytes. Zero disables the limit.
func WithMaxFileBytes(n int64) Option {
	return func(s *Scanner) { s.maxFileBytes = n }
}

func WithGitignore(enabled bool) Option {
	return func(s *Scanner) { s.respectGitignore = enabled }
}

// WithProgress is called after each processed file with its relative path.
func WithProgress(fn func(rel string)) Option {
	return func(s *Scanner) { s.progress = fn }
}

type Scanner struct {
	parser           *parser.Parser
	cache            *ParseCache
	maxFileBytes     int64
	respectGitignore bool
	progress         func(rel string)
}

func New(p *parser.Parser, opts ...Option) *Scanner {
	s := &Scanner{parser: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Report is the outcome of one scan. Results holds only results with at least
// one declaration or import, sorted by path. Failures holds per-file errors.
type Report struct {
	Root         string
	Results      []parser.ParseResult
	Failures     []parser.ParseResult
	FilesVisited int
	Cancelled    bool
}

type batch struct {
	pattern string
	files   []string
}

// Scan walks root, skipping excluded directories and files, and parses every
// supported file. Files are processed in per-extension batches and the
// context is checked before each file. A cancelled scan returns the results
// gathered so far with Cancelled set.
func (s *Scanner) Scan(ctx context.Context, root string, excludes []string) (*Report, error) {
	ctx, span := observability.StartSpan(ctx, "scanner.Scan", "root", root)
	defer span.End()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeIO, "resolve scan root")
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeNotFound, "scan root not found"), coreerrors.CtxPath, abs)
	}
	if !info.IsDir() {
		return nil, coreerrors.AddContext(coreerrors.New(coreerrors.CodeValidationError, "scan root is not a directory"), coreerrors.CtxPath, abs)
	}

	matcher, err := CompileExcludes(excludes)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeValidationError, "compile exclude patterns")
	}
	if s.respectGitignore {
		if err := matcher.LoadGitignore(abs); err != nil {
			slog.Warn("ignoring unreadable .gitignore", "root", abs, "error", err)
		}
	}

	report := &Report{Root: abs}
	files, err := s.collect(ctx, abs, matcher)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		report.Cancelled = true
		return report, nil
	}

	for _, b := range s.batches(files) {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		for _, rel := range b.files {
			if ctx.Err() != nil {
				report.Cancelled = true
				break
			}
			s.visit(report, abs, rel)
		}
	}

	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].FilePath < report.Results[j].FilePath
	})
	sort.SliceStable(report.Failures, func(i, j int) bool {
		return report.Failures[i].FilePath < report.Failures[j].FilePath
	})
	if report.Cancelled {
		slog.Info("scan cancelled", "root", abs, "visited", report.FilesVisited)
	}
	return report, nil
}

func (s *Scanner) collect(ctx context.Context, root string, matcher *Matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if path == root {
			return nil
		}
		rel := util.RelSlash(root, path)
		if d.IsDir() {
			if matcher.Excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Excluded(rel, false) {
			return nil
		}
		if s.parser.IsSupportedPath(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeIO, "walk scan root"), coreerrors.CtxPath, root)
	}
	sort.Strings(files)
	return files, nil
}

// batches groups files by the first `**/*<ext>` pattern they match. Files no
// pattern claims still form a trailing batch so nothing supported is lost.
func (s *Scanner) batches(files []string) []batch {
	exts := s.parser.SupportedExtensions()
	out := make([]batch, 0, len(exts)+1)
	for _, ext := range exts {
		out = append(out, batch{pattern: "**/*" + ext})
	}
	rest := batch{pattern: "*"}
	for _, rel := range files {
		placed := false
		for i := range out {
			if ok, _ := doublestar.Match(out[i].pattern, rel); ok {
				out[i].files = append(out[i].files, rel)
				placed = true
				break
			}
		}
		if !placed {
			rest.files = append(rest.files, rel)
		}
	}
	if len(rest.files) > 0 {
		out = append(out, rest)
	}
	return out
}

func (s *Scanner) visit(report *Report, root, rel string) {
	absPath := filepath.Join(root, filepath.FromSlash(rel))
	res, outcome := s.processFile(absPath, rel)
	report.FilesVisited++
	observability.ScanFilesTotal.WithLabelValues(outcome).Inc()

	switch {
	case outcome == outcomeFailed:
		slog.Warn("failed to parse file", "path", absPath, "errors", res.Errors)
		report.Failures = append(report.Failures, res)
	case !res.Empty():
		if len(res.Errors) > 0 {
			slog.Warn("partial parse", "path", absPath, "errors", res.Errors)
			report.Failures = append(report.Failures, parser.ParseResult{FilePath: res.FilePath, Language: res.Language, Errors: res.Errors})
		}
		report.Results = append(report.Results, res)
	}
	if s.progress != nil {
		s.progress(rel)
	}
}

// ProcessFile parses a single file. Read problems and oversized files are
// reported as a result with no declarations and one error.
func (s *Scanner) ProcessFile(absPath, rel string) parser.ParseResult {
	res, _ := s.processFile(absPath, rel)
	return res
}

func (s *Scanner) processFile(absPath, rel string) (parser.ParseResult, string) {
	info, err := os.Stat(absPath)
	if err != nil {
		return parser.ErrorResult(absPath, err.Error()), outcomeFailed
	}
	if s.maxFileBytes > 0 && info.Size() > s.maxFileBytes {
		return parser.ErrorResult(absPath, fmt.Sprintf("file too large: %d bytes exceeds limit of %d", info.Size(), s.maxFileBytes)), outcomeFailed
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return parser.ErrorResult(absPath, err.Error()), outcomeFailed
	}

	if cached, ok := s.cache.Get(absPath, content); ok {
		observability.ParseCacheHitsTotal.Inc()
		return cached, outcomeCached
	}

	res := s.parser.Parse(parser.Source{Path: absPath, RelPath: rel, Content: string(content)})
	s.cache.Put(absPath, content, res)

	switch {
	case res.Empty() && len(res.Errors) > 0:
		return res, outcomeFailed
	case res.Empty():
		return res, outcomeEmpty
	}
	return res, outcomeParsed
}
