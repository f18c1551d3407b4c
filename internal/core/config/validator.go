package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	coreerrors "compgraph/internal/core/errors"
)

var (
	validDirections = []string{"TD", "TB", "BT", "LR", "RL"}
	validThemes     = []string{"default", "neutral", "dark", "forest", "base"}
)

func invalid(format string, args ...interface{}) error {
	return coreerrors.Newf(coreerrors.CodeValidationError, format, args...)
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 || cfg.Version > CurrentVersion {
		return invalid("unsupported config version %d (supported: %d)", cfg.Version, CurrentVersion)
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude {
		p := strings.TrimSpace(pattern)
		if p == "" {
			return invalid("exclude[%d] must not be empty", i)
		}
		if _, err := glob.Compile(strings.Trim(p, "/"), '/'); err != nil {
			return invalid("exclude[%d] %q is not a valid glob: %v", i, pattern, err)
		}
	}
	if cfg.MaxFileBytes < 0 {
		return invalid("max_file_bytes must be >= 0")
	}
	return nil
}

func validateGraph(cfg *Config) error {
	if cfg.Graph.MaxHops < 0 {
		return invalid("graph.max_hops must be >= 0")
	}
	return nil
}

func validateDiagram(cfg *Config) error {
	if !oneOf(cfg.Diagram.Direction, validDirections) {
		return invalid("diagram.direction must be one of: %s", strings.Join(validDirections, ", "))
	}
	if !oneOf(strings.ToLower(cfg.Diagram.Theme), validThemes) {
		return invalid("diagram.theme must be one of: %s", strings.Join(validThemes, ", "))
	}
	if cfg.Diagram.MaxNodes < 0 {
		return invalid("diagram.max_nodes must be >= 0")
	}
	return nil
}

func validateOutput(cfg *Config) error {
	outputs := make(map[string]string)
	checkConflict := func(path, name string) error {
		if strings.TrimSpace(path) == "" {
			return nil
		}
		path = filepath.Clean(path)
		if owner, exists := outputs[path]; exists {
			return invalid("output conflict: %s and %s share the same path %q", owner, name, path)
		}
		outputs[path] = name
		return nil
	}

	if err := checkConflict(cfg.Output.Mermaid, "output.mermaid"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.JSON, "output.json"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.Markdown, "output.markdown"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Output.UpdateMarkdown))
	for i, injection := range cfg.Output.UpdateMarkdown {
		ref := fmt.Sprintf("output.update_markdown[%d]", i)
		file := strings.TrimSpace(injection.File)
		if file == "" {
			return invalid("%s.file must not be empty", ref)
		}
		marker := strings.TrimSpace(injection.Marker)
		if marker == "" {
			return invalid("%s.marker must not be empty", ref)
		}
		if strings.ContainsAny(marker, " \t\n") {
			return invalid("%s.marker must not contain whitespace", ref)
		}
		if owner, exists := outputs[filepath.Clean(file)]; exists {
			return invalid("output conflict: %s and %s share the same path %q", owner, ref, file)
		}
		key := filepath.Clean(file) + "|" + marker
		if seen[key] {
			return invalid("duplicate markdown injection target: file=%q marker=%q", file, marker)
		}
		seen[key] = true
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.RebuildRate < 0 {
		return invalid("watch.rebuild_rate must be >= 0")
	}
	if cfg.Watch.RebuildBurst < 1 {
		return invalid("watch.rebuild_burst must be >= 1")
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return invalid("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.SampleRate < 0 || cfg.Observability.SampleRate > 1 {
		return invalid("observability.sample_rate must be within [0, 1]")
	}
	return nil
}

// Validate runs every check and collects all failures.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateExclude,
		validateGraph,
		validateDiagram,
		validateOutput,
		validateWatch,
		validateHistory,
		validateObservability,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
