package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("failed to load env file", "path", f, "error", err)
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: COMPGRAPH_[SECTION]_[KEY] (e.g., COMPGRAPH_DIAGRAM_MAX_NODES).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Root, "COMPGRAPH_ROOT")
	setEnvStrings(&cfg.Exclude, "COMPGRAPH_EXCLUDE")
	setEnvBool(&cfg.RespectGitignore, "COMPGRAPH_RESPECT_GITIGNORE")
	setEnvInt64(&cfg.MaxFileBytes, "COMPGRAPH_MAX_FILE_BYTES")

	// Graph
	setEnvBoolPtr(&cfg.Graph.GlobalFallback, "COMPGRAPH_GRAPH_GLOBAL_FALLBACK")
	setEnvInt(&cfg.Graph.MaxHops, "COMPGRAPH_GRAPH_MAX_HOPS")

	// Diagram
	setEnvString(&cfg.Diagram.Direction, "COMPGRAPH_DIAGRAM_DIRECTION")
	setEnvString(&cfg.Diagram.Theme, "COMPGRAPH_DIAGRAM_THEME")
	setEnvBoolPtr(&cfg.Diagram.ShowLabels, "COMPGRAPH_DIAGRAM_SHOW_LABELS")
	setEnvInt(&cfg.Diagram.MaxNodes, "COMPGRAPH_DIAGRAM_MAX_NODES")
	cfg.Diagram.Direction = strings.ToUpper(strings.TrimSpace(cfg.Diagram.Direction))

	// Output
	setEnvString(&cfg.Output.Mermaid, "COMPGRAPH_OUTPUT_MERMAID")
	setEnvString(&cfg.Output.JSON, "COMPGRAPH_OUTPUT_JSON")
	setEnvString(&cfg.Output.Markdown, "COMPGRAPH_OUTPUT_MARKDOWN")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "COMPGRAPH_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.RebuildRate, "COMPGRAPH_WATCH_REBUILD_RATE")
	setEnvInt(&cfg.Watch.RebuildBurst, "COMPGRAPH_WATCH_REBUILD_BURST")

	// Cache
	setEnvInt(&cfg.Cache.ParseResults, "COMPGRAPH_CACHE_PARSE_RESULTS")

	// History
	setEnvBool(&cfg.History.Enabled, "COMPGRAPH_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "COMPGRAPH_HISTORY_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "COMPGRAPH_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "COMPGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvString(&cfg.Observability.ServiceName, "COMPGRAPH_OBSERVABILITY_SERVICE_NAME")
	setEnvFloat64(&cfg.Observability.SampleRate, "COMPGRAPH_OBSERVABILITY_SAMPLE_RATE")
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

// setEnvStrings reads a comma separated list.
func setEnvStrings(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
