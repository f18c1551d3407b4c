package config

import (
	"time"
)

const (
	DefaultConfigFile = "compgraph.toml"
	CurrentVersion    = 1
)

type Config struct {
	Version          int      `toml:"version"`
	Root             string   `toml:"root"`
	Exclude          []string `toml:"exclude"`
	RespectGitignore bool     `toml:"respect_gitignore"`
	MaxFileBytes     int64    `toml:"max_file_bytes"`

	Graph         Graph         `toml:"graph"`
	Diagram       Diagram       `toml:"diagram"`
	Output        Output        `toml:"output"`
	Watch         Watch         `toml:"watch"`
	Cache         Cache         `toml:"cache"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`

	// path is the file the config was loaded from, empty for defaults.
	path string
}

type Graph struct {
	GlobalFallback *bool `toml:"global_fallback"`
	MaxHops        int   `toml:"max_hops"`
}

type Diagram struct {
	Direction  string `toml:"direction"`
	Theme      string `toml:"theme"`
	ShowLabels *bool  `toml:"show_labels"`
	MaxNodes   int    `toml:"max_nodes"`
}

type Output struct {
	Mermaid        string              `toml:"mermaid"`
	JSON           string              `toml:"json"`
	Markdown       string              `toml:"markdown"`
	UpdateMarkdown []MarkdownInjection `toml:"update_markdown"`
}

type MarkdownInjection struct {
	File   string `toml:"file"`
	Marker string `toml:"marker"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	RebuildRate  float64       `toml:"rebuild_rate"` // rebuilds per second, 0 = unlimited
	RebuildBurst int           `toml:"rebuild_burst"`
}

type Cache struct {
	ParseResults int `toml:"parse_results"` // entries, negative disables
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsAddr  string  `toml:"metrics_addr"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	ServiceName  string  `toml:"service_name"`
	SampleRate   float64 `toml:"sample_rate"`
}

// Path returns the file the configuration was read from.
func (c *Config) Path() string { return c.path }

func (g Graph) FallbackEnabled() bool {
	return g.GlobalFallback == nil || *g.GlobalFallback
}

func (d Diagram) LabelsEnabled() bool {
	return d.ShowLabels == nil || *d.ShowLabels
}

func boolPtr(v bool) *bool { return &v }

// DefaultConfig returns a validated configuration scanning the current
// directory.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
