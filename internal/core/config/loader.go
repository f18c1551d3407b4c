package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	coreerrors "compgraph/internal/core/errors"
)

// Load reads path, applies defaults and validates the result. A missing file
// at the default location yields the default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigFile {
			cfg := DefaultConfig()
			ApplyEnvOverrides(cfg)
			if errs := Validate(cfg); len(errs) > 0 {
				return nil, errs[0]
			}
			return cfg, nil
		}
		return nil, coreerrors.AddContext(coreerrors.Wrap(err, coreerrors.CodeIO, "read config"), coreerrors.CtxPath, path)
	}

	cfg, err := Parse(string(data))
	if err != nil {
		return nil, coreerrors.AddContext(err, coreerrors.CtxPath, path)
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes TOML content into a validated configuration.
func Parse(content string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeValidationError, "decode config")
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(&cfg); err != nil {
		return nil, err
	}
	if err := validateGraph(&cfg); err != nil {
		return nil, err
	}
	if err := validateDiagram(&cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateHistory(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = "."
	}
	if cfg.MaxFileBytes == 0 {
		cfg.MaxFileBytes = 2 << 20
	}

	if cfg.Graph.GlobalFallback == nil {
		cfg.Graph.GlobalFallback = boolPtr(true)
	}
	if cfg.Graph.MaxHops == 0 {
		cfg.Graph.MaxHops = 2
	}

	if strings.TrimSpace(cfg.Diagram.Direction) == "" {
		cfg.Diagram.Direction = "TD"
	}
	cfg.Diagram.Direction = strings.ToUpper(strings.TrimSpace(cfg.Diagram.Direction))
	if strings.TrimSpace(cfg.Diagram.Theme) == "" {
		cfg.Diagram.Theme = "default"
	}
	if cfg.Diagram.ShowLabels == nil {
		cfg.Diagram.ShowLabels = boolPtr(true)
	}
	if cfg.Diagram.MaxNodes == 0 {
		cfg.Diagram.MaxNodes = 50
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RebuildBurst == 0 {
		cfg.Watch.RebuildBurst = 1
	}

	if cfg.Cache.ParseResults == 0 {
		cfg.Cache.ParseResults = 2048
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = ".compgraph/history.db"
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "compgraph"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1
	}
}
