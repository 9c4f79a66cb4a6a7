package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// readYAML reads a YAML file, expands ${VAR} environment variables and
// decodes it into out.
func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

// Load reads an analyzer YAML config file and expands environment variables.
func Load(path string) (*AnalyzerConfig, error) {
	var cfg AnalyzerConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*AnalyzerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*AnalyzerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadGenerator reads a generator config. Asset and market list files are
// resolved relative to the config file's directory. Defaults are applied and
// the result is validated.
func LoadGenerator(path string) (*GeneratorConfig, error) {
	var cfg GeneratorConfig
	if err := readYAML(path, &cfg); err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(path)
	if cfg.AssetsFile != "" {
		assets, err := loadList(filepath.Join(baseDir, cfg.AssetsFile))
		if err != nil {
			return nil, fmt.Errorf("load assets file: %w", err)
		}
		cfg.Assets = assets
	}
	if cfg.MarketsFile != "" {
		markets, err := loadList(filepath.Join(baseDir, cfg.MarketsFile))
		if err != nil {
			return nil, fmt.Errorf("load markets file: %w", err)
		}
		cfg.Markets = markets
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// loadList reads a YAML sequence of strings, dropping duplicates.
func loadList(path string) ([]string, error) {
	var items []string
	if err := readYAML(path, &items); err != nil {
		return nil, err
	}
	return dedupe(items), nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
