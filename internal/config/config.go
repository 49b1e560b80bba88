package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	env "github.com/caarlos0/env/v11"
)

const (
	DefaultPath = "wirectl.toml"
	EnvPrefix   = "WIRECTL_"
)

// Config is the resolved runtime configuration for wirectl and its gateway.
type Config struct {
	Addr string `env:"ADDR"`
	Node string `env:"NODE"`
	// Schemas are extra YAML schema files registered after the bundled schema.
	Schemas        []string `env:"SCHEMAS" envSeparator:","`
	LoadDefault    bool     `env:"LOAD_DEFAULT"`
	ReplaceDefault bool     `env:"REPLACE_DEFAULT"`
	CorsOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
	Metrics        bool     `env:"METRICS"`
}

// wirectl.toml key mapping.
type fileConfig struct {
	Addr           string   `toml:"addr"`
	Node           string   `toml:"node"`
	Schemas        []string `toml:"schemas"`
	LoadDefault    bool     `toml:"load_default"`
	ReplaceDefault bool     `toml:"replace_default"`
	CorsOrigins    []string `toml:"cors_origins"`
	Metrics        bool     `toml:"metrics"`
}

func Default() Config {
	return Config{
		Addr:        ":9400",
		Node:        "wirectl",
		LoadDefault: true,
		Metrics:     true,
	}
}

// Load overlays the TOML file at path (if any) and WIRECTL_* environment
// variables on the defaults. Relative schema paths resolve against the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("load wirectl config env: %w", err)
	}
	cfg.Schemas = trimAll(cfg.Schemas)
	cfg.CorsOrigins = trimAll(cfg.CorsOrigins)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load wirectl config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load wirectl config (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("node") {
		cfg.Node = strings.TrimSpace(raw.Node)
	}
	if meta.IsDefined("schemas") {
		cfg.Schemas = make([]string, 0, len(raw.Schemas))
		for _, schema := range raw.Schemas {
			schema = strings.TrimSpace(schema)
			if schema != "" && !filepath.IsAbs(schema) {
				schema = filepath.Join(filepath.Dir(path), schema)
			}
			cfg.Schemas = append(cfg.Schemas, schema)
		}
	}
	if meta.IsDefined("load_default") {
		cfg.LoadDefault = raw.LoadDefault
	}
	if meta.IsDefined("replace_default") {
		cfg.ReplaceDefault = raw.ReplaceDefault
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("metrics") {
		cfg.Metrics = raw.Metrics
	}
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("wirectl config missing addr")
	}
	if strings.TrimSpace(cfg.Node) == "" {
		return fmt.Errorf("wirectl config missing node")
	}
	if !cfg.LoadDefault && len(cfg.Schemas) == 0 {
		return fmt.Errorf("wirectl config has no schema: set schemas or load_default")
	}
	if cfg.ReplaceDefault && !cfg.LoadDefault {
		return fmt.Errorf("wirectl config: replace_default requires load_default")
	}
	for i, schema := range cfg.Schemas {
		if schema == "" {
			return fmt.Errorf("schemas[%d] is empty", i)
		}
	}
	return nil
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
