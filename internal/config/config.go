package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full server configuration.
type Config struct {
	ListenAddr     string   `koanf:"listen_addr"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	AI             AI       `koanf:"ai"`
}

// AI configures the external model service.
type AI struct {
	BaseURL string        `koanf:"base_url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
	// AnalysisFloor is the minimum perceived latency for dataset analysis,
	// so the analyzing state never flashes by implausibly fast.
	AnalysisFloor time.Duration `koanf:"analysis_floor"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"listen_addr":       ":8001",
		"allowed_origins":   []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		"ai.base_url":       "http://localhost:11434",
		"ai.model":          "llama3.1:8b",
		"ai.timeout":        "30s",
		"ai.analysis_floor": "1500ms",
	}
}

// Load builds the configuration in three layers: defaults, then an optional
// YAML file, then DATALENS_-prefixed environment variables
// (DATALENS_AI_MODEL overrides ai.model, and so on).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	// DATALENS_AI_BASE_URL -> ai.base_url, DATALENS_LISTEN_ADDR -> listen_addr
	if err := k.Load(env.Provider("DATALENS_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "DATALENS_"))
		if strings.HasPrefix(key, "ai_") {
			return "ai." + strings.TrimPrefix(key, "ai_")
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
