package applicability

import (
	"fmt"
	"os"

	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/pkg/guide"

	"gopkg.in/yaml.v3"
)

// Config maps a root item id (power source) to the downstream categories
// that apply to it. Loaded once at startup and never mutated afterward.
type Config struct {
	entries map[string]guide.ApplicabilityMap
}

type configFile struct {
	PowerSources map[string]map[string]bool `yaml:"power_sources"`
}

// LoadConfig reads the applicability configuration. A missing file yields
// an empty config, which resolves everything as applicable.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{entries: make(map[string]guide.ApplicabilityMap)}
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read applicability config %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse applicability config %s: %w", path, err)
	}

	for rootID, categories := range file.PowerSources {
		m := make(guide.ApplicabilityMap, len(categories))
		for name, applicable := range categories {
			cat, ok := guide.ParseCategory(name)
			if !ok {
				return nil, fmt.Errorf("applicability config %s: unknown category %q under %s", path, name, rootID)
			}
			m[cat] = applicable
		}
		cfg.entries[guide.Canon(rootID)] = m
	}
	return cfg, nil
}

// Resolver answers which downstream categories are relevant for a given
// root selection. Pure lookup, no side effects.
type Resolver struct {
	config *Config
	logger logger.ILogger
}

func NewResolver(config *Config, log logger.ILogger) *Resolver {
	if config == nil {
		config = &Config{entries: make(map[string]guide.ApplicabilityMap)}
	}
	return &Resolver{config: config, logger: log}
}

// Resolve returns the applicability map for the selected root item. An id
// missing from the configuration returns an empty map, which downstream
// reads as all-applicable: missing config must never block the flow.
func (r *Resolver) Resolve(rootItemID string) guide.ApplicabilityMap {
	if m, ok := r.config.entries[guide.Canon(rootItemID)]; ok {
		out := make(guide.ApplicabilityMap, len(m))
		for c, v := range m {
			out[c] = v
		}
		return out
	}
	if r.logger != nil {
		r.logger.Warn("APPLICABILITY", "No applicability entry for root item, defaulting to all-applicable", map[string]interface{}{
			"root_item_id": rootItemID,
		})
	}
	return guide.ApplicabilityMap{}
}
