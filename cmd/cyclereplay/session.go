package main

import (
	"fmt"
	"os"

	"backend-frimining/internal/cycle"

	"github.com/goccy/go-yaml"
)

// loadSession reads a session configuration file. Point kinds may be left
// out; they follow from the key the point is listed under.
func loadSession(path string) (cycle.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return cycle.Config{}, fmt.Errorf("read session file: %w", err)
	}
	var cfg cycle.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cycle.Config{}, fmt.Errorf("parse session file %s: %w", path, err)
	}
	if cfg.CollectionPoint.Kind == "" {
		cfg.CollectionPoint.Kind = cycle.KindCollection
	}
	if cfg.StockpilePoint.Kind == "" {
		cfg.StockpilePoint.Kind = cycle.KindStockpile
	}
	if cfg.ProximityRadiusM == 0 {
		cfg.ProximityRadiusM = cycle.DefaultProximityRadiusM
	}
	return cfg, nil
}
