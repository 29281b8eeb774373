package schema

import (
	"errors"
	"fmt"
	"time"
)

// DefaultWindowRadius is the number of tabs labeled on each side of the active tab.
const DefaultWindowRadius = 50

// MaxWindowRadius caps the labeled neighborhood on each side.
const MaxWindowRadius = DefaultWindowRadius

// LabelerConfig defines the behavior of a labeler.
type LabelerConfig struct {
	// Radius bounds the labeled neighborhood on each side of the active tab.
	Radius            int
	Scope             Scope
	RenderConcurrency int
	// RefreshTimeout bounds a single refresh. Zero means no timeout.
	RefreshTimeout time.Duration
}

// NormalizeLabelerConfig applies defaults and validates the config.
func NormalizeLabelerConfig(cfg LabelerConfig) (LabelerConfig, error) {
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultWindowRadius
	}
	if cfg.Radius > MaxWindowRadius {
		return LabelerConfig{}, fmt.Errorf("radius %d exceeds %d", cfg.Radius, MaxWindowRadius)
	}
	if cfg.Scope == "" {
		cfg.Scope = ScopeAll
	}
	if err := ValidateScope(cfg.Scope); err != nil {
		return LabelerConfig{}, err
	}
	if cfg.RenderConcurrency <= 0 {
		cfg.RenderConcurrency = 1
	}
	if cfg.RefreshTimeout < 0 {
		return LabelerConfig{}, errors.New("refresh timeout must not be negative")
	}
	return cfg, nil
}
