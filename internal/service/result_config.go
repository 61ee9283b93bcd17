package service

import (
	"fmt"

	"github.com/noah-isme/academic-results-api/pkg/config"
	"github.com/noah-isme/academic-results-api/pkg/grading"
)

// EngineConfigFromSettings resolves the aggregation policy and grade table named in configuration.
// An explicit boundary list wins over the named preset.
func EngineConfigFromSettings(cfg config.ResultsConfig) (ResultEngineConfig, error) {
	policy, err := grading.ParsePolicy(cfg.Policy)
	if err != nil {
		return ResultEngineConfig{}, err
	}

	var boundaries []grading.Boundary
	if cfg.Boundaries != "" {
		boundaries, err = grading.ParseBoundaries(cfg.Boundaries)
	} else {
		boundaries, err = grading.Preset(cfg.GradeTable)
	}
	if err != nil {
		return ResultEngineConfig{}, fmt.Errorf("grade table: %w", err)
	}

	if cfg.PassMark < 0 || cfg.PassMark > 100 {
		return ResultEngineConfig{}, fmt.Errorf("pass mark %.2f out of range", cfg.PassMark)
	}

	return ResultEngineConfig{
		Policy:       policy,
		Boundaries:   boundaries,
		PassMark:     cfg.PassMark,
		BatchTimeout: cfg.BatchTimeout,
		Workers:      cfg.BatchWorkers,
		CacheTTL:     cfg.CacheTTL,
	}, nil
}
