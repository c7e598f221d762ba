// Copyright Inkstone Tools, 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/inkstone-tools/kobomark/pkg/types"
)

// Report is the on-disk record of a compose run. Saving one is opt-in; it
// lets the owner audit which markups made it out and why the rest did not,
// without rerunning the batch.
type Report struct {
	GeneratedAt   time.Time            `yaml:"generated_at"`
	MarkupsDir    string               `yaml:"markups_dir"`
	DatabasePath  string               `yaml:"database_path,omitempty"`
	OutputRoot    string               `yaml:"output_root"`
	Composited    int                  `yaml:"composited"`
	Failed        int                  `yaml:"failed"`
	Skipped       int                  `yaml:"skipped"`
	Pairs         []PairResult         `yaml:"pairs"`
	SkippedGroups []types.SkippedGroup `yaml:"skipped_groups,omitempty"`
}

// WriteReport saves the run outcome to a YAML file.
func WriteReport(path string, cfg types.ComposeConfig, result RunResult) error {
	report := Report{
		GeneratedAt:   time.Now().UTC(),
		MarkupsDir:    cfg.MarkupsDir,
		DatabasePath:  cfg.DatabasePath,
		OutputRoot:    cfg.OutputRoot,
		Composited:    result.Composited,
		Failed:        result.Failed,
		Skipped:       result.Skipped,
		Pairs:         result.Pairs,
		SkippedGroups: result.SkippedGroups,
	}

	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a previously saved run report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var report Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &report, nil
}
