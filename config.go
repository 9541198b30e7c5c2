package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kwv/icp3d/icp"
	"github.com/kwv/icp3d/telemetry"
)

// AlignJobConfig describes one alignment job: a source and target point
// cloud file, an identifier used for cache/telemetry keys, the requested
// transform class, and per-job tunable overrides layered on top of
// icp.DefaultConfig().
type AlignJobConfig struct {
	ID           string  `yaml:"id"`
	SourcePath   string  `yaml:"sourcePath"`
	TargetPath   string  `yaml:"targetPath"`
	XformType    string  `yaml:"xformType"` // "translation", "rigid", "similarity", "affine"
	MaxIters     int     `yaml:"maxIters,omitempty"`
	DesiredPairs int     `yaml:"desiredPairs,omitempty"`
	MaxDistance  float64 `yaml:"maxDistance,omitempty"`
	// Chart, if true and ReportDir is set, renders a convergence chart
	// (report.RenderToPNG) of this job's iteration history alongside its
	// GeoJSON footprint.
	Chart bool `yaml:"chart,omitempty"`
}

// Config is the CLI's job configuration, generalizing mesh.Config's
// vacuum/MQTT layout (mesh/config_loader.go) to a list of pairwise
// alignment jobs plus an optional shared telemetry sink.
type Config struct {
	Jobs      []AlignJobConfig  `yaml:"jobs"`
	CachePath string            `yaml:"cachePath,omitempty"`
	ReportDir string            `yaml:"reportDir,omitempty"`
	MQTT      *telemetry.Config `yaml:"mqtt,omitempty"`
}

// LoadConfig loads the job configuration from a YAML file, mirroring
// mesh.LoadConfig's read-parse-validate structure.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if len(cfg.Jobs) == 0 {
		return nil, fmt.Errorf("at least one job must be defined")
	}
	for i, j := range cfg.Jobs {
		if j.ID == "" {
			return nil, fmt.Errorf("jobs[%d].id is required", i)
		}
		if j.SourcePath == "" || j.TargetPath == "" {
			return nil, fmt.Errorf("jobs[%d] (%s): sourcePath and targetPath are required", i, j.ID)
		}
	}

	if cfg.CachePath == "" {
		cfg.CachePath = DefaultCachePath
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// resolveXformType maps a job's YAML string to icp.XformType, defaulting to
// Rigid, matching spec.md §6's "the caller states what class of motion it
// expects" contract.
func resolveXformType(s string) icp.XformType {
	switch s {
	case "translation":
		return icp.Translation
	case "similarity":
		return icp.Similarity
	case "affine":
		return icp.Affine
	default:
		return icp.Rigid
	}
}

// buildJobConfig layers a job's overrides onto icp.DefaultConfig().
func buildJobConfig(j AlignJobConfig) icp.Config {
	cfg := icp.DefaultConfig()
	if j.MaxIters > 0 {
		cfg.MaxIters = j.MaxIters
	}
	if j.DesiredPairs > 0 {
		cfg.DesiredPairs = j.DesiredPairs
	}
	return cfg
}
