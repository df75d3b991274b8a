// Package config loads and validates the core's runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/HanzoRazer/luthiers-toolbox-sub009/internal/domain"
)

// LimitsConfig holds the resource ceilings of the geometry safety layer.
type LimitsConfig struct {
	MaxBytesStandard int     `json:"max_bytes_standard"`
	MaxBytesElevated int     `json:"max_bytes_elevated"`
	MaxEntities      int     `json:"max_entities"`
	MaxDepth         int     `json:"max_depth"`
	MaxIterations    int     `json:"max_iterations"`
	TimeoutSec       float64 `json:"timeout_sec"`
}

// PlannerConfig holds the toolpath generation thresholds.
type PlannerConfig struct {
	MaxPasses           int     `json:"max_passes"`
	CellSizeMM          float64 `json:"cell_size_mm"`
	MergeToleranceMM    float64 `json:"merge_tolerance_mm"`
	EngagementThreshold float64 `json:"engagement_threshold_deg"`
	TrochoidRadiusMM    float64 `json:"trochoid_radius_mm"`
	MinFilletAngleDeg   float64 `json:"min_fillet_angle_deg"`
	MinFilletRadiusMM   float64 `json:"min_fillet_radius_mm"`
	FeedFloorFraction   float64 `json:"feed_floor_fraction"`
}

// MachineConfig holds the kinematic and safety envelope used by simulation.
type MachineConfig struct {
	SafeHeightMM   float64 `json:"safe_height_mm"`
	MinFeed        float64 `json:"min_feed_mm_min"`
	MaxFeed        float64 `json:"max_feed_mm_min"`
	AccelMMPerSec2 float64 `json:"accel_mm_per_sec2"`
	RapidFeed      float64 `json:"rapid_feed_mm_min"`
	StockClearance float64 `json:"stock_clearance_mm"`
}

// Config holds the core's runtime configuration.
type Config struct {
	DBPath      string        `json:"db_path"`
	ListenAddr  string        `json:"listen_addr"`
	WorkerCount int           `json:"worker_count"`
	Limits      LimitsConfig  `json:"limits"`
	Planner     PlannerConfig `json:"planner"`
	Machine     MachineConfig `json:"machine"`
}

// Load reads a JSON config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a configuration with every field at its documented default.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-value fields with documented defaults.
func (c *Config) ApplyDefaults() {
	if c.DBPath == "" {
		c.DBPath = "camcore.db"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":9810"
	}
	if c.WorkerCount == 0 {
		c.WorkerCount = 4
	}

	if c.Limits.MaxBytesStandard == 0 {
		c.Limits.MaxBytesStandard = 2 << 20 // 2 MiB
	}
	if c.Limits.MaxBytesElevated == 0 {
		c.Limits.MaxBytesElevated = 16 << 20 // 16 MiB
	}
	if c.Limits.MaxEntities == 0 {
		c.Limits.MaxEntities = 200_000
	}
	if c.Limits.MaxDepth == 0 {
		c.Limits.MaxDepth = 10_000
	}
	if c.Limits.MaxIterations == 0 {
		c.Limits.MaxIterations = 2_000_000
	}
	if c.Limits.TimeoutSec == 0 {
		c.Limits.TimeoutSec = 20
	}

	if c.Planner.MaxPasses == 0 {
		c.Planner.MaxPasses = 500
	}
	if c.Planner.CellSizeMM == 0 {
		c.Planner.CellSizeMM = 0.1
	}
	if c.Planner.MergeToleranceMM == 0 {
		c.Planner.MergeToleranceMM = 0.01
	}
	if c.Planner.EngagementThreshold == 0 {
		c.Planner.EngagementThreshold = 120
	}
	if c.Planner.TrochoidRadiusMM == 0 {
		c.Planner.TrochoidRadiusMM = 1.0
	}
	if c.Planner.MinFilletAngleDeg == 0 {
		c.Planner.MinFilletAngleDeg = 30
	}
	if c.Planner.MinFilletRadiusMM == 0 {
		c.Planner.MinFilletRadiusMM = 0.5
	}
	if c.Planner.FeedFloorFraction == 0 {
		c.Planner.FeedFloorFraction = 0.25
	}

	if c.Machine.SafeHeightMM == 0 {
		c.Machine.SafeHeightMM = 5
	}
	if c.Machine.MinFeed == 0 {
		c.Machine.MinFeed = 10
	}
	if c.Machine.MaxFeed == 0 {
		c.Machine.MaxFeed = 5000
	}
	if c.Machine.AccelMMPerSec2 == 0 {
		c.Machine.AccelMMPerSec2 = 500
	}
	if c.Machine.RapidFeed == 0 {
		c.Machine.RapidFeed = 3000
	}
	if c.Machine.StockClearance == 0 {
		c.Machine.StockClearance = 1.0
	}
}

// SafetyLimits converts the limits section into the immutable process-wide
// SafetyLimits value shared across tasks.
func (c *Config) SafetyLimits() domain.SafetyLimits {
	return domain.SafetyLimits{
		MaxBytesStandard: c.Limits.MaxBytesStandard,
		MaxBytesElevated: c.Limits.MaxBytesElevated,
		MaxEntities:      c.Limits.MaxEntities,
		MaxDepth:         c.Limits.MaxDepth,
		MaxIterations:    c.Limits.MaxIterations,
		TimeoutSec:       c.Limits.TimeoutSec,
	}
}

// Validate checks the configuration for inconsistencies. All problems are
// collected into a single typed error.
func (c *Config) Validate() error {
	var problems []string

	if c.WorkerCount < 1 {
		problems = append(problems, "worker_count must be at least 1")
	}
	if c.Limits.MaxBytesElevated < c.Limits.MaxBytesStandard {
		problems = append(problems, "max_bytes_elevated must be >= max_bytes_standard")
	}
	if c.Limits.MaxDepth < 1 {
		problems = append(problems, "max_depth must be positive")
	}
	if c.Limits.MaxIterations < 1 {
		problems = append(problems, "max_iterations must be positive")
	}
	if c.Limits.TimeoutSec <= 0 {
		problems = append(problems, "timeout_sec must be positive")
	}
	if c.Planner.MaxPasses < 1 {
		problems = append(problems, "max_passes must be positive")
	}
	if c.Planner.CellSizeMM <= 0 {
		problems = append(problems, "cell_size_mm must be positive")
	}
	if c.Planner.FeedFloorFraction <= 0 || c.Planner.FeedFloorFraction > 1 {
		problems = append(problems, "feed_floor_fraction must be in (0, 1]")
	}
	if c.Machine.MinFeed >= c.Machine.MaxFeed {
		problems = append(problems, "min_feed_mm_min must be below max_feed_mm_min")
	}
	if c.Machine.AccelMMPerSec2 <= 0 {
		problems = append(problems, "accel_mm_per_sec2 must be positive")
	}

	if len(problems) > 0 {
		return &domain.CoreError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}
