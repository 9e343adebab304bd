package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/locomotion.report/internal/binning"
	"github.com/banshee-data/locomotion.report/internal/fsutil"
	"github.com/banshee-data/locomotion.report/internal/units"
)

// DefaultConfigPath is the path to the canonical analysis defaults file.
const DefaultConfigPath = "config/analysis.defaults.json"

// AnalysisConfig holds the parameters of one binned regression run. Every
// field is optional; the Get* accessors supply defaults for omitted fields.
type AnalysisConfig struct {
	// Binning
	BinWidthSecs *float64 `json:"bin_width_secs,omitempty"`
	Aggregate    *string  `json:"aggregate,omitempty"` // "mean" or "median"

	// Regression
	TrainFraction *float64 `json:"train_fraction,omitempty"`
	FitIntercept  *bool    `json:"fit_intercept,omitempty"`
	Center        *bool    `json:"center,omitempty"`

	// Acquisition
	CellIndex  *int    `json:"cell_index,omitempty"`
	SpeedUnits *string `json:"speed_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns an AnalysisConfig with all fields set to nil.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		BinWidthSecs:  ptrFloat64(5),
		Aggregate:     ptrString(binning.AggregateMean),
		TrainFraction: ptrFloat64(0.5),
		FitIntercept:  ptrBool(true),
		Center:        ptrBool(true),
		CellIndex:     ptrInt(0),
		SpeedUnits:    ptrString(units.CMPS),
	}
}

// LoadAnalysisConfig loads an AnalysisConfig from a JSON file on disk.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	return LoadAnalysisConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadAnalysisConfigFS loads an AnalysisConfig from a JSON file in fsys.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file fall back to their defaults.
func LoadAnalysisConfigFS(fsys fsutil.FileSystem, path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	if !fsys.Exists(cleanPath) {
		return nil, fmt.Errorf("config file not found: %s", cleanPath)
	}

	f, err := fsys.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	fileInfo, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *AnalysisConfig) Validate() error {
	if c.BinWidthSecs != nil {
		w := *c.BinWidthSecs
		if !binning.ValidWidth(w) {
			return fmt.Errorf("bin_width_secs must be a finite positive number, got %v", w)
		}
	}

	if c.Aggregate != nil {
		if _, err := binning.AggregatorByName(*c.Aggregate); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
	}

	if c.TrainFraction != nil {
		if f := *c.TrainFraction; !(f > 0 && f < 1) {
			return fmt.Errorf("train_fraction must be between 0 and 1 (exclusive), got %v", f)
		}
	}

	if c.CellIndex != nil && *c.CellIndex < 0 {
		return fmt.Errorf("cell_index must be non-negative, got %d", *c.CellIndex)
	}

	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}

	return nil
}

// GetBinWidthSecs returns the bin_width_secs value or the default.
func (c *AnalysisConfig) GetBinWidthSecs() float64 {
	if c.BinWidthSecs == nil {
		return 5.0
	}
	return *c.BinWidthSecs
}

// GetAggregate returns the aggregate value or the default.
func (c *AnalysisConfig) GetAggregate() string {
	if c.Aggregate == nil || *c.Aggregate == "" {
		return binning.AggregateMean
	}
	return *c.Aggregate
}

// GetTrainFraction returns the train_fraction value or the default.
func (c *AnalysisConfig) GetTrainFraction() float64 {
	if c.TrainFraction == nil {
		return 0.5
	}
	return *c.TrainFraction
}

// GetFitIntercept returns the fit_intercept value or the default.
func (c *AnalysisConfig) GetFitIntercept() bool {
	if c.FitIntercept == nil {
		return true
	}
	return *c.FitIntercept
}

// GetCenter returns the center value or the default.
func (c *AnalysisConfig) GetCenter() bool {
	if c.Center == nil {
		return true
	}
	return *c.Center
}

// GetCellIndex returns the cell_index value or the default.
func (c *AnalysisConfig) GetCellIndex() int {
	if c.CellIndex == nil {
		return 0
	}
	return *c.CellIndex
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *AnalysisConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil || *c.SpeedUnits == "" {
		return units.CMPS
	}
	return *c.SpeedUnits
}
