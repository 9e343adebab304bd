package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/locomotion.report/internal/fsutil"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultAnalysisConfig(t *testing.T) {
	cfg := DefaultAnalysisConfig()

	if cfg.BinWidthSecs == nil || *cfg.BinWidthSecs != 5 {
		t.Errorf("Expected BinWidthSecs 5, got %v", cfg.BinWidthSecs)
	}
	if cfg.TrainFraction == nil || *cfg.TrainFraction != 0.5 {
		t.Errorf("Expected TrainFraction 0.5, got %v", cfg.TrainFraction)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := EmptyAnalysisConfig()

	if got := cfg.GetBinWidthSecs(); got != 5.0 {
		t.Errorf("GetBinWidthSecs() = %v, want 5", got)
	}
	if got := cfg.GetAggregate(); got != "mean" {
		t.Errorf("GetAggregate() = %q, want mean", got)
	}
	if got := cfg.GetTrainFraction(); got != 0.5 {
		t.Errorf("GetTrainFraction() = %v, want 0.5", got)
	}
	if !cfg.GetFitIntercept() {
		t.Error("GetFitIntercept() = false, want true")
	}
	if !cfg.GetCenter() {
		t.Error("GetCenter() = false, want true")
	}
	if got := cfg.GetCellIndex(); got != 0 {
		t.Errorf("GetCellIndex() = %d, want 0", got)
	}
	if got := cfg.GetSpeedUnits(); got != "cmps" {
		t.Errorf("GetSpeedUnits() = %q, want cmps", got)
	}
}

func TestLoadAnalysisConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{
  "bin_width_secs": 2.5,
  "aggregate": "median",
  "train_fraction": 0.75,
  "fit_intercept": false,
  "cell_index": 3,
  "speed_units": "mps"
}`)

	cfg, err := LoadAnalysisConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetBinWidthSecs(); got != 2.5 {
		t.Errorf("GetBinWidthSecs() = %v, want 2.5", got)
	}
	if got := cfg.GetAggregate(); got != "median" {
		t.Errorf("GetAggregate() = %q, want median", got)
	}
	if got := cfg.GetTrainFraction(); got != 0.75 {
		t.Errorf("GetTrainFraction() = %v, want 0.75", got)
	}
	if cfg.GetFitIntercept() {
		t.Error("GetFitIntercept() = true, want false")
	}
	// center omitted, falls back to default
	if !cfg.GetCenter() {
		t.Error("GetCenter() = false, want default true")
	}
	if got := cfg.GetCellIndex(); got != 3 {
		t.Errorf("GetCellIndex() = %d, want 3", got)
	}
	if got := cfg.GetSpeedUnits(); got != "mps" {
		t.Errorf("GetSpeedUnits() = %q, want mps", got)
	}
}

func TestLoadAnalysisConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"wrong extension", "run.yaml", `{}`, ".json extension"},
		{"bad json", "run.json", `{"bin_width_secs":`, "failed to parse"},
		{"zero width", "run.json", `{"bin_width_secs": 0}`, "bin_width_secs"},
		{"negative width", "run.json", `{"bin_width_secs": -1}`, "bin_width_secs"},
		{"fraction one", "run.json", `{"train_fraction": 1}`, "train_fraction"},
		{"fraction zero", "run.json", `{"train_fraction": 0}`, "train_fraction"},
		{"unknown aggregate", "run.json", `{"aggregate": "max"}`, "aggregate"},
		{"negative cell", "run.json", `{"cell_index": -2}`, "cell_index"},
		{"unknown units", "run.json", `{"speed_units": "knots"}`, "speed_units"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.body)
			_, err := LoadAnalysisConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadAnalysisConfig_Missing(t *testing.T) {
	_, err := LoadAnalysisConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAnalysisConfigFS(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.AddFile("/etc/locomotion/run.json", []byte(`{"bin_width_secs": 1.5, "center": false}`))

	cfg, err := LoadAnalysisConfigFS(mfs, "/etc/locomotion/../locomotion/run.json")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if got := cfg.GetBinWidthSecs(); got != 1.5 {
		t.Errorf("GetBinWidthSecs() = %v, want 1.5", got)
	}
	if cfg.GetCenter() {
		t.Error("GetCenter() = true, want false")
	}
	if got := cfg.GetTrainFraction(); got != 0.5 {
		t.Errorf("GetTrainFraction() = %v, want default 0.5", got)
	}

	_, err = LoadAnalysisConfigFS(mfs, "/etc/locomotion/absent.json")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	mfs.AddFile("big.json", []byte(`{}`+strings.Repeat(" ", 1024*1024)))
	_, err = LoadAnalysisConfigFS(mfs, "big.json")
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestLoadAnalysisConfig_TooLarge(t *testing.T) {
	big := `{"bin_width_secs": 5` + strings.Repeat(" ", 1024*1024) + `}`
	path := writeConfig(t, "big.json", big)
	_, err := LoadAnalysisConfig(path)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if got := cfg.GetBinWidthSecs(); got != 5 {
		t.Errorf("defaults file bin_width_secs = %v, want 5", got)
	}
	if got := cfg.GetSpeedUnits(); got != "cmps" {
		t.Errorf("defaults file speed_units = %q, want cmps", got)
	}
}

func TestValidate_BinWidthMatchesBinning(t *testing.T) {
	for _, w := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -0.5} {
		cfg := EmptyAnalysisConfig()
		cfg.BinWidthSecs = &w
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bin_width_secs") {
			t.Errorf("Validate(bin_width_secs=%v) = %v, want bin_width_secs error", w, err)
		}
	}
}
