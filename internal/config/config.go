// Package config loads the pipeline configuration from a YAML file, a .env
// file and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/KyungWonPark/MovieISC/internal/errors"
)

// Config represents the pipeline configuration
type Config struct {
	// Root is the shared project directory; relative paths below are resolved against it
	Root string `yaml:"root"`

	Paths Paths `yaml:"paths"`
	Study Study `yaml:"study"`

	// MaskThreshold is the fraction of subjects a voxel must be present in to enter the group mask
	MaskThreshold float64 `yaml:"maskThreshold"`

	Bootstrap Bootstrap `yaml:"bootstrap"`

	// Workers bounds row-wise kernels and per-parcel bootstrap jobs
	Workers int `yaml:"workers"`

	// Alpha is the FWE significance threshold for formatted tables
	Alpha float64 `yaml:"alpha"`

	Render map[string]RenderPreset `yaml:"render"`
	Jobs   map[string]Job          `yaml:"jobs"`

	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
	LedgerPath  string `yaml:"ledgerPath"`
	MetricsPath string `yaml:"metricsPath"`
}

// Paths holds the filesystem layout
type Paths struct {
	Roster      string `yaml:"roster"`
	RealPairs   string `yaml:"realPairs"`
	PairList    string `yaml:"pairList"`
	Atlas       string `yaml:"atlas"`
	AtlasLabels string `yaml:"atlasLabels"`
	GroupMask   string `yaml:"groupMask"`

	// SubjectMask and MovieVolume are patterns with {pid} and {movie} placeholders
	SubjectMask string `yaml:"subjectMask"`
	MovieVolume string `yaml:"movieVolume"`

	TimeSeries     string `yaml:"timeSeries"`
	ISCMatrices    string `yaml:"iscMatrices"`
	ISCResults     string `yaml:"iscResults"`
	ISCDataframes  string `yaml:"iscDataframes"`
	DistMatrices   string `yaml:"distMatrices"`
	DistDataframes string `yaml:"distDataframes"`

	ControlMatrices    string `yaml:"controlMatrices"`
	ControlDataframes  string `yaml:"controlDataframes"`
	FeaturesRDM        string `yaml:"featuresRDM"`
	FeaturesVariable   string `yaml:"featuresVariable"`
	NamingRDM          string `yaml:"namingRDM"`
	NamingVariable     string `yaml:"namingVariable"`
	BehaviorDataframes string `yaml:"behaviorDataframes"`

	ANOVAResults       string `yaml:"anovaResults"`
	ISRSAResults       string `yaml:"isrsaResults"`
	ISRSAFormatted     string `yaml:"isrsaFormatted"`
	ISCVisualization   string `yaml:"iscVisualization"`
	ISRSAVisualization string `yaml:"isrsaVisualization"`
}

// Study holds the fixed enumerations of the experiment
type Study struct {
	Movies  []string `yaml:"movies"`
	Parcels int      `yaml:"parcels"`
	// Items is the number of stimulus items per phase in the behavioural RDMs
	Items      int      `yaml:"items"`
	ISRSATasks []string `yaml:"isrsaTasks"`
}

// Bootstrap holds ISC significance-testing settings
type Bootstrap struct {
	N         int     `yaml:"n"`
	Seed      int64   `yaml:"seed"`
	CIPercent float64 `yaml:"ciPercent"`
}

// RenderPreset holds per-analysis glass-brain settings
type RenderPreset struct {
	VMin      float64 `yaml:"vmin"`
	VMax      float64 `yaml:"vmax"`
	Colormap  string  `yaml:"colormap"`
	Threshold float64 `yaml:"threshold"`
	// ValueColumn and PColumn name the columns read from a statistics table
	ValueColumn string `yaml:"valueColumn"`
	PColumn     string `yaml:"pColumn"`
	// ParcelColumn maps rows to parcels; when empty row i is parcel i+1
	ParcelColumn string `yaml:"parcelColumn"`
	DPI          int    `yaml:"dpi"`
}

// Job holds scheduler resource requests for one stage
type Job struct {
	Command  string `yaml:"command"`
	CPUs     int    `yaml:"cpus"`
	Walltime string `yaml:"walltime"`
	Memory   string `yaml:"memory"`
}

// DefaultMovies is the fixed movie enumeration
var DefaultMovies = []string{"movie1", "movie2", "movie3", "movie4", "movie5", "movie6", "movie7", "movie8"}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{
		Root: ".",
		Paths: Paths{
			Roster:      "MRI/subjectlist_age_sex.csv",
			RealPairs:   "MRI/real_pair_list.csv",
			PairList:    "MRI/all_pair_list_with_reverse.csv",
			Atlas:       "MRI/Brainnetome_atlas/BN_Atlas_210_cortical_2mm.nii.gz",
			AtlasLabels: "MRI/Brainnetome_atlas/Brainnetome_labels_cortical.csv",
			GroupMask:   "MRI/groupmask_movies.nii.gz",
			SubjectMask: "MRI/BIDS_movie/derivatives/fmriprep/sub-{pid}/func/sub-{pid}_space-MNI152NLin2009cAsym_desc-brain_mask.nii.gz",
			MovieVolume: "MRI/BIDS_movie/derivatives/nilearn/sub-{pid}/s_{movie}_img.nii.gz",

			TimeSeries:     "MRI/BIDS_movie/derivatives/secLev_nltools_ISC_ROI/Brainnetome/csv_files",
			ISCMatrices:    "Scripts/03_2ndLev_ISC/matrices",
			ISCResults:     "Scripts/03_2ndLev_ISC/py_output_permutation",
			ISCDataframes:  "Scripts/03_2ndLev_ISC/dataframes",
			DistMatrices:   "Scripts/04_2ndLev_ISRSA/matrices",
			DistDataframes: "Scripts/04_2ndLev_ISRSA/dataframes",

			ControlMatrices:    "Scripts/04_2ndLev_ISRSA/matrices",
			ControlDataframes:  "Scripts/04_2ndLev_ISRSA/dfs_control",
			FeaturesRDM:        "DistanceMatrices/features_Mahalanobis_large_matrix_56pairs.mat",
			FeaturesVariable:   "B2",
			NamingRDM:          "DistanceMatrices/namesRDM.mat",
			NamingVariable:     "naming_RDM",
			BehaviorDataframes: "Scripts/04_2ndLev_ISRSA/dfs_behavior",

			ANOVAResults:       "Scripts/03_2ndLev_ISC/r_output_anova/isc_anova.csv",
			ISRSAResults:       "Scripts/04_2ndLev_ISRSA/r_output",
			ISRSAFormatted:     "Scripts/04_2ndLev_ISRSA/r_output/formatted",
			ISCVisualization:   "Scripts/03_2ndLev_ISC/visualizations",
			ISRSAVisualization: "Scripts/04_2ndLev_ISRSA/visualizations",
		},
		Study: Study{
			Movies:     append([]string(nil), DefaultMovies...),
			Parcels:    210,
			Items:      16,
			ISRSATasks: []string{"features_post", "features_pre", "naming_post", "naming_pre"},
		},
		MaskThreshold: 0.8,
		Bootstrap: Bootstrap{
			N:         10000,
			Seed:      1,
			CIPercent: 95,
		},
		Workers: runtime.NumCPU(),
		Alpha:   0.05,
		Render: map[string]RenderPreset{
			"mean_isc": {VMin: -0.5, VMax: 0.5, Colormap: "viridis", Threshold: 0, ValueColumn: "ISC", ParcelColumn: "parcel", DPI: 400},
			"anova":    {VMin: 0, VMax: 20, Colormap: "plasma", Threshold: 0.05, ValueColumn: "Fval", PColumn: "pfwe", DPI: 400},
			"isrsa":    {VMin: -6, VMax: 6, Colormap: "inferno", Threshold: 0.05, ValueColumn: "statistic", PColumn: "pvalFWE", ParcelColumn: "Parcel", DPI: 400},
		},
		Jobs: map[string]Job{
			"extract":    {Command: "extract", CPUs: 1, Walltime: "48:00:00", Memory: "128gb"},
			"matrices":   {Command: "matrices", CPUs: 1, Walltime: "48:00:00", Memory: "128gb"},
			"dataframes": {Command: "dataframes", CPUs: 1, Walltime: "01:00:00", Memory: "8gb"},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}

	return cfg
}

// LoadConfig loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file yields the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "reading config file %s", configPath)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("parsing config file %s: %w", configPath, err))
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks invariants the stages rely on
func (c *Config) Validate() error {
	if len(c.Study.Movies) == 0 {
		return errors.ConfigInvalid("study.movies must not be empty")
	}
	if c.Study.Parcels < 1 {
		return errors.ConfigInvalid("study.parcels must be positive")
	}
	if c.MaskThreshold <= 0 || c.MaskThreshold > 1 {
		return errors.ConfigInvalid("maskThreshold must be in (0, 1]")
	}
	if c.Bootstrap.N < 1 {
		return errors.ConfigInvalid("bootstrap.n must be positive")
	}
	if c.Bootstrap.CIPercent <= 0 || c.Bootstrap.CIPercent >= 100 {
		return errors.ConfigInvalid("bootstrap.ciPercent must be in (0, 100)")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	for name, p := range c.Render {
		if p.VMax <= p.VMin {
			return errors.ConfigInvalid(fmt.Sprintf("render.%s: vmax must exceed vmin", name))
		}
	}
	return nil
}

// Path resolves p against Root unless it is absolute
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// Preset returns the named render preset
func (c *Config) Preset(name string) (RenderPreset, error) {
	p, ok := c.Render[name]
	if !ok {
		return RenderPreset{}, errors.ConfigInvalid(fmt.Sprintf("render preset %q not configured", name))
	}
	return p, nil
}

func applyEnv(cfg *Config) {
	cfg.Root = getEnvOrDefault("PROJECT_ROOT", cfg.Root)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LedgerPath = getEnvOrDefault("LEDGER_PATH", cfg.LedgerPath)
	cfg.MetricsPath = getEnvOrDefault("METRICS_PATH", cfg.MetricsPath)
	cfg.Workers = getEnvIntOrDefault("WORKERS", cfg.Workers)
	cfg.Bootstrap.N = getEnvIntOrDefault("N_BOOTSTRAPS", cfg.Bootstrap.N)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
