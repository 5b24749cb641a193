package config

import (
	"os"
	"strconv"
	"strings"

	"surveyprep/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Pipeline  PipelineConfig
	Weighting WeightingConfig
	Paths     PathConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional run-history database settings.
// An empty URL disables persistence entirely.
type DatabaseConfig struct {
	URL string
}

// PipelineConfig holds the step toggles and the naming conventions that
// drive schema resolution.
type PipelineConfig struct {
	RunMissingValueHandling bool
	RunWeightCalculation    bool
	RunLabelEncoding        bool
	RunTidyExport           bool

	// Naming conventions. MRPattern must expose two capture groups:
	// the set name and the option suffix.
	MRPattern    string
	LabelSuffix  string
	SkipSentinel string
	SkipRules    string // "dep<=gate{v1,v2};dep2<=gate2{v}" declarations
	IDColumn     string // empty means auto-detect
	DropTextCols bool
}

// WeightingConfig holds sampling-weight settings
type WeightingConfig struct {
	StrataColumns []string
	ShareColumn   string
	Rescale       bool
}

// PathConfig holds file system paths
type PathConfig struct {
	OutputDir string
}

// Defaults for the naming conventions, documented alongside the env vars
// that override them.
const (
	DefaultMRPattern    = `^(.+?)_(\d+)$`
	DefaultLabelSuffix  = "(TEXT)"
	DefaultSkipSentinel = "스킵(해당 없음)"
	DefaultShareColumn  = "pop_share"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Pipeline: PipelineConfig{
			RunMissingValueHandling: getEnvBoolOrDefault("RUN_MISSING_VALUE_HANDLING", true),
			RunWeightCalculation:    getEnvBoolOrDefault("RUN_WEIGHT_CALCULATION", false),
			RunLabelEncoding:        getEnvBoolOrDefault("RUN_LABEL_ENCODING", false),
			RunTidyExport:           getEnvBoolOrDefault("RUN_TIDY_EXPORT", false),
			MRPattern:               getEnvOrDefault("MR_PATTERN", DefaultMRPattern),
			LabelSuffix:             getEnvOrDefault("LABEL_SUFFIX", DefaultLabelSuffix),
			SkipSentinel:            getEnvOrDefault("SKIP_SENTINEL", DefaultSkipSentinel),
			SkipRules:               os.Getenv("SKIP_RULES"),
			IDColumn:                os.Getenv("ID_COLUMN"),
			DropTextCols:            getEnvBoolOrDefault("DROP_TEXT_COLUMNS", true),
		},
		Weighting: WeightingConfig{
			StrataColumns: splitList(os.Getenv("WEIGHT_STRATA")),
			ShareColumn:   getEnvOrDefault("POP_SHARE_COLUMN", DefaultShareColumn),
			Rescale:       getEnvBoolOrDefault("WEIGHT_RESCALE", false),
		},
		Paths: PathConfig{
			OutputDir: getEnvOrDefault("OUTPUT_DIR", "outputs"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT cannot be empty")
	}
	if config.Pipeline.MRPattern == "" {
		return errors.ConfigInvalid("MR_PATTERN cannot be empty")
	}
	if config.Pipeline.SkipSentinel == "" {
		return errors.ConfigInvalid("SKIP_SENTINEL cannot be empty")
	}
	if config.Pipeline.RunWeightCalculation && len(config.Weighting.StrataColumns) == 0 {
		return errors.ConfigInvalid("RUN_WEIGHT_CALCULATION requires WEIGHT_STRATA")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
