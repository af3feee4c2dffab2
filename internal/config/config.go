// Package config loads the JSON run file that lists topics, stores and output paths.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/types"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
)

// Threshold backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Restyle modes select the restyle table when no restyle file is given.
const (
	RestyleModeDefault = "default" // fixed table for the standard topic set
	RestyleModeTopic   = "topic"   // derived from the slide counts of the merged decks
)

// Config is a run file. Empty fields take their value from flags or Defaults.
type Config struct {
	// Thresholds
	ThresholdsBackend string `json:"thresholds_backend,omitempty"` // file, sqlite or postgres
	ThresholdsDir     string `json:"thresholds_dir,omitempty"`     // directory of <metric>.json records
	ThresholdsDB      string `json:"thresholds_db,omitempty"`      // SQLite file

	// Deck
	Style       string `json:"style,omitempty"`        // style file (YAML or JSON)
	Restyle     string `json:"restyle,omitempty"`      // restyle table file (YAML or JSON)
	RestyleMode string `json:"restyle_mode,omitempty"` // used when Restyle is empty
	Output      string `json:"output,omitempty"`       // merged deck path
	ExportDir   string `json:"export_dir,omitempty"`   // per-topic decks and spreadsheets

	// Sinks
	DatabaseURL string    `json:"database_url,omitempty"` // PostgreSQL connection URL
	Verbose     bool      `json:"verbose,omitempty"`      // debug logging and pretty printing
	S3          *S3Config `json:"s3,omitempty"`           // publish merged decks to object storage

	Topics []TopicSpec `json:"topics,omitempty" validate:"dive"`
}

// S3Config names the bucket merged decks are published to.
type S3Config struct {
	Endpoint  string `json:"endpoint,omitempty"`
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	UseSSL    bool   `json:"use_ssl,omitempty"`
}

// TopicSpec describes one topic of a run.
type TopicSpec struct {
	ID           string `json:"id" validate:"required"`
	Title        string `json:"title"`
	TableTitle   string `json:"table_title,omitempty"`
	ChartTitle   string `json:"chart_title,omitempty"`
	MetricType   string `json:"metric_type,omitempty"`
	Table        string `json:"table,omitempty" validate:"required"`
	Chart        string `json:"chart,omitempty" validate:"required"`
	TargetColumn string `json:"target_column,omitempty" validate:"required_with=MetricType"`
	TargetRow    *int   `json:"target_row,omitempty"` // nil means the last row
	DataComment  string `json:"data_comment,omitempty"`
	GraphComment string `json:"graph_comment,omitempty"`
}

// Target returns the classification target of the topic.
func (t TopicSpec) Target() types.ClassificationTarget {
	if t.TargetRow == nil {
		return types.LastRow(t.TargetColumn)
	}
	return types.ClassificationTarget{Column: t.TargetColumn, Row: *t.TargetRow}
}

// Defaults are applied to fields a config file leaves empty.
func Defaults() Config {
	return Config{
		ThresholdsBackend: BackendFile,
		ThresholdsDir:     "thresholds",
		ThresholdsDB:      "thresholds.db",
		RestyleMode:       RestyleModeDefault,
		Output:            "merged.pptx",
	}
}

// LoadConfig loads configuration from a JSON file and validates it against
// the config schema. Relative paths inside the file are resolved against
// the file's directory.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := schemas.Validate(schemafiles.Config, data); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	abs(&c.ThresholdsDir)
	abs(&c.ThresholdsDB)
	abs(&c.Style)
	abs(&c.Restyle)
	abs(&c.Output)
	abs(&c.ExportDir)
	for i := range c.Topics {
		abs(&c.Topics[i].Table)
		abs(&c.Topics[i].Chart)
	}
}

// ApplyEnv overrides fields from environment variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv("THRESHOLDS_DIR"); v != "" {
		c.ThresholdsDir = v
	}

	s3 := S3Config{}
	if c.S3 != nil {
		s3 = *c.S3
	}
	set := false
	for env, field := range map[string]*string{
		"DECK_S3_ENDPOINT":   &s3.Endpoint,
		"DECK_S3_ACCESS_KEY": &s3.AccessKey,
		"DECK_S3_SECRET_KEY": &s3.SecretKey,
		"DECK_S3_BUCKET":     &s3.Bucket,
		"DECK_S3_REGION":     &s3.Region,
	} {
		if v := getenv(env); v != "" {
			*field = v
			set = true
		}
	}
	if v := getenv("DECK_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s3.UseSSL = b
			set = true
		}
	}
	if set {
		c.S3 = &s3
	}
}

// Validate runs after flags and defaults are merged in. Every file the run
// reads must exist.
func (c *Config) Validate() error {
	switch c.ThresholdsBackend {
	case "", BackendFile, BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'thresholds_backend' postgres requires 'database_url'")
		}
	default:
		return fmt.Errorf("config error: unknown thresholds_backend %q", c.ThresholdsBackend)
	}

	switch c.RestyleMode {
	case "", RestyleModeDefault, RestyleModeTopic:
	default:
		return fmt.Errorf("config error: unknown restyle_mode %q", c.RestyleMode)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	seen := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		if seen[t.ID] {
			return fmt.Errorf("config error: topic %q listed twice", t.ID)
		}
		seen[t.ID] = true

		for _, p := range []string{t.Table, t.Chart} {
			if _, err := os.Stat(p); os.IsNotExist(err) {
				return fmt.Errorf("config error: topic %s: file not found: %s", t.ID, p)
			}
		}
	}

	if c.S3 != nil && c.S3.Bucket == "" {
		return fmt.Errorf("config error: 's3' requires 'bucket'")
	}

	if c.Style != "" {
		if _, err := os.Stat(c.Style); os.IsNotExist(err) {
			return fmt.Errorf("config error: style file not found: %s", c.Style)
		}
	}
	if c.Restyle != "" {
		if _, err := os.Stat(c.Restyle); os.IsNotExist(err) {
			return fmt.Errorf("config error: restyle file not found: %s", c.Restyle)
		}
	}

	return nil
}

// MergeWithDefaults fills every empty field of a copy of c from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ThresholdsBackend == "" {
		result.ThresholdsBackend = defaults.ThresholdsBackend
	}
	if result.ThresholdsDir == "" {
		result.ThresholdsDir = defaults.ThresholdsDir
	}
	if result.ThresholdsDB == "" {
		result.ThresholdsDB = defaults.ThresholdsDB
	}
	if result.Style == "" {
		result.Style = defaults.Style
	}
	if result.Restyle == "" {
		result.Restyle = defaults.Restyle
	}
	if result.RestyleMode == "" {
		result.RestyleMode = defaults.RestyleMode
	}
	if result.Output == "" {
		result.Output = defaults.Output
	}
	if result.ExportDir == "" {
		result.ExportDir = defaults.ExportDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.S3 == nil {
		result.S3 = defaults.S3
	}
	if len(result.Topics) == 0 {
		result.Topics = defaults.Topics
	}

	result.Verbose = result.Verbose || defaults.Verbose

	return result
}
