// =============================================================================
// SPED Toolkit - Configuration Module
// =============================================================================
//
// This module loads the application configuration: where the layout
// descriptor lives, how SPED files are encoded, where outputs go, and how
// the summary report classifies records.
//
// CONFIGURATION FILE:
//   A single YAML file (config.yaml by default). Every setting is optional;
//   missing settings take the defaults below, and a missing default file
//   means "all defaults".
//
// EXAMPLE:
//
//   layout_path: ./layouts/efd_icms_ipi.txt
//   encoding: ISO-8859-1
//   output_dir: ./output
//   output_name_format: "sped_{original}_{timestamp}"
//   currency: BRL
//   summary:
//     direction:
//       entry_digits: "123"
//       exit_digits: "567"
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/sped-toolkit/internal/document"
	"github.com/ginjaninja78/sped-toolkit/internal/summary"
)

// DefaultConfigFile is read when no --config flag is given.
const DefaultConfigFile = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// INPUT SETTINGS
	// =========================================================================

	// LayoutPath is the layout descriptor (text or .xlsx).
	// Without it the toolkit can still show and export raw lines, but
	// anything that addresses fields by name is unavailable.
	LayoutPath string `yaml:"layout_path"`

	// Encoding is the single-byte charset of SPED files.
	// Default: "ISO-8859-1"
	Encoding string `yaml:"encoding"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputDir is where edited documents and exports are written when no
	// explicit output path is given.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// OutputNameFormat defines the base name of generated files.
	// Placeholders:
	//   {original}  - Input file name without extension
	//   {type}      - Record type being edited (empty for exports)
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {date}      - Current date (YYYYMMDD)
	//   {time}      - Current time (HHMMSS)
	// Default: "sped_{original}"
	OutputNameFormat string `yaml:"output_name_format"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile receives the log in addition to stderr. Empty disables it.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// VIEW SETTINGS
	// =========================================================================

	// Currency is the ISO code used to display amounts.
	// Default: "BRL"
	Currency string `yaml:"currency"`

	// ItemsPerPage is the number of matches shown per page.
	// Default: 50
	ItemsPerPage int `yaml:"items_per_page"`

	// FilterFields are suggested filter fields, shown by the layout command
	// when a record type declares them.
	// Default: CFOP, CST_ICMS, COD_ITEM, NUM_DOC, CHV_NFE, CHV_CTE
	FilterFields []string `yaml:"filter_fields"`

	// Summary tunes the aggregation report.
	Summary SummaryConfig `yaml:"summary"`
}

// =============================================================================
// SUMMARY CONFIGURATION STRUCTURE
// =============================================================================

// SummaryConfig defines which records the summary reads and how it groups
// them.
type SummaryConfig struct {
	// Interest maps record types to the fields read from them.
	// Default: C100, C170 and D100 with their ICMS fields.
	Interest map[string][]string `yaml:"interest"`

	// AmountPrefixes mark monetary fields by name prefix.
	// Default: ["VL_"]
	AmountPrefixes []string `yaml:"amount_prefixes"`

	// ClassificationField is the code records are grouped by.
	// Default: "CFOP"
	ClassificationField string `yaml:"classification_field"`

	// Direction configures the entry / exit classification.
	Direction DirectionConfig `yaml:"direction"`
}

// DirectionConfig mirrors summary.DirectionPolicy.
//
// The explicit field is used when every aggregated record carries it.
// Otherwise the first digit of the classification code decides:
// EntryDigits and ExitDigits list the digits of each side.
type DirectionConfig struct {
	Field       string `yaml:"field"`
	EntryValue  string `yaml:"entry_value"`
	ExitValue   string `yaml:"exit_value"`
	EntryDigits string `yaml:"entry_digits"`
	ExitDigits  string `yaml:"exit_digits"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration with every default applied.
func Default() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// LoadMainConfig loads the main configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed, or holds invalid
//     settings.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads configPath. A missing file at the default location
// yields Default(); a missing file anywhere else is an error.
func LoadOrDefault(configPath string) (*MainConfig, error) {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	config, err := LoadMainConfig(configPath)
	if err != nil && configPath == DefaultConfigFile && errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.Encoding == "" {
		config.Encoding = "ISO-8859-1"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "sped_{original}"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Currency == "" {
		config.Currency = "BRL"
	}
	if config.ItemsPerPage == 0 {
		config.ItemsPerPage = 50
	}
	if len(config.FilterFields) == 0 {
		config.FilterFields = []string{"CFOP", "CST_ICMS", "COD_ITEM", "NUM_DOC", "CHV_NFE", "CHV_CTE"}
	}

	s := &config.Summary
	if len(s.Interest) == 0 {
		s.Interest = summary.DefaultInterest()
	}
	if len(s.AmountPrefixes) == 0 {
		s.AmountPrefixes = summary.DefaultAmountPrefixes
	}
	if s.ClassificationField == "" {
		s.ClassificationField = "CFOP"
	}

	d := summary.DefaultDirectionPolicy()
	if s.Direction.Field == "" {
		s.Direction.Field = d.Field
	}
	if s.Direction.EntryValue == "" {
		s.Direction.EntryValue = d.EntryValue
	}
	if s.Direction.ExitValue == "" {
		s.Direction.ExitValue = d.ExitValue
	}
	if s.Direction.EntryDigits == "" && s.Direction.ExitDigits == "" {
		s.Direction.EntryDigits = d.EntryDigits
		s.Direction.ExitDigits = d.ExitDigits
	}
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if _, err := document.LookupEncoding(config.Encoding); err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", config.LogLevel)
	}

	if config.ItemsPerPage < 0 {
		return fmt.Errorf("items_per_page: must be positive, got %d", config.ItemsPerPage)
	}

	d := config.Summary.Direction
	if d.EntryValue == d.ExitValue {
		return fmt.Errorf("summary.direction: entry_value and exit_value are both %q", d.EntryValue)
	}
	for _, r := range d.EntryDigits + d.ExitDigits {
		if r < '0' || r > '9' {
			return fmt.Errorf("summary.direction: %q is not a digit", r)
		}
	}
	for _, r := range d.EntryDigits {
		if strings.ContainsRune(d.ExitDigits, r) {
			return fmt.Errorf("summary.direction: digit %q is both entry and exit", r)
		}
	}

	return nil
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// SummaryOptions converts the summary settings into aggregation options.
func (c *MainConfig) SummaryOptions() summary.Options {
	s := c.Summary
	return summary.Options{
		AmountPrefixes:      s.AmountPrefixes,
		ClassificationField: s.ClassificationField,
		Direction: summary.DirectionPolicy{
			Field:       s.Direction.Field,
			EntryValue:  s.Direction.EntryValue,
			ExitValue:   s.Direction.ExitValue,
			CodeField:   s.ClassificationField,
			EntryDigits: s.Direction.EntryDigits,
			ExitDigits:  s.Direction.ExitDigits,
		},
	}
}

// Interest returns the record types and fields the summary reads.
func (c *MainConfig) Interest() summary.Interest {
	return summary.Interest(c.Summary.Interest)
}
