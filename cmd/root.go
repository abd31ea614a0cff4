// =============================================================================
// SPED Toolkit - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it and shares its configuration and logger.
//
// COBRA CLI STRUCTURE:
//   rootCmd (sped)
//   ├── viewCmd     (sped view FILE)
//   ├── typesCmd    (sped types FILE)
//   ├── layoutCmd   (sped layout [TYPE])
//   ├── filterCmd   (sped filter FILE --type T)
//   ├── editCmd     (sped edit FILE --type T --set NAME=VALUE)
//   ├── summaryCmd  (sped summary FILE)
//   ├── exportCmd   (sped export FILE --format xlsx|csv)
//   └── versionCmd  (sped version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --layout, --encoding)
//   2. Loading the configuration file before any subcommand runs
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/sped-toolkit/internal/config"
	"github.com/ginjaninja78/sped-toolkit/internal/session"
	"github.com/ginjaninja78/sped-toolkit/pkg/utils"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// layoutPath and encodingName override the configuration file.
var (
	layoutPath   string
	encodingName string
)

// cfg and logger are set up by the root command before any subcommand runs.
var (
	cfg    *config.MainConfig
	logger = logrus.New()
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sped",
	Short: "SPED Toolkit - Inspect, edit and summarize SPED fiscal files",
	Long: `SPED Toolkit reads pipe-delimited SPED fiscal files, lets you find and
bulk-edit records by field name, and produces summaries and exports.

Key Features:
  - Field names resolved from a layout descriptor (text or XLSX)
  - Byte-exact rewrite: encoding, line endings and the signature block are
    preserved
  - Bulk edits over filtered records with per-line warnings
  - ICMS summary by CFOP and by operation direction
  - Excel and semicolon separated exports

Example Usage:
  sped types efd.txt
  sped filter efd.txt --type C170 --where CFOP=5102
  sped edit efd.txt --type C170 --where CFOP=5102 --set CFOP=5405 --all
  sped summary efd.txt --xlsx resumo.xlsx`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	rootCmd.PersistentFlags().StringVar(
		&layoutPath,
		"layout",
		"",
		"Layout descriptor (overrides layout_path)",
	)

	rootCmd.PersistentFlags().StringVar(
		&encodingName,
		"encoding",
		"",
		"Single-byte encoding of the SPED file (overrides encoding)",
	)
}

// initConfig loads the configuration, applies flag overrides and sets up
// the logger.
func initConfig() error {
	loaded, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	if layoutPath != "" {
		cfg.LayoutPath = layoutPath
	}
	if encodingName != "" {
		cfg.Encoding = encodingName
	}

	return setupLogger()
}

func setupLogger() error {
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	logger.SetOutput(out)
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// openSession opens the SPED file named by the first argument.
func openSession(path string) (*session.Session, error) {
	return session.Open(path, cfg, logger)
}

// fileManager returns the output file manager for the current config.
func fileManager() *utils.FileManager {
	return utils.NewFileManager(cfg.OutputDir, cfg.OutputNameFormat)
}

// parseAssignments turns NAME=VALUE flags into a map.
func parseAssignments(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--%s %q: expected NAME=VALUE", flag, v)
		}
		out[name] = value
	}
	return out, nil
}
