// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bibextract CLI. It reads a list of
// survey paper identifiers, runs the extraction pipeline and writes the
// combined related-work text and bibliography.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/bibextract/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds contact addresses loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// logger is built from --verbose and --log-json before any command runs.
var logger = zap.NewNop()

// rootCmd is the base command for the bibextract CLI.
var rootCmd = &cobra.Command{
	Use:   "bibextract",
	Short: "Extract related-work sections and a merged bibliography from survey papers",
	Long: `bibextract downloads the LaTeX sources of a set of papers, pulls out their
related-work style sections and their bibliographies, merges duplicate
references across papers and optionally checks each reference against
arXiv, DBLP, Crossref and OpenAlex.

The result is one LaTeX fragment whose citations point at one deduplicated
BibTeX file.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		log, err := newLogger(verbose, logJSON)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = log

		s, err := secrets.Load(afero.NewOsFs(), secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bibextract.yaml or ~/.config/bibextract/bibextract.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bibextract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bibextract"))
		}
	}

	viper.SetEnvPrefix("BIBEXTRACT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds a stderr logger: human-readable by default, JSON when
// requested.
func newLogger(verbose, jsonOutput bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if jsonOutput {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
