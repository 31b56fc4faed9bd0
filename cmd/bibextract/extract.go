// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bibextract/internal/export"
	"github.com/pdiddy/bibextract/internal/extract"
	"github.com/pdiddy/bibextract/internal/metrics"
	"github.com/pdiddy/bibextract/internal/secrets"
	"github.com/pdiddy/bibextract/internal/survey"
	"github.com/pdiddy/bibextract/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [identifiers...]",
	Short: "Extract related-work sections and a merged bibliography",
	Long: `Extract downloads the source archive of every paper (arXiv IDs, arXiv URLs,
or direct archive URLs), extracts the related-work style sections and the
bibliography, merges references across papers and verifies them against
the configured metadata sources.

Section text is written to --out-text and the bibliography to --out-bib.
Papers that fail are reported and skipped; the command fails only when
every paper fails.`,
	RunE: runExtract,
}

// configFlags maps command-line flags to SurveyConfig keys.
var configFlags = []struct{ flag, key string }{
	{"sections", "target_sections"},
	{"sources", "verification_sources"},
	{"concurrency", "max_concurrency"},
	{"timeout", "timeout"},
	{"user-agent", "user_agent"},
	{"retry-attempts", "retry.max_attempts"},
	{"retry-initial", "retry.initial_interval"},
	{"retry-max-interval", "retry.max_interval"},
	{"retry-max-elapsed", "retry.max_elapsed"},
	{"max-include-depth", "max_include_depth"},
	{"min-shared-authors", "dedup_min_shared_authors"},
	{"author-overlap", "verify_author_overlap"},
	{"source-failure-limit", "source_failure_limit"},
	{"rate", "requests_per_second"},
	{"max-archive-bytes", "max_archive_bytes"},
	{"max-archive-members", "max_archive_members"},
	{"scratch-dir", "scratch_dir"},
	{"fetch-metadata", "fetch_metadata"},
}

func init() {
	addConfigFlags(extractCmd)

	f := extractCmd.Flags()
	f.String("out-text", "related_work.tex", "file for the combined section text")
	f.String("out-bib", "references.bib", "file for the merged BibTeX bibliography")
	f.String("report", "", "write the full result as YAML, or JSON when the name ends in .json")
	f.String("sqlite", "", "export the result to this SQLite database")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	f.Bool("extended-sections", false, "also match previous work, state of the art and similar headings")
	f.Bool("no-verify", false, "skip verification against metadata sources")
	f.String("mailto", "", "contact address for the Crossref polite pool (default: .secrets/crossref-mailto)")
	f.String("email", "", "contact address for OpenAlex (default: .secrets/openalex-email)")

	rootCmd.AddCommand(extractCmd)
}

// addConfigFlags registers one flag per configuration key, defaulting to
// DefaultSurveyConfig.
func addConfigFlags(cmd *cobra.Command) {
	d := types.DefaultSurveyConfig()
	f := cmd.Flags()
	f.StringSlice("sections", d.TargetSections, "section titles to extract (matched from a word start, case-insensitive)")
	f.StringSlice("sources", d.VerificationSources, "verification sources in priority order (arxiv, dblp, crossref, openalex)")
	f.Int("concurrency", d.MaxConcurrency, "maximum papers or entries processed at once")
	f.Duration("timeout", d.Timeout, "HTTP request timeout")
	f.String("user-agent", d.UserAgent, "User-Agent header for HTTP requests")
	f.Int("retry-attempts", d.Retry.MaxAttempts, "attempts per request, including the first")
	f.Duration("retry-initial", d.Retry.InitialInterval, "wait before the first retry")
	f.Duration("retry-max-interval", d.Retry.MaxInterval, "cap on a single retry wait")
	f.Duration("retry-max-elapsed", d.Retry.MaxElapsed, "cap on total time spent retrying one request")
	f.Int("max-include-depth", d.MaxIncludeDepth, "maximum \\input/\\include nesting")
	f.Int("min-shared-authors", d.DedupMinSharedAuthors, "shared surnames needed to merge entries with equal titles")
	f.Float64("author-overlap", d.VerifyAuthorOverlap, "minimum author overlap for a verification match")
	f.Int("source-failure-limit", d.SourceFailureLimit, "consecutive failures before a verification source is disabled")
	f.Float64("rate", d.RequestsPerSecond, "requests per second per verification source (0 = unlimited)")
	f.Int64("max-archive-bytes", d.MaxArchiveBytes, "maximum download and unpacked archive size")
	f.Int("max-archive-members", d.MaxArchiveMembers, "maximum number of files in one archive")
	f.String("scratch-dir", d.ScratchDir, "parent directory for per-paper scratch space (default: system temp)")
	f.Bool("fetch-metadata", d.FetchMetadata, "look up arXiv metadata for papers without a \\title")
}

// loadConfig binds the config flags of cmd into v and decodes the result over
// the defaults. Precedence: flags, environment, config file, defaults.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (types.SurveyConfig, error) {
	cfg := types.DefaultSurveyConfig()
	for _, b := range configFlags {
		if err := v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return cfg, fmt.Errorf("binding --%s: %w", b.flag, err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: decoding configuration: %v", types.ErrConfig, err)
	}

	if extended, _ := cmd.Flags().GetBool("extended-sections"); extended {
		cfg.TargetSections = lo.Uniq(append(cfg.TargetSections, extract.ExtendedTargets...))
	}
	if noVerify, _ := cmd.Flags().GetBool("no-verify"); noVerify {
		cfg.VerificationSources = nil
	}
	return cfg, cfg.Validate()
}

func runExtract(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more paper identifiers (arXiv IDs or archive URLs)")
	}

	cfg, err := loadConfig(viper.GetViper(), cmd)
	if err != nil {
		return err
	}
	mailto, _ := cmd.Flags().GetString("mailto")
	email, _ := cmd.Flags().GetString("email")

	p, err := survey.New(cfg,
		survey.WithLogger(logger),
		survey.WithProgress(os.Stdout),
		survey.WithMailto(loadedSecrets.Or(secrets.CrossrefMailto, mailto)),
		survey.WithEmail(loadedSecrets.Or(secrets.OpenAlexEmail, email)),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, args)
	if metricsFile, _ := cmd.Flags().GetString("metrics-file"); metricsFile != "" {
		if merr := metrics.WriteTextfile(metricsFile); merr != nil {
			logger.Sugar().Warnf("writing metrics: %v", merr)
		}
	}
	if err != nil {
		return err
	}

	if err := writeOutputs(ctx, cmd, result); err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	counts := lo.CountValuesBy(result.Papers, func(p types.PaperSummary) types.PaperStatus { return p.Status })
	fmt.Fprintf(os.Stdout, "\nSurvey summary: %d done, %d partial, %d failed (total: %d), %d entries, %d warnings\n",
		counts[types.PaperDone], counts[types.PaperPartial], counts[types.PaperFailed],
		len(result.Papers), len(result.Entries), len(result.Warnings))

	if counts[types.PaperFailed] == len(result.Papers) {
		return fmt.Errorf("all %d paper(s) failed", len(result.Papers))
	}
	return nil
}

func writeOutputs(ctx context.Context, cmd *cobra.Command, result *types.SurveyResult) error {
	outText, _ := cmd.Flags().GetString("out-text")
	outBib, _ := cmd.Flags().GetString("out-bib")
	reportPath, _ := cmd.Flags().GetString("report")
	sqlitePath, _ := cmd.Flags().GetString("sqlite")

	if err := writeFile(outText, []byte(result.SectionText)); err != nil {
		return err
	}
	if err := writeFile(outBib, []byte(result.Bibliography)); err != nil {
		return err
	}

	if reportPath != "" {
		if err := writeReport(reportPath, result); err != nil {
			return err
		}
	}

	if sqlitePath != "" {
		store, err := export.Open(sqlitePath, logger)
		if err != nil {
			return fmt.Errorf("opening %s: %w", sqlitePath, err)
		}
		defer store.Close()
		if err := store.Write(ctx, result); err != nil {
			return fmt.Errorf("exporting to %s: %w", sqlitePath, err)
		}
	}
	return nil
}

func writeReport(path string, result *types.SurveyResult) (err error) {
	if err := mkdirFor(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing report: %w", cerr)
		}
	}()
	return survey.WriteReport(f, result, survey.ReportFormat(path))
}

func writeFile(path string, data []byte) error {
	if err := mkdirFor(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func mkdirFor(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	return nil
}
