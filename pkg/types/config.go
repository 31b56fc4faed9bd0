package types

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bibextract/0.1 (mailto:someone@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig bounds the exponential backoff applied to transient network failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts per request, including the first.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" mapstructure:"initial_interval"`

	// MaxInterval caps a single backoff wait.
	MaxInterval time.Duration `json:"max_interval" yaml:"max_interval" mapstructure:"max_interval"`

	// MaxElapsed caps the total time spent on one request across retries.
	MaxElapsed time.Duration `json:"max_elapsed" yaml:"max_elapsed" mapstructure:"max_elapsed"`
}

// Verification source names accepted in SurveyConfig.VerificationSources.
const (
	SourceArxiv    = "arxiv"
	SourceDBLP     = "dblp"
	SourceCrossref = "crossref"
	SourceOpenAlex = "openalex"
)

// KnownSources lists every verification source the verifier can build.
var KnownSources = []string{SourceArxiv, SourceDBLP, SourceCrossref, SourceOpenAlex}

// DefaultTargetSections is the section scope used when none is configured.
var DefaultTargetSections = []string{"related work", "background", "prior work", "literature review"}

// SurveyConfig holds every setting of one pipeline run. It is copied on
// construction of a pipeline and never mutated afterwards.
type SurveyConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// TargetSections overrides the section titles considered in scope.
	TargetSections []string `json:"target_sections" yaml:"target_sections" mapstructure:"target_sections"`

	// VerificationSources names the metadata services to consult, in priority order.
	// An empty list disables verification.
	VerificationSources []string `json:"verification_sources" yaml:"verification_sources" mapstructure:"verification_sources"`

	// MaxConcurrency caps simultaneous network operations (papers in flight,
	// entries under verification).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency" mapstructure:"max_concurrency"`

	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// MaxIncludeDepth bounds \input/\include nesting.
	MaxIncludeDepth int `json:"max_include_depth" yaml:"max_include_depth" mapstructure:"max_include_depth"`

	// DedupMinSharedAuthors is the number of shared normalized surnames two
	// records with equal titles need before they are merged.
	DedupMinSharedAuthors int `json:"dedup_min_shared_authors" yaml:"dedup_min_shared_authors" mapstructure:"dedup_min_shared_authors"`

	// VerifyAuthorOverlap is the minimum shared-surname ratio (over the
	// smaller author set) for a verification candidate to count as a match.
	VerifyAuthorOverlap float64 `json:"verify_author_overlap" yaml:"verify_author_overlap" mapstructure:"verify_author_overlap"`

	// SourceFailureLimit disables a verification source for the rest of the
	// run after this many consecutive network failures.
	SourceFailureLimit int `json:"source_failure_limit" yaml:"source_failure_limit" mapstructure:"source_failure_limit"`

	// RequestsPerSecond rate-limits each verification source. Zero means unlimited.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxArchiveBytes caps both the download size and the decompressed size of an archive.
	MaxArchiveBytes int64 `json:"max_archive_bytes" yaml:"max_archive_bytes" mapstructure:"max_archive_bytes"`

	// MaxArchiveMembers caps the number of files extracted from one archive.
	MaxArchiveMembers int `json:"max_archive_members" yaml:"max_archive_members" mapstructure:"max_archive_members"`

	// ScratchDir is the parent of per-paper scratch directories (default: os.TempDir()).
	ScratchDir string `json:"scratch_dir,omitempty" yaml:"scratch_dir,omitempty" mapstructure:"scratch_dir"`

	// VenueAbbreviations adds venue spellings to the built-in canonical-case table,
	// keyed by lower-case form (e.g. "neurips": "NeurIPS").
	VenueAbbreviations map[string]string `json:"venue_abbreviations,omitempty" yaml:"venue_abbreviations,omitempty" mapstructure:"venue_abbreviations"`

	// FetchMetadata enables the arXiv metadata lookup for papers whose source
	// carries no \title.
	FetchMetadata bool `json:"fetch_metadata" yaml:"fetch_metadata" mapstructure:"fetch_metadata"`
}

// DefaultSurveyConfig returns the settings used when nothing is configured.
func DefaultSurveyConfig() SurveyConfig {
	return SurveyConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: "bibextract/0.1",
		},
		TargetSections:      slices.Clone(DefaultTargetSections),
		VerificationSources: []string{SourceArxiv, SourceDBLP, SourceCrossref},
		MaxConcurrency:      8,
		Retry: RetryConfig{
			MaxAttempts:     4,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     10 * time.Second,
			MaxElapsed:      2 * time.Minute,
		},
		MaxIncludeDepth:       16,
		DedupMinSharedAuthors: 1,
		VerifyAuthorOverlap:   0.5,
		SourceFailureLimit:    3,
		RequestsPerSecond:     2,
		MaxArchiveBytes:       256 << 20,
		MaxArchiveMembers:     10000,
		FetchMetadata:         true,
	}
}

// Validate reports the first invalid setting, wrapped in ErrConfig.
func (c SurveyConfig) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max_concurrency must be at least 1, got %d", ErrConfig, c.MaxConcurrency)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry.max_attempts must be at least 1, got %d", ErrConfig, c.Retry.MaxAttempts)
	}
	if c.Retry.InitialInterval < 0 || c.Retry.MaxInterval < 0 || c.Retry.MaxElapsed < 0 {
		return fmt.Errorf("%w: retry intervals must not be negative", ErrConfig)
	}
	if c.MaxIncludeDepth < 1 {
		return fmt.Errorf("%w: max_include_depth must be at least 1, got %d", ErrConfig, c.MaxIncludeDepth)
	}
	if c.DedupMinSharedAuthors < 0 {
		return fmt.Errorf("%w: dedup_min_shared_authors must not be negative", ErrConfig)
	}
	if c.VerifyAuthorOverlap < 0 || c.VerifyAuthorOverlap > 1 {
		return fmt.Errorf("%w: verify_author_overlap must be within [0, 1], got %g", ErrConfig, c.VerifyAuthorOverlap)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrConfig)
	}
	if c.MaxArchiveBytes <= 0 || c.MaxArchiveMembers <= 0 {
		return fmt.Errorf("%w: archive limits must be positive", ErrConfig)
	}
	seen := make(map[string]bool)
	for _, s := range c.VerificationSources {
		name := strings.ToLower(strings.TrimSpace(s))
		if !slices.Contains(KnownSources, name) {
			return fmt.Errorf("%w: unknown verification source %q (known: %s)",
				ErrConfig, s, strings.Join(KnownSources, ", "))
		}
		if seen[name] {
			return fmt.Errorf("%w: verification source %q listed twice", ErrConfig, s)
		}
		seen[name] = true
	}
	for _, t := range c.TargetSections {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: empty target section name", ErrConfig)
		}
	}
	return nil
}

// Clone returns a deep copy so a pipeline can own its configuration.
func (c SurveyConfig) Clone() SurveyConfig {
	out := c
	out.TargetSections = slices.Clone(c.TargetSections)
	out.VerificationSources = slices.Clone(c.VerificationSources)
	out.VenueAbbreviations = maps.Clone(c.VenueAbbreviations)
	if len(out.TargetSections) == 0 {
		out.TargetSections = slices.Clone(DefaultTargetSections)
	}
	for i, s := range out.VerificationSources {
		out.VerificationSources[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
