// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package survey runs the bibliography extraction pipeline over a list of
// papers and assembles the survey text and merged bibliography.
package survey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/bibextract/internal/acquire"
	"github.com/pdiddy/bibextract/internal/bibliography"
	"github.com/pdiddy/bibextract/internal/dedup"
	"github.com/pdiddy/bibextract/internal/extract"
	"github.com/pdiddy/bibextract/internal/metrics"
	"github.com/pdiddy/bibextract/internal/unpack"
	"github.com/pdiddy/bibextract/internal/verify"
	"github.com/pdiddy/bibextract/pkg/types"
)

var tracer = otel.Tracer("github.com/pdiddy/bibextract/internal/survey")

// Fetcher downloads source archives and descriptive metadata.
// *acquire.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*types.RawArchive, error)
	Resolve(ctx context.Context, id string) (archiveURL, arxivID string, err error)
	Metadata(ctx context.Context, arxivID string) (*types.Paper, error)
}

// Verifier checks canonical entries. *verify.Verifier satisfies it.
type Verifier interface {
	Verify(ctx context.Context, entries []types.CanonicalBibEntry) ([]types.VerificationResult, []types.Warning)
}

// PaperOutput is what the pipeline obtained from one paper before merging.
type PaperOutput struct {
	Summary  types.PaperSummary
	Sections []types.ExtractedSection
	Entries  []types.BibEntry
	Warnings []types.Warning
}

// Pipeline processes papers end to end. Its configuration is fixed at
// construction; one Pipeline may serve several Run calls.
type Pipeline struct {
	cfg       types.SurveyConfig
	fetcher   Fetcher
	unpacker  *unpack.Unpacker
	extractor *extract.Extractor
	bib       *bibliography.Extractor
	verifier  Verifier
	log       *zap.Logger

	progress io.Writer
	mu       sync.Mutex
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	client         *http.Client
	log            *zap.Logger
	fetcher        Fetcher
	verifier       Verifier
	sources        []verify.Source
	primaryLocator unpack.PrimaryLocator
	sourceLocator  bibliography.SourceLocator
	fs             afero.Fs
	runID          string
	mailto         string
	email          string
	progress       io.Writer
}

// WithHTTPClient sets the client used for every download and lookup.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithFetcher replaces the archive fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithVerifier replaces the verifier built from the configured sources.
func WithVerifier(v Verifier) Option {
	return func(o *options) { o.verifier = v }
}

// WithVerifySources replaces the verification sources named in the configuration.
func WithVerifySources(sources ...verify.Source) Option {
	return func(o *options) { o.sources = sources }
}

// WithPrimaryLocator replaces the primary-document heuristic.
func WithPrimaryLocator(l unpack.PrimaryLocator) Option {
	return func(o *options) { o.primaryLocator = l }
}

// WithSourceLocator replaces bibliography source discovery.
func WithSourceLocator(l bibliography.SourceLocator) Option {
	return func(o *options) { o.sourceLocator = l }
}

// WithFs sets the filesystem scratch directories are created on.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithRunID sets the identifier embedded in scratch directory names.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithMailto sets the contact address sent to OpenAlex and Crossref.
func WithMailto(addr string) Option {
	return func(o *options) { o.mailto = addr }
}

// WithEmail sets the contact address sent to OpenAlex verification searches.
func WithEmail(addr string) Option {
	return func(o *options) { o.email = addr }
}

// WithProgress sets where per-paper progress lines are written.
func WithProgress(w io.Writer) Option {
	return func(o *options) { o.progress = w }
}

// New validates cfg and builds a Pipeline owning a copy of it.
func New(cfg types.SurveyConfig, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()

	o := options{
		log:      zap.NewNop(),
		runID:    uuid.NewString(),
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: cfg.Timeout}
	}
	log := o.log.With(zap.String("run", o.runID))

	p := &Pipeline{
		cfg:       cfg,
		fetcher:   o.fetcher,
		extractor: extract.New(cfg, extract.WithLogger(log)),
		verifier:  o.verifier,
		log:       log,
		progress:  o.progress,
	}
	if p.fetcher == nil {
		p.fetcher = acquire.NewFetcher(o.client, cfg, acquire.WithLogger(log), acquire.WithMailto(o.mailto))
	}

	unpackOpts := []unpack.Option{unpack.WithRunID(o.runID), unpack.WithLogger(log)}
	if o.fs != nil {
		unpackOpts = append(unpackOpts, unpack.WithFs(o.fs))
	}
	if o.primaryLocator != nil {
		unpackOpts = append(unpackOpts, unpack.WithLocator(o.primaryLocator))
	}
	p.unpacker = unpack.New(cfg, unpackOpts...)

	bibOpts := []bibliography.Option{bibliography.WithLogger(log)}
	if o.sourceLocator != nil {
		bibOpts = append(bibOpts, bibliography.WithLocator(o.sourceLocator))
	}
	p.bib = bibliography.New(bibOpts...)

	if p.verifier == nil {
		verifyOpts := []verify.Option{verify.WithLogger(log), verify.WithMailto(o.mailto), verify.WithEmail(o.email)}
		switch {
		case len(o.sources) > 0:
			p.verifier = verify.New(o.client, cfg, append(verifyOpts, verify.WithSources(o.sources...))...)
		case len(cfg.VerificationSources) > 0:
			p.verifier = verify.New(o.client, cfg, verifyOpts...)
		}
	}
	return p, nil
}

// Run processes every identifier and returns the assembled survey.
//
// A paper that fails is reported in the result's warnings and summaries; it
// never aborts the run. Run fails only on an empty identifier list, on
// cancellation of ctx (after every scratch directory has been removed), or
// on an internal invariant violation.
func (p *Pipeline) Run(ctx context.Context, ids []string) (*types.SurveyResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no paper identifiers given", types.ErrConfig)
	}

	ctx, span := tracer.Start(ctx, "survey.run", trace.WithAttributes(attribute.Int("papers", len(ids))))
	defer span.End()

	outputs := make([]PaperOutput, len(ids))
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			outputs[i] = p.processPaper(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var all []types.BibEntry
	for _, out := range outputs {
		all = append(all, out.Entries...)
	}

	start := time.Now()
	merged := dedup.Merge(all, p.cfg)
	metrics.ObserveStage("dedup", start)
	p.log.Info("merged bibliography",
		zap.Int("records", len(all)),
		zap.Int("entries", len(merged.Entries)),
	)

	var (
		results  []types.VerificationResult
		warnings []types.Warning
	)
	if p.verifier != nil && len(merged.Entries) > 0 {
		vctx, vspan := tracer.Start(ctx, "survey.verify", trace.WithAttributes(attribute.Int("entries", len(merged.Entries))))
		start := time.Now()
		results, warnings = p.verifier.Verify(vctx, merged.Entries)
		metrics.ObserveStage("verify", start)
		vspan.End()
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	result, err := Aggregate(outputs, merged, results)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)
	return result, nil
}

// processPaper runs fetch, unpack and both extractors for one paper. The
// scratch directory is removed before it returns.
func (p *Pipeline) processPaper(ctx context.Context, id string) PaperOutput {
	ctx, span := tracer.Start(ctx, "survey.paper", trace.WithAttributes(attribute.String("paper", id)))
	defer span.End()

	log := p.log.With(zap.String("paper", id))
	out := PaperOutput{Summary: types.PaperSummary{Paper: types.Paper{ID: id}}}
	p.progressf("processing %s\n", id)

	fail := func(err error) PaperOutput {
		span.RecordError(err)
		log.Warn("paper failed", zap.Error(err))
		p.progressf("failed: %s (%v)\n", id, err)
		metrics.Papers.WithLabelValues(string(types.PaperFailed)).Inc()
		out.Summary.Status = types.PaperFailed
		out.Summary.Error = err.Error()
		out.Warnings = append(out.Warnings, types.NewWarning(id, err))
		return out
	}

	start := time.Now()
	raw, err := p.fetcher.Fetch(ctx, id)
	metrics.ObserveStage("fetch", start)
	if err != nil {
		return fail(err)
	}
	out.Summary.SourceURL = raw.URL

	tree, err := p.unpacker.Unpack(ctx, raw)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := tree.Close(); err != nil {
			log.Warn("removing scratch directory", zap.Error(err))
		}
	}()
	out.Summary.Primary = tree.Primary

	start = time.Now()
	status := types.PaperDone
	doc, err := p.extractor.Extract(tree.Fs(), tree.Primary)
	if err != nil {
		if doc == nil || !errors.Is(err, types.ErrRecursionLimit) {
			return fail(err)
		}
		status = types.PaperPartial
		out.Warnings = append(out.Warnings, types.NewWarning(id, err))
	}
	for _, w := range doc.Warnings {
		w.PaperID = id
		out.Warnings = append(out.Warnings, w)
	}
	for _, s := range doc.Sections {
		s.PaperID = id
		out.Sections = append(out.Sections, s)
	}

	entries, warnings := p.bib.Extract(tree.Fs(), tree.Files(), tree.Primary, doc.Text)
	metrics.ObserveStage("extract", start)
	for _, e := range entries {
		e.PaperID = id
		out.Entries = append(out.Entries, e)
	}
	for _, w := range warnings {
		w.PaperID = id
		out.Warnings = append(out.Warnings, w)
	}

	out.Summary.Title = doc.Title
	out.Summary.Authors = splitAuthors(doc.Authors)
	if doc.Title != "" {
		out.Summary.Source = "latex"
	} else if p.cfg.FetchMetadata {
		if w, ok := p.lookupMetadata(ctx, &out.Summary.Paper); !ok {
			out.Warnings = append(out.Warnings, w)
		}
	}

	out.Summary.Status = status
	out.Summary.Sections = len(out.Sections)
	out.Summary.Entries = len(out.Entries)
	metrics.Papers.WithLabelValues(string(status)).Inc()
	log.Info("paper processed",
		zap.String("status", string(status)),
		zap.Int("sections", len(out.Sections)),
		zap.Int("entries", len(out.Entries)),
	)
	p.progressf("%s: %s (%d sections, %d entries)\n", status, id, len(out.Sections), len(out.Entries))
	return out
}

// lookupMetadata fills title and authors from arXiv for a paper whose
// source names neither. Papers without an arXiv identity are left as they are.
func (p *Pipeline) lookupMetadata(ctx context.Context, paper *types.Paper) (types.Warning, bool) {
	_, arxivID, err := p.fetcher.Resolve(ctx, paper.ID)
	if err != nil || arxivID == "" {
		return types.Warning{}, true
	}
	meta, err := p.fetcher.Metadata(ctx, arxivID)
	if err != nil {
		return types.NewWarning(paper.ID, fmt.Errorf("fetching metadata: %w", err)), false
	}
	paper.Title = meta.Title
	if len(paper.Authors) == 0 {
		paper.Authors = meta.Authors
	}
	paper.Date = meta.Date
	paper.Source = meta.Source
	return types.Warning{}, true
}

func (p *Pipeline) progressf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.progress, format, args...)
}

func splitAuthors(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
