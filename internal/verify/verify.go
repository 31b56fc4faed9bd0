// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify checks canonical bibliography entries against external
// metadata services and proposes corrections.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/bibextract/internal/dedup"
	"github.com/pdiddy/bibextract/internal/httputil"
	"github.com/pdiddy/bibextract/internal/metrics"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Candidate is one record a source offers as a match for an entry.
type Candidate struct {
	Entry types.BibEntry

	// ByIdentifier is set when the source looked the entry up by arXiv id or
	// DOI rather than by a title search.
	ByIdentifier bool
}

// Source is one external metadata service. Lookup returns no candidates,
// and no error, when the service does not know the entry or cannot be
// queried for it (for example, a DOI lookup for an entry without a DOI).
type Source interface {
	Name() string
	Lookup(ctx context.Context, entry types.BibEntry) ([]Candidate, error)
}

// maxResponseBytes caps a metadata response body.
const maxResponseBytes = 8 << 20

// Verifier checks entries against its sources in priority order.
type Verifier struct {
	sources []*sourceState
	cfg     types.SurveyConfig
	norm    *dedup.Normalizer
	log     *zap.Logger
}

// sourceState tracks the health of one source for the duration of a run.
type sourceState struct {
	Source
	failures atomic.Int32
	disabled atomic.Bool
}

// Option configures a Verifier.
type Option func(*options)

type options struct {
	sources  []Source
	log      *zap.Logger
	mailto   string
	email    string
	useNamed bool
}

// WithSources replaces the sources named in the configuration.
func WithSources(sources ...Source) Option {
	return func(o *options) {
		o.sources = sources
		o.useNamed = false
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMailto sets the contact address sent to Crossref.
func WithMailto(addr string) Option {
	return func(o *options) { o.mailto = addr }
}

// WithEmail sets the contact address sent to OpenAlex.
func WithEmail(addr string) Option {
	return func(o *options) { o.email = addr }
}

// New returns a Verifier consulting the sources named in
// cfg.VerificationSources, in that order, all sharing client.
func New(client *http.Client, cfg types.SurveyConfig, opts ...Option) *Verifier {
	o := options{log: zap.NewNop(), useNamed: true}
	for _, opt := range opts {
		opt(&o)
	}

	sources := o.sources
	if o.useNamed {
		for _, name := range cfg.VerificationSources {
			if s := NewSource(name, client, cfg, o.mailto, o.email, o.log); s != nil {
				sources = append(sources, s)
			}
		}
	}

	v := &Verifier{cfg: cfg, norm: dedup.NewNormalizer(cfg.VenueAbbreviations), log: o.log}
	for _, s := range sources {
		v.sources = append(v.sources, &sourceState{Source: s})
	}
	return v
}

// NewSource builds a named source. Unknown names yield nil. The source
// holds its own rate limiter of cfg.RequestsPerSecond, taken only when a
// request is sent.
func NewSource(name string, client *http.Client, cfg types.SurveyConfig, mailto, email string, log *zap.Logger) Source {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	base := httpSource{client: client, cfg: cfg, log: log, limiter: rate.NewLimiter(limit, 1)}
	switch name {
	case types.SourceArxiv:
		return &ArxivSource{httpSource: base}
	case types.SourceDBLP:
		return &DBLPSource{httpSource: base}
	case types.SourceCrossref:
		return &CrossrefSource{httpSource: base, Mailto: mailto}
	case types.SourceOpenAlex:
		return &OpenAlexSource{httpSource: base, Email: email}
	default:
		return nil
	}
}

// Verify checks every entry and returns one result per entry, in input
// order. At most cfg.MaxConcurrency entries are in flight. Network failures
// are reported as warnings; a source failing SourceFailureLimit lookups in a
// row is skipped for the rest of the run. Entries left unchecked by a
// cancelled context are unverifiable.
func (v *Verifier) Verify(ctx context.Context, entries []types.CanonicalBibEntry) ([]types.VerificationResult, []types.Warning) {
	results := make([]types.VerificationResult, len(entries))
	perEntry := make([][]types.Warning, len(entries))

	var mu sync.Mutex
	var runWarnings []types.Warning
	disable := func(s *sourceState, err error) {
		if s.disabled.CompareAndSwap(false, true) {
			v.log.Warn("disabling verification source", zap.String("source", s.Name()), zap.Error(err))
			mu.Lock()
			runWarnings = append(runWarnings, types.Warning{
				Kind:    types.KindNetwork,
				Message: fmt.Sprintf("verification source %s disabled after %d consecutive failures: %v", s.Name(), s.failures.Load(), err),
			})
			mu.Unlock()
		}
	}

	limit := v.cfg.MaxConcurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range entries {
		g.Go(func() error {
			results[i], perEntry[i] = v.verifyOne(ctx, entries[i].BibEntry, disable)
			return nil
		})
	}
	g.Wait()

	var warnings []types.Warning
	for _, w := range perEntry {
		warnings = append(warnings, w...)
	}
	warnings = append(warnings, runWarnings...)
	for _, r := range results {
		metrics.Verifications.WithLabelValues(string(r.Status)).Inc()
	}
	return results, warnings
}

// verifyOne consults the sources in order until one yields a confident match.
func (v *Verifier) verifyOne(ctx context.Context, entry types.BibEntry, disable func(*sourceState, error)) (types.VerificationResult, []types.Warning) {
	result := types.VerificationResult{Key: entry.Key, Status: types.StatusUnverifiable}
	var warnings []types.Warning

	for _, s := range v.sources {
		if ctx.Err() != nil {
			break
		}
		if s.disabled.Load() {
			continue
		}

		candidates, err := s.Lookup(ctx, entry)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			v.log.Debug("verification lookup failed",
				zap.String("source", s.Name()), zap.String("entry", entry.Key), zap.Error(err))
			warnings = append(warnings, types.Warning{
				EntryKey: entry.Key,
				Kind:     types.KindOf(err),
				Message:  fmt.Sprintf("%s lookup: %v", s.Name(), err),
			})
			if errors.Is(err, types.ErrNetwork) && v.cfg.SourceFailureLimit > 0 &&
				int(s.failures.Add(1)) >= v.cfg.SourceFailureLimit {
				disable(s, err)
			}
			continue
		}
		s.failures.Store(0)

		for _, c := range candidates {
			cand := v.norm.Normalize(c.Entry)
			if !Confident(entry, cand, c.ByIdentifier, v.cfg.VerifyAuthorOverlap) {
				continue
			}
			result.Source = s.Name()
			result.Corrections, result.Changed = Corrections(entry, cand)
			result.Status = types.StatusConfirmed
			if len(result.Changed) > 0 {
				result.Status = types.StatusCorrected
			}
			v.log.Debug("verified entry",
				zap.String("entry", entry.Key),
				zap.String("source", s.Name()),
				zap.String("status", string(result.Status)),
			)
			return result, warnings
		}
	}

	warnings = append(warnings, types.Warning{
		EntryKey: entry.Key,
		Kind:     types.KindUnverifiable,
		Message:  "no source produced a confident match",
	})
	return result, warnings
}

// httpSource holds what every HTTP-backed source shares.
type httpSource struct {
	client  *http.Client
	cfg     types.SurveyConfig
	log     *zap.Logger
	limiter *rate.Limiter
}

// get fetches url under the retry policy. A 404 or 410 yields a nil body and
// no error: the service does not know the record.
func (h httpSource) get(ctx context.Context, source, url string) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", source, err)
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)

	resp, err := httputil.Do(ctx, h.client, req, httputil.Policy{RetryConfig: h.cfg.Retry, Source: source, Logger: h.log})
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		resp.Body.Close()
		if errors.Is(err, types.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, err := httputil.ReadBody(resp, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrNetwork, source, err)
	}
	return data, nil
}

// authoritative fields overwrite existing values when a source disagrees.
var authoritative = []string{types.FieldBooktitle, types.FieldJournal, types.FieldVenue, types.FieldPages}

// Corrections compares an entry with a matched record. Missing fields are
// filled; populated fields are overwritten only when authoritative. It
// returns the corrections and the sorted names of the changed fields.
func Corrections(entry, match types.BibEntry) (map[string]string, []string) {
	fixes := make(map[string]string)
	for k, v := range match.Fields {
		if v == "" || k == types.FieldRaw || k == types.FieldVerifiedSource {
			continue
		}
		cur := entry.Get(k)
		switch {
		case cur == "":
			fixes[k] = v
		case cur != v && slices.Contains(authoritative, k):
			fixes[k] = v
		}
	}
	if len(fixes) == 0 {
		return nil, nil
	}
	changed := make([]string, 0, len(fixes))
	for k := range fixes {
		changed = append(changed, k)
	}
	slices.Sort(changed)
	return fixes, changed
}
