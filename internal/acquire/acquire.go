// Package acquire resolves paper identifiers to LaTeX source archives and
// downloads them.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/internal/httputil"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Fetcher downloads source archives. It keeps no state between identifiers.
type Fetcher struct {
	client *http.Client
	cfg    types.SurveyConfig
	log    *zap.Logger

	// mailto is sent to OpenAlex for polite-pool access.
	mailto string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(f *Fetcher) { f.log = log }
}

// WithMailto sets the contact address passed to OpenAlex.
func WithMailto(addr string) Option {
	return func(f *Fetcher) { f.mailto = addr }
}

// NewFetcher returns a Fetcher using client for every request.
func NewFetcher(client *http.Client, cfg types.SurveyConfig, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fetcher) policy(source string) httputil.Policy {
	return httputil.Policy{RetryConfig: f.cfg.Retry, Source: source, Logger: f.log}
}

// Resolve maps an identifier to its archive URL and, when known, its arXiv ID.
func (f *Fetcher) Resolve(ctx context.Context, identifier string) (archiveURL, arxivID string, err error) {
	idType, normalized := Classify(identifier)
	switch idType {
	case TypeArxiv:
		return SourceURL(idType, normalized), normalized, nil
	case TypeURL:
		return normalized, "", nil
	case TypeDOI:
		id, err := f.resolveOpenAlex(ctx, normalized)
		if err != nil {
			return "", "", err
		}
		return SourceURL(TypeArxiv, id), id, nil
	default:
		return "", "", fmt.Errorf("%w: unrecognized identifier format %q", types.ErrNotFound, identifier)
	}
}

// Fetch downloads the source archive for identifier.
//
// Transient failures are retried per the configured policy. 404/410 fail
// with types.ErrNotFound at once. An empty body, a PDF, or a body whose
// declared type is a web page or API document fails with types.ErrCorrupt,
// which is not retried.
func (f *Fetcher) Fetch(ctx context.Context, identifier string) (*types.RawArchive, error) {
	archiveURL, _, err := f.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %w", types.ErrNetwork, archiveURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	f.log.Debug("downloading source archive", zap.String("paper", identifier), zap.String("url", archiveURL))

	resp, err := httputil.Do(ctx, f.client, req, f.policy("archive"))
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: %w", identifier, err)
	}
	contentType := resp.Header.Get("Content-Type")

	data, err := httputil.ReadBody(resp, f.cfg.MaxArchiveBytes)
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			return nil, fmt.Errorf("%w: %s: %w", types.ErrCorrupt, identifier, err)
		}
		return nil, err
	}

	kind, err := validate(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", identifier, err)
	}

	f.log.Info("downloaded source archive",
		zap.String("paper", identifier),
		zap.Int("bytes", len(data)),
		zap.String("kind", string(kind)),
	)
	return &types.RawArchive{
		PaperID:     identifier,
		URL:         archiveURL,
		ContentType: contentType,
		Kind:        kind,
		Data:        data,
	}, nil
}

// nonArchiveTypes are declared content types that can never carry a source archive.
var nonArchiveTypes = map[string]bool{
	"text/html":             true,
	"application/xhtml+xml": true,
	"application/json":      true,
	"application/xml":       true,
	"application/pdf":       true,
}

func validate(data []byte, contentType string) (types.ArchiveKind, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty response body", types.ErrCorrupt)
	}
	if types.IsPDF(data) {
		return "", fmt.Errorf("%w: server returned a PDF, no LaTeX source available", types.ErrCorrupt)
	}
	kind := types.SniffKind(data)
	if kind != types.ArchiveUnknown {
		return kind, nil
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && nonArchiveTypes[strings.ToLower(mediaType)] {
		return "", fmt.Errorf("%w: content type %s does not match an archive signature", types.ErrCorrupt, mediaType)
	}
	return "", fmt.Errorf("%w: body matches no archive or LaTeX signature", types.ErrCorrupt)
}
