// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/internal/metrics"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Policy describes how one logical request is retried.
type Policy struct {
	types.RetryConfig

	// Source labels metrics and log lines (e.g. "arxiv-eprint", "dblp").
	Source string

	Logger *zap.Logger
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func Retryable(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = p.MaxElapsed
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do executes req under the retry policy. Transport errors, 5xx and 429 are
// retried with exponential backoff and jitter until MaxAttempts or MaxElapsed
// runs out; the response body of a retried attempt is drained and closed.
// Any other status is returned with its response for the caller to interpret.
//
// Exhausted retries yield an error wrapping types.ErrNetwork. Cancellation
// returns ctx.Err() without waiting for the remaining backoff.
func Do(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	attempts := 0

	var resp *http.Response
	op := func() error {
		attempts++
		r, err := client.Do(req.Clone(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			metrics.HTTPRequests.WithLabelValues(p.Source, "transport_error").Inc()
			return err
		}
		if Retryable(r.StatusCode) {
			io.Copy(io.Discard, r.Body)
			r.Body.Close()
			metrics.HTTPRequests.WithLabelValues(p.Source, "retryable_status").Inc()
			return &StatusError{StatusCode: r.StatusCode, URL: req.URL.Redacted()}
		}
		metrics.HTTPRequests.WithLabelValues(p.Source, outcome(r.StatusCode)).Inc()
		resp = r
		return nil
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), func(err error, wait time.Duration) {
		metrics.HTTPRetries.WithLabelValues(p.Source).Inc()
		log.Debug("retrying request",
			zap.String("source", p.Source),
			zap.String("url", req.URL.Redacted()),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s after %d attempt(s): %w", types.ErrNetwork, p.Source, attempts, err)
	}
	return resp, nil
}

func outcome(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "ok"
	case code == http.StatusNotFound || code == http.StatusGone:
		return "not_found"
	default:
		return "client_error"
	}
}

// CheckStatus maps a final (non-retried) response status to the error taxonomy:
// 2xx is nil, 404 and 410 wrap types.ErrNotFound, anything else wraps
// types.ErrNetwork. The body is left open.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	se := &StatusError{StatusCode: resp.StatusCode}
	if resp.Request != nil {
		se.URL = resp.Request.URL.Redacted()
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return fmt.Errorf("%w: %w", types.ErrNotFound, se)
	}
	return fmt.Errorf("%w: %w", types.ErrNetwork, se)
}

// ErrBodyTooLarge is returned by ReadBody when the body exceeds its limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// ReadBody reads at most limit bytes of the response body and closes it.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", types.ErrNetwork, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return data, nil
}
