// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"context"
	"errors"
)

// Sentinel errors. Stages wrap them with fmt.Errorf("...: %w", ...) and callers
// classify with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrPrimaryNotFound = &kindError{msg: "primary document not found", parent: ErrNotFound}
	ErrNetwork         = errors.New("network failure")
	ErrCorrupt         = errors.New("corrupt archive")
	ErrUnsupported     = errors.New("unsupported archive")
	ErrParse           = errors.New("malformed bibliography entry")
	ErrRecursionLimit  = errors.New("include recursion limit")
	ErrConfig          = errors.New("invalid configuration")
	ErrInternal        = errors.New("internal invariant violated")
)

// kindError is a sentinel that also matches a broader parent sentinel.
type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.parent }

// ErrorKind is the taxonomy label attached to warnings.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "not_found"
	KindPrimaryNotFound ErrorKind = "primary_not_found"
	KindNetwork         ErrorKind = "network"
	KindCorrupt         ErrorKind = "corrupt"
	KindUnsupported     ErrorKind = "unsupported"
	KindParse           ErrorKind = "parse"
	KindRecursionLimit  ErrorKind = "recursion_limit"
	KindUnverifiable    ErrorKind = "unverifiable"
	KindCitation        ErrorKind = "citation"
	KindConfig          ErrorKind = "config"
	KindCanceled        ErrorKind = "canceled"
	KindInternal        ErrorKind = "internal"
	KindOther           ErrorKind = "other"
)

// KindOf maps an error to its taxonomy label. More specific kinds are tested first.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrPrimaryNotFound):
		return KindPrimaryNotFound
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrCorrupt):
		return KindCorrupt
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrRecursionLimit):
		return KindRecursionLimit
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrInternal):
		return KindInternal
	default:
		return KindOther
	}
}

// Warning is a non-fatal problem surfaced to the caller alongside the result.
type Warning struct {
	PaperID  string    `json:"paper_id,omitempty" yaml:"paper_id,omitempty"`
	EntryKey string    `json:"entry_key,omitempty" yaml:"entry_key,omitempty"`
	Kind     ErrorKind `json:"kind" yaml:"kind"`
	Message  string    `json:"message" yaml:"message"`
}

// NewWarning builds a Warning from an error, classifying it with KindOf.
func NewWarning(paperID string, err error) Warning {
	return Warning{PaperID: paperID, Kind: KindOf(err), Message: err.Error()}
}

// String renders the warning on one line.
func (w Warning) String() string {
	subject := w.PaperID
	if w.EntryKey != "" {
		if subject != "" {
			subject += " "
		}
		subject += w.EntryKey
	}
	if subject == "" {
		return "[" + string(w.Kind) + "] " + w.Message
	}
	return "[" + string(w.Kind) + "] " + subject + ": " + w.Message
}
