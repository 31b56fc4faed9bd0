// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package unpack extracts downloaded source archives into private scratch
// directories and locates the primary LaTeX document.
package unpack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pdiddy/bibextract/internal/metrics"
	"github.com/pdiddy/bibextract/pkg/types"
)

// Unpacker turns a RawArchive into a Tree. It is safe for concurrent use;
// every call extracts into its own scratch directory.
type Unpacker struct {
	base       afero.Fs
	scratchDir string
	runID      string
	maxBytes   int64
	maxMembers int
	locator    PrimaryLocator
	log        *zap.Logger
}

// Option configures an Unpacker.
type Option func(*Unpacker)

// WithFs sets the filesystem scratch directories are created on.
// The default is the operating system filesystem.
func WithFs(fs afero.Fs) Option {
	return func(u *Unpacker) { u.base = fs }
}

// WithRunID sets the run identifier embedded in scratch directory names.
func WithRunID(id string) Option {
	return func(u *Unpacker) { u.runID = id }
}

// WithLocator replaces the primary-document heuristic.
func WithLocator(l PrimaryLocator) Option {
	return func(u *Unpacker) { u.locator = l }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(u *Unpacker) { u.log = log }
}

// New returns an Unpacker honoring the archive limits and scratch location of cfg.
func New(cfg types.SurveyConfig, opts ...Option) *Unpacker {
	u := &Unpacker{
		base:       afero.NewOsFs(),
		scratchDir: cfg.ScratchDir,
		runID:      uuid.NewString(),
		maxBytes:   cfg.MaxArchiveBytes,
		maxMembers: cfg.MaxArchiveMembers,
		locator:    DefaultLocator{},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Unpack extracts raw into a fresh scratch directory and locates its primary
// document. On any error the scratch directory is removed before returning;
// on success the caller owns the Tree and must Close it.
func (u *Unpacker) Unpack(ctx context.Context, raw *types.RawArchive) (_ *Tree, err error) {
	defer metrics.ObserveStage("unpack", time.Now())

	kind := raw.Kind
	if kind == "" || kind == types.ArchiveUnknown {
		kind = types.SniffKind(raw.Data)
	}
	if kind == types.ArchiveUnknown {
		return nil, fmt.Errorf("%w: %s: unrecognized archive format", types.ErrUnsupported, raw.PaperID)
	}

	root, err := afero.TempDir(u.base, u.scratchDir, "bibextract-"+u.runID+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	tree := newTree(u.base, root)
	defer func() {
		if err != nil {
			if cerr := tree.Close(); cerr != nil {
				u.log.Warn("removing scratch directory", zap.String("dir", root), zap.Error(cerr))
			}
		}
	}()

	x := &extractor{
		ctx:    ctx,
		fs:     tree.fs,
		budget: budget{maxBytes: u.maxBytes, maxMembers: u.maxMembers},
	}
	if err := x.extract(kind, raw.Data); err != nil {
		return nil, fmt.Errorf("%s: %w", raw.PaperID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := tree.scan(); err != nil {
		return nil, err
	}
	primary, err := u.locator.Locate(tree.fs, tree.files)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.PaperID, err)
	}
	tree.Primary = primary

	u.log.Debug("unpacked archive",
		zap.String("paper", raw.PaperID),
		zap.String("kind", string(kind)),
		zap.Int("files", len(tree.files)),
		zap.Int64("bytes", x.budget.bytes),
		zap.String("primary", primary),
	)
	return tree, nil
}
