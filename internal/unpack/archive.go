// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unpack

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"

	"github.com/pdiddy/bibextract/pkg/types"
)

// singleFileName is the name given to a compressed single-file submission.
const singleFileName = "main.tex"

type extractor struct {
	ctx    context.Context
	fs     afero.Fs
	budget budget
}

func (x *extractor) extract(kind types.ArchiveKind, data []byte) error {
	switch kind {
	case types.ArchiveTar:
		return x.untar(bytes.NewReader(data))
	case types.ArchiveZip:
		return x.unzip(data)
	case types.ArchiveTeX:
		return x.writeFile(singleFileName, bytes.NewReader(data))
	case types.ArchiveGzip, types.ArchiveBzip2, types.ArchiveZstd:
		r, closeFn, err := decompressor(kind, data)
		if err != nil {
			return fmt.Errorf("%w: opening %s stream: %w", types.ErrCorrupt, kind, err)
		}
		defer closeFn()
		payload, err := io.ReadAll(x.budget.reader(r))
		if err != nil {
			return corruptf(err, "decompressing %s stream", kind)
		}
		if types.IsTar(payload) {
			// Decompressed bytes count once, against the tar members.
			x.budget.bytes = 0
			return x.untar(bytes.NewReader(payload))
		}
		return x.writeFile(singleFileName, bytes.NewReader(payload))
	default:
		return fmt.Errorf("%w: archive kind %s", types.ErrUnsupported, kind)
	}
}

func decompressor(kind types.ArchiveKind, data []byte) (io.Reader, func(), error) {
	switch kind {
	case types.ArchiveGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case types.ArchiveZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return bzip2.NewReader(bytes.NewReader(data)), func() {}, nil
	}
}

func (x *extractor) untar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading tar: %w", types.ErrCorrupt, err)
		}

		name, err := memberPath(hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if name != "" {
				if err := x.fs.MkdirAll(name, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", name, err)
				}
			}
		case tar.TypeReg:
			if name == "" {
				return fmt.Errorf("%w: tar member %q has no file name", types.ErrCorrupt, hdr.Name)
			}
			if err := x.writeFile(name, tr); err != nil {
				return err
			}
		case tar.TypeSymlink, tar.TypeLink:
			return fmt.Errorf("%w: link member %q rejected", types.ErrCorrupt, hdr.Name)
		case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
			return fmt.Errorf("%w: special file member %q rejected", types.ErrCorrupt, hdr.Name)
		default:
			// Global pax headers and vendor extensions carry no source.
		}
	}
}

func (x *extractor) unzip(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: reading zip: %w", types.ErrCorrupt, err)
	}
	for _, f := range zr.File {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		name, err := memberPath(f.Name)
		if err != nil {
			return err
		}
		mode := f.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			return fmt.Errorf("%w: link member %q rejected", types.ErrCorrupt, f.Name)
		case mode&(os.ModeDevice|os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0:
			return fmt.Errorf("%w: special file member %q rejected", types.ErrCorrupt, f.Name)
		case mode.IsDir() || strings.HasSuffix(f.Name, "/"):
			if name != "" {
				if err := x.fs.MkdirAll(name, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", name, err)
				}
			}
		default:
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("%w: opening zip member %q: %w", types.ErrCorrupt, f.Name, err)
			}
			err = x.writeFile(name, rc)
			rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// writeFile copies r to name under the scratch root, charging the member and
// its bytes against the budget.
func (x *extractor) writeFile(name string, r io.Reader) error {
	if err := x.budget.admit(); err != nil {
		return err
	}
	if err := afero.WriteReader(x.fs, name, x.budget.reader(r)); err != nil {
		var re *readError
		if errors.As(err, &re) || errors.Is(err, types.ErrCorrupt) {
			return corruptf(err, "extracting %s", name)
		}
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// memberPath cleans an archive member name and rejects any name that is
// absolute or resolves outside the extraction root. The root itself is "".
func memberPath(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || path.IsAbs(name) || hasVolume(name) {
		return "", fmt.Errorf("%w: member %q is not a relative path", types.ErrCorrupt, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: member %q escapes the extraction root", types.ErrCorrupt, name)
	}
	if clean == "." {
		return "", nil
	}
	return clean, nil
}

func hasVolume(name string) bool {
	return len(name) >= 2 && name[1] == ':' && ((name[0] >= 'a' && name[0] <= 'z') || (name[0] >= 'A' && name[0] <= 'Z'))
}

// budget caps member count and decompressed bytes against archive bombs.
type budget struct {
	maxBytes   int64
	maxMembers int
	bytes      int64
	members    int
}

var errBudgetBytes = fmt.Errorf("%w: decompressed size exceeds limit", types.ErrCorrupt)

func (b *budget) admit() error {
	b.members++
	if b.maxMembers > 0 && b.members > b.maxMembers {
		return fmt.Errorf("%w: more than %d members", types.ErrCorrupt, b.maxMembers)
	}
	return nil
}

func (b *budget) reader(r io.Reader) io.Reader {
	return &budgetReader{r: r, b: b}
}

type budgetReader struct {
	r io.Reader
	b *budget
}

func (br *budgetReader) Read(p []byte) (int, error) {
	n, err := br.r.Read(p)
	br.b.bytes += int64(n)
	if br.b.maxBytes > 0 && br.b.bytes > br.b.maxBytes {
		return n, errBudgetBytes
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, &readError{err: err}
	}
	return n, err
}

// readError marks a failure of the decoder rather than of the filesystem.
type readError struct{ err error }

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

func corruptf(err error, format string, args ...any) error {
	if errors.Is(err, types.ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", types.ErrCorrupt, fmt.Sprintf(format, args...), err)
}
