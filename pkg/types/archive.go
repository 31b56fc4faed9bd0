// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
)

// ArchiveKind is the container format of a downloaded source archive.
type ArchiveKind string

const (
	ArchiveUnknown ArchiveKind = "unknown"
	ArchiveTar     ArchiveKind = "tar"
	ArchiveGzip    ArchiveKind = "gzip"
	ArchiveBzip2   ArchiveKind = "bzip2"
	ArchiveZstd    ArchiveKind = "zstd"
	ArchiveZip     ArchiveKind = "zip"
	ArchiveTeX     ArchiveKind = "tex"
)

// Compressed reports whether the kind is a compression layer whose payload may
// be a tar stream or a single file.
func (k ArchiveKind) Compressed() bool {
	return k == ArchiveGzip || k == ArchiveBzip2 || k == ArchiveZstd
}

// RawArchive is a downloaded source archive before extraction.
type RawArchive struct {
	// PaperID is the identifier the archive was fetched for.
	PaperID string

	// URL is the address the bytes were read from.
	URL string

	// ContentType is the declared Content-Type header, if any.
	ContentType string

	Kind ArchiveKind
	Data []byte
}

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicZip   = []byte("PK\x03\x04")
	magicZipE  = []byte("PK\x05\x06")
	magicUstar = []byte("ustar")
	magicPDF   = []byte("%PDF")
)

// SniffKind infers the archive kind from leading bytes.
func SniffKind(data []byte) ArchiveKind {
	switch {
	case bytes.HasPrefix(data, magicGzip):
		return ArchiveGzip
	case bytes.HasPrefix(data, magicBzip2):
		return ArchiveBzip2
	case bytes.HasPrefix(data, magicZstd):
		return ArchiveZstd
	case bytes.HasPrefix(data, magicZip), bytes.HasPrefix(data, magicZipE):
		return ArchiveZip
	case IsTar(data):
		return ArchiveTar
	case LooksLikeTeX(data):
		return ArchiveTeX
	}
	return ArchiveUnknown
}

// IsTar reports whether data starts with a POSIX or GNU tar header.
func IsTar(data []byte) bool {
	return len(data) >= 262 && bytes.Equal(data[257:262], magicUstar)
}

// IsPDF reports whether data is a PDF document, which arXiv serves for
// papers submitted without source.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, magicPDF)
}

// LooksLikeTeX reports whether the first kilobytes read as LaTeX source.
func LooksLikeTeX(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	for _, marker := range [][]byte{
		[]byte(`\documentclass`), []byte(`\documentstyle`), []byte(`\begin{document}`),
		[]byte(`\section`), []byte(`\input`), []byte(`\usepackage`),
	} {
		if bytes.Contains(head, marker) {
			return true
		}
	}
	return false
}
