// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/clrscan/clrmeta/log"
)

// Options controls how a Reader parses an image.
type Options struct {
	// Strict rejects a section alignment below the file alignment, a
	// file-header machine no managed compiler emits, and a metadata
	// version-string length that is not a multiple of 4. With Strict off
	// the alignment check is skipped and the other two are recorded as
	// anomalies. A nil *Options gets Strict true; a non-nil Options is
	// used as given.
	Strict bool

	// PE32Only restricts Parse to PE32 images, rejecting PE32+. Default
	// false: both widths are accepted.
	PE32Only bool

	// DisableCertValidation skips PKCS#7 parsing of the Security data
	// directory even when present.
	DisableCertValidation bool

	// Logger receives non-fatal anomalies. A nil Logger is valid; nothing
	// is logged.
	Logger log.Logger
}

func (o *Options) withDefaults() *Options {
	if o == nil {
		return &Options{Strict: true}
	}
	cp := *o
	return &cp
}

// Reader is the zero-copy facade over a parsed managed PE image: PE/COFF
// headers, the CLI header, the metadata root, heaps and tables. Every
// field and every row accessor borrows r.buf; none of it is valid once the
// backing buffer is released (Close, for an mmap-backed Reader).
type Reader struct {
	buf []byte

	DOSHeader    ImageDOSHeader
	NtHeader     ImageNtHeader
	Sections     []ImageSectionHeader
	CLIHeader    CLIHeader
	MetadataRoot MetadataRoot

	Strings     StringHeap
	GUIDs       GUIDHeap
	Blobs       BlobHeap
	UserStrings UserStringHeap
	Tables      *TablesStream

	Is64         bool
	HasCLIHeader bool
	Anomalies    []string

	opts   *Options
	logger *log.Helper
	data   mmap.MMap
	f      *os.File
}

// NewBytes builds a Reader directly over an in-memory image. The slice is
// borrowed, not copied: it must outlive the Reader.
func NewBytes(data []byte, opts *Options) (*Reader, error) {
	o := opts.withDefaults()
	return &Reader{
		buf:    data,
		opts:   o,
		logger: log.NewHelper(o.Logger),
	}, nil
}

// Open memory-maps the named file read-only and builds a Reader over it.
// Call Close when done to release the mapping.
func Open(name string, opts *Options) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	o := opts.withDefaults()
	return &Reader{
		buf:    data,
		data:   data,
		f:      f,
		opts:   o,
		logger: log.NewHelper(o.Logger),
	}, nil
}

// Close releases the memory mapping, if this Reader owns one. It is a
// no-op for a Reader built with NewBytes.
func (r *Reader) Close() error {
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			return err
		}
		r.data = nil
	}
	if r.f != nil {
		return r.f.Close()
	}
	return nil
}

// Parse walks the image end to end: DOS header, NT/COFF/optional headers,
// section table, CLI header, metadata root, heaps and the tables stream.
// It returns the first error encountered; partially-populated fields from
// steps before the failing one remain valid and inspectable.
func (r *Reader) Parse() error {
	if err := r.parseDOSHeader(); err != nil {
		return err
	}
	if err := r.parseNtHeader(); err != nil {
		return err
	}
	if err := r.parseSectionHeaders(); err != nil {
		return err
	}
	if err := r.parseCLIHeader(); err != nil {
		return err
	}
	return nil
}
