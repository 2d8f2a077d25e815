// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import "fmt"

// ErrorKind classifies the ways a read over an image can fail. Every failure
// the decoder returns carries one of these, the byte offset it happened at,
// and (where meaningful) a label describing what was being read.
type ErrorKind int

const (
	// ErrOffsetOutOfBounds is returned when a seek or read starts at an
	// offset past the end of the backing buffer.
	ErrOffsetOutOfBounds ErrorKind = iota

	// ErrUnexpectedEndOfStream is returned when a read's length runs past
	// the end of the backing buffer, even though it started in bounds.
	ErrUnexpectedEndOfStream

	// ErrUnalignedRead is returned by Cursor.ReadAligned when the read
	// starts at an offset violating the required alignment.
	ErrUnalignedRead

	// ErrInvalidData is returned when bytes were read successfully but do
	// not form a value valid at that position: a bad signature, an
	// out-of-range enum, a malformed length prefix.
	ErrInvalidData

	// ErrMissingHeap is returned when the metadata root declares no tables
	// stream ("#~" or "#-").
	ErrMissingHeap

	// ErrMissingTable is returned when a table is requested that the
	// tables stream's valid mask does not mark present.
	ErrMissingTable

	// ErrUnsupported is returned when a table kind is present in the
	// valid mask but this decoder has no row schema for it.
	ErrUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrOffsetOutOfBounds:
		return "offset out of bounds"
	case ErrUnexpectedEndOfStream:
		return "unexpected end of stream"
	case ErrUnalignedRead:
		return "unaligned read"
	case ErrInvalidData:
		return "invalid data"
	case ErrMissingHeap:
		return "missing heap"
	case ErrMissingTable:
		return "missing table"
	case ErrUnsupported:
		return "unsupported"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by every decoding operation in
// this package. Callers that need to react to a specific failure mode
// should switch on Kind rather than string-match Error().
type Error struct {
	Kind   ErrorKind
	Offset uint32
	Label  string
}

func (e *Error) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("clrmeta: %s at offset 0x%x (%s)", e.Kind, e.Offset, e.Label)
	}
	return fmt.Sprintf("clrmeta: %s at offset 0x%x", e.Kind, e.Offset)
}

func errAt(kind ErrorKind, offset uint32, label string) error {
	return &Error{Kind: kind, Offset: offset, Label: label}
}

func errOffsetOutOfBounds(offset uint32, label string) error {
	return errAt(ErrOffsetOutOfBounds, offset, label)
}

func errUnexpectedEOF(offset uint32, label string) error {
	return errAt(ErrUnexpectedEndOfStream, offset, label)
}

func errUnalignedRead(offset uint32, label string) error {
	return errAt(ErrUnalignedRead, offset, label)
}

func errInvalidData(offset uint32, label string) error {
	return errAt(ErrInvalidData, offset, label)
}

func errMissingHeap(name string) error {
	return &Error{Kind: ErrMissingHeap, Label: name}
}

func errMissingTable(kind TableKind) error {
	return &Error{Kind: ErrMissingTable, Label: kind.String()}
}

func errUnsupported(kind TableKind) error {
	return &Error{Kind: ErrUnsupported, Label: kind.String()}
}
