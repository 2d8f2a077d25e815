// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// StringHeap is the "#Strings" stream: UTF-8 strings, each terminated by a
// NUL byte, indexed by byte offset.
type StringHeap struct{ data []byte }

// GetString returns the NUL-terminated UTF-8 string starting at offset. An
// offset of 0 always yields the empty string (index 0 of every heap is the
// implicit empty entry).
func (h StringHeap) GetString(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}
	if offset >= uint32(len(h.data)) {
		return "", errOffsetOutOfBounds(offset, "#Strings")
	}
	end := offset
	for end < uint32(len(h.data)) && h.data[end] != 0 {
		end++
	}
	if end >= uint32(len(h.data)) {
		return "", errUnexpectedEOF(offset, "#Strings")
	}
	s := h.data[offset:end]
	if !utf8.Valid(s) {
		return "", errInvalidData(offset, "#Strings utf-8")
	}
	return string(s), nil
}

// GUIDHeap is the "#GUID" stream: a sequence of 16-byte GUIDs, indexed
// 1-based (index 0 means "no GUID").
type GUIDHeap struct{ data []byte }

// GetGUID returns the 16 raw bytes of the 1-based GUID index, or nil for
// index 0.
func (h GUIDHeap) GetGUID(index uint32) ([]byte, error) {
	if index == 0 {
		return nil, nil
	}
	offset := (index - 1) * 16
	end := offset + 16
	if end > uint32(len(h.data)) {
		return nil, errOffsetOutOfBounds(offset, "#GUID")
	}
	return h.data[offset:end], nil
}

// BlobHeap is the "#Blob" stream: length-prefixed, arbitrary byte blobs.
type BlobHeap struct{ data []byte }

// GetBlob returns the blob at the given byte offset, decoding its
// compressed length prefix per ECMA-335 §II.23.2: one byte if the top bit
// is clear, two if the top two bits are "10", four if the top three bits
// are "110". Any other leading bit pattern is InvalidData.
func (h BlobHeap) GetBlob(offset uint32) ([]byte, error) {
	if offset == 0 {
		return nil, nil
	}
	length, n, err := decodeBlobLength(h.data, offset)
	if err != nil {
		return nil, err
	}
	start := offset + n
	end := start + length
	if end < start || end > uint32(len(h.data)) {
		return nil, errUnexpectedEOF(start, "#Blob")
	}
	return h.data[start:end], nil
}

func decodeBlobLength(data []byte, offset uint32) (length uint32, prefixLen uint32, err error) {
	if offset >= uint32(len(data)) {
		return 0, 0, errOffsetOutOfBounds(offset, "#Blob length prefix")
	}
	b0 := data[offset]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xC0 == 0x80:
		if offset+1 >= uint32(len(data)) {
			return 0, 0, errUnexpectedEOF(offset, "#Blob length prefix")
		}
		b1 := data[offset+1]
		return (uint32(b0&0x3F) << 8) | uint32(b1), 2, nil
	case b0&0xE0 == 0xC0:
		if offset+3 >= uint32(len(data)) {
			return 0, 0, errUnexpectedEOF(offset, "#Blob length prefix")
		}
		return (uint32(b0&0x1F) << 24) |
			(uint32(data[offset+1]) << 16) |
			(uint32(data[offset+2]) << 8) |
			uint32(data[offset+3]), 4, nil
	default:
		return 0, 0, errInvalidData(offset, "#Blob length prefix")
	}
}

// UserStringHeap is the "#US" stream: length-prefixed UTF-16 strings used
// by ldstr instructions, each followed by a trailing byte that flags
// whether any character has its high bit set or is one of a few special
// punctuation code points (used by the runtime to pick a fast string
// comparison path; this reader surfaces it but does not interpret it).
type UserStringHeap struct{ data []byte }

// GetString decodes the UTF-16LE string at offset and returns it alongside
// the trailing flag byte.
func (h UserStringHeap) GetString(offset uint32) (string, byte, error) {
	if offset == 0 {
		return "", 0, nil
	}
	length, n, err := decodeBlobLength(h.data, offset)
	if err != nil {
		return "", 0, err
	}
	start := offset + n
	end := start + length
	if end < start || end > uint32(len(h.data)) {
		return "", 0, errUnexpectedEOF(start, "#US")
	}
	if length == 0 {
		return "", 0, nil
	}
	payload := h.data[start : end-1]
	flag := h.data[end-1]

	decoded, err := decodeUTF16String(payload)
	if err != nil {
		return "", 0, errInvalidData(start, "#US utf-16")
	}
	return decoded, flag, nil
}

// decodeUTF16String decodes a UTF-16LE byte slice using x/text's
// stateless UTF-16 decoder.
func decodeUTF16String(b []byte) (string, error) {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (r *Reader) parseHeapsAndTables() error {
	if d, ok := r.streamData("#Strings"); ok {
		r.Strings = StringHeap{data: d}
	}
	if d, ok := r.streamData("#GUID"); ok {
		r.GUIDs = GUIDHeap{data: d}
	}
	if d, ok := r.streamData("#Blob"); ok {
		r.Blobs = BlobHeap{data: d}
	}
	if d, ok := r.streamData("#US"); ok {
		r.UserStrings = UserStringHeap{data: d}
	}

	tablesData, ok := r.streamData("#~")
	if !ok {
		tablesData, ok = r.streamData("#-")
	}
	if !ok {
		return errMissingHeap("#~")
	}

	ts, err := parseTablesStream(tablesData)
	if err != nil {
		return err
	}
	r.Tables = ts
	return nil
}
