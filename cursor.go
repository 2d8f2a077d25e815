// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"encoding/binary"
	"unicode/utf8"
)

// Cursor is a bounds-checked, read-only byte cursor over a caller-owned
// buffer. It never copies the buffer and never outlives it; every value it
// hands back (bytes, strings, slices) is a window into the same backing
// array. A Cursor's position can sit anywhere in [0, len(buf)], including
// exactly at the end: Seek(len(buf)) succeeds, a following Read does not.
type Cursor struct {
	buf []byte
	pos uint32
}

// NewCursor wraps buf starting at position 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the size of the backing buffer.
func (c *Cursor) Len() uint32 { return uint32(len(c.buf)) }

// Pos returns the current cursor position.
func (c *Cursor) Pos() uint32 { return c.pos }

// Seek moves the cursor to an absolute offset. It fails only if offset is
// past the end of the buffer; offset == Len() is valid (an exhausted
// cursor, useful at the tail of a heap or table).
func (c *Cursor) Seek(offset uint32) error {
	if offset > c.Len() {
		return errOffsetOutOfBounds(offset, "seek")
	}
	c.pos = offset
	return nil
}

// Skip advances the cursor by n bytes, subject to the same bound as Seek.
func (c *Cursor) Skip(n uint32) error {
	return c.Seek(c.pos + n)
}

// bytes returns a zero-copy slice of n bytes starting at the current
// position and advances the cursor past it.
func (c *Cursor) bytes(n uint32, label string) ([]byte, error) {
	if c.pos > c.Len() {
		return nil, errOffsetOutOfBounds(c.pos, label)
	}
	end := c.pos + n
	if end < c.pos || end > c.Len() {
		return nil, errUnexpectedEOF(c.pos, label)
	}
	b := c.buf[c.pos:end]
	c.pos = end
	return b, nil
}

// Peek reads n bytes without advancing the cursor, useful for lookahead.
func (c *Cursor) Peek(n uint32, label string) ([]byte, error) {
	if c.pos > c.Len() {
		return nil, errOffsetOutOfBounds(c.pos, label)
	}
	end := c.pos + n
	if end < c.pos || end > c.Len() {
		return nil, errUnexpectedEOF(c.pos, label)
	}
	return c.buf[c.pos:end], nil
}

// ReadBytes returns a zero-copy slice of n bytes and advances the cursor.
func (c *Cursor) ReadBytes(n uint32) ([]byte, error) {
	return c.bytes(n, "bytes")
}

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.bytes(1, "u8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a little-endian uint16.
func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.bytes(2, "u16")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads a little-endian uint32.
func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.bytes(4, "u32")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads a little-endian uint64.
func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.bytes(8, "u64")
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadGUID reads a 16-byte GUID without interpreting it.
func (c *Cursor) ReadGUID() ([]byte, error) {
	return c.bytes(16, "guid")
}

// ReadIndex reads either a 2-byte or a 4-byte little-endian index,
// depending on size, and returns it widened to uint32. size must be 2 or 4.
func (c *Cursor) ReadIndex(size uint8) (uint32, error) {
	switch size {
	case 2:
		v, err := c.ReadU16()
		return uint32(v), err
	case 4:
		return c.ReadU32()
	default:
		return 0, errInvalidData(c.pos, "index size")
	}
}

// ReadAligned returns a zero-copy slice of n bytes like ReadBytes, but
// first checks that the current position is a multiple of align. Callers
// that hand slices to reinterpreting consumers use this; plain by-value
// primitive reads never need it.
func (c *Cursor) ReadAligned(n, align uint32, label string) ([]byte, error) {
	if align > 1 && c.pos%align != 0 {
		return nil, errUnalignedRead(c.pos, label)
	}
	return c.bytes(n, label)
}

// ReadUntil returns a zero-copy slice from the current position up to and
// including the first occurrence of delim, and advances past it. It fails
// with UnexpectedEndOfStream if delim never occurs.
func (c *Cursor) ReadUntil(delim byte, label string) ([]byte, error) {
	start := c.pos
	if start > c.Len() {
		return nil, errOffsetOutOfBounds(start, label)
	}
	for i := start; i < c.Len(); i++ {
		if c.buf[i] == delim {
			c.pos = i + 1
			return c.buf[start : i+1], nil
		}
	}
	return nil, errUnexpectedEOF(start, label)
}

// ReadCheckedU16 reads a uint16 and verifies it with pred, failing
// InvalidData at the field's starting offset otherwise.
func (c *Cursor) ReadCheckedU16(pred func(uint16) bool, label string) (uint16, error) {
	start := c.pos
	v, err := c.ReadU16()
	if err != nil {
		return 0, err
	}
	if !pred(v) {
		return 0, errInvalidData(start, label)
	}
	return v, nil
}

// ReadCheckedU32 is ReadCheckedU16's 32-bit analogue.
func (c *Cursor) ReadCheckedU32(pred func(uint32) bool, label string) (uint32, error) {
	start := c.pos
	v, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	if !pred(v) {
		return 0, errInvalidData(start, label)
	}
	return v, nil
}

// ReadCompressedUint decodes the variable-width unsigned integer encoding
// blob lengths use: the first byte's high bits select a 1-, 2- or 4-byte
// big-endian form. A first byte of 0xE0 or above is InvalidData.
func (c *Cursor) ReadCompressedUint() (uint32, error) {
	v, n, err := decodeBlobLength(c.buf, c.pos)
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

// ReadNullTerminatedString reads bytes up to (and consuming) the next NUL
// byte and returns the slice before it, without the NUL. It fails with
// UnexpectedEndOfStream if no NUL is found before the buffer ends.
func (c *Cursor) ReadNullTerminatedString(label string) ([]byte, error) {
	start := c.pos
	if start > c.Len() {
		return nil, errOffsetOutOfBounds(start, label)
	}
	for i := start; i < c.Len(); i++ {
		if c.buf[i] == 0 {
			s := c.buf[start:i]
			c.pos = i + 1
			return s, nil
		}
	}
	return nil, errUnexpectedEOF(start, label)
}

// ReadCString reads a NUL-terminated UTF-8 string, consuming the NUL but
// excluding it from the result. Non-UTF-8 bytes fail InvalidData at the
// string's starting offset.
func (c *Cursor) ReadCString(label string) (string, error) {
	start := c.pos
	b, err := c.ReadNullTerminatedString(label)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errInvalidData(start, label)
	}
	return string(b), nil
}

// AtEnd reports whether the cursor has consumed the whole buffer.
func (c *Cursor) AtEnd() bool { return c.pos >= c.Len() }
