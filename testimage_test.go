// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"bytes"
	"encoding/binary"
)

// Every region buildImage writes lives inside the declared SizeOfHeaders,
// so rvaToOffset's header fallback ("rva < SizeOfHeaders maps identically")
// resolves every RVA these fixtures use without needing a real PE section.

func u8(b *bytes.Buffer, v uint8)   { b.WriteByte(v) }
func u16(b *bytes.Buffer, v uint16) { binary.Write(b, binary.LittleEndian, v) }
func u32(b *bytes.Buffer, v uint32) { binary.Write(b, binary.LittleEndian, v) }
func u64(b *bytes.Buffer, v uint64) { binary.Write(b, binary.LittleEndian, v) }

// buildMetadataRoot builds a well-formed BSJB metadata root plus the named
// streams that follow it, returning the whole blob. Stream order in
// streams must match the order the caller wants stream headers emitted in.
func buildMetadataRoot(version string, streams []namedStream) []byte {
	var hdr bytes.Buffer
	u32(&hdr, metadataRootSignature)
	u16(&hdr, 1) // major
	u16(&hdr, 1) // minor
	u32(&hdr, 0) // reserved

	vBytes := append([]byte(version), 0)
	for len(vBytes)%4 != 0 {
		vBytes = append(vBytes, 0)
	}
	u32(&hdr, uint32(len(vBytes)))
	hdr.Write(vBytes)

	u16(&hdr, 0) // flags
	u16(&hdr, uint16(len(streams)))

	// Stream data is laid out back to back right after the stream header
	// directory. Compute offsets (relative to the root) up front.
	headerLen := 0
	for _, s := range streams {
		n := len(s.name) + 1
		pad := (4 - n%4) % 4
		headerLen += 8 + n + pad
	}
	dataStart := hdr.Len() + headerLen
	offset := dataStart
	offsets := make([]int, len(streams))
	for i, s := range streams {
		offsets[i] = offset
		offset += len(s.data)
	}

	for i, s := range streams {
		u32(&hdr, uint32(offsets[i]-0)) // offsets are root-relative; root starts at 0 in this blob
		u32(&hdr, uint32(len(s.data)))
		hdr.WriteString(s.name)
		hdr.WriteByte(0)
		n := len(s.name) + 1
		pad := (4 - n%4) % 4
		for j := 0; j < pad; j++ {
			hdr.WriteByte(0)
		}
	}

	for _, s := range streams {
		hdr.Write(s.data)
	}
	return hdr.Bytes()
}

type namedStream struct {
	name string
	data []byte
}

// buildImage assembles a complete PE32 image with a CLI header pointing at
// metadataRootBytes. No section table is emitted; SizeOfHeaders is set
// large enough that every RVA used (the CLI header's own RVA and its
// MetaData directory's RVA) resolves via the identity-mapped header
// fallback in rvaToOffset.
func buildImage(metadataRootBytes []byte) []byte {
	var b bytes.Buffer

	// DOS header: 64 bytes, e_lfanew at the end pointing just past it.
	u16(&b, ImageDOSSignature)
	for b.Len() < 0x3C {
		b.WriteByte(0)
	}
	u32(&b, 0x40) // e_lfanew

	// PE signature + file header.
	u32(&b, ImageNTSignature)
	u16(&b, ImageFileMachineI386)
	u16(&b, 0)    // number of sections
	u32(&b, 0)    // timestamp
	u32(&b, 0)    // ptr to symbol table
	u32(&b, 0)    // number of symbols
	u16(&b, 224)  // size of optional header
	u16(&b, 0x102) // characteristics

	// Optional header (PE32).
	u16(&b, ImageNtOptionalHdr32Magic)
	u8(&b, 0)
	u8(&b, 0)
	u32(&b, 0) // size of code
	u32(&b, 0) // size of initialized data
	u32(&b, 0) // size of uninitialized data
	u32(&b, 0) // entry point
	u32(&b, 0) // base of code
	u32(&b, 0) // base of data
	u32(&b, 0x400000) // image base
	u32(&b, 0x2000)   // section alignment
	u32(&b, 0x200)    // file alignment
	u16(&b, 0)
	u16(&b, 0)
	u16(&b, 0)
	u16(&b, 0)
	u16(&b, 0)
	u16(&b, 0)
	u32(&b, 0) // win32 version
	u32(&b, 0x4000) // size of image
	sizeOfHeadersOffset := b.Len()
	u32(&b, 0) // size of headers, patched below
	u32(&b, 0) // checksum
	u16(&b, 3) // subsystem: CUI
	u16(&b, 0) // dll characteristics
	u32(&b, 0x100000)
	u32(&b, 0x1000)
	u32(&b, 0x100000)
	u32(&b, 0x1000)
	u32(&b, 0)  // loader flags
	u32(&b, 16) // number of rva and sizes

	dataDirOffset := b.Len()
	for i := 0; i < 16; i++ {
		u32(&b, 0)
		u32(&b, 0)
	}

	cliHeaderOffset := uint32(b.Len())

	// CLI header.
	u32(&b, 72) // cb
	u16(&b, 2)  // major runtime version
	u16(&b, 5)  // minor runtime version
	metaDataOffset := uint32(b.Len())
	u32(&b, 0) // metadata RVA, patched below
	u32(&b, uint32(len(metadataRootBytes)))
	u32(&b, COMImageFlagsILOnly)
	u32(&b, 0) // entry point token
	// Resources, StrongNameSignature, CodeManagerTable, VTableFixups,
	// ExportAddressTableJumps, ManagedNativeHeader: six trailing directories.
	for i := 0; i < 6; i++ {
		u32(&b, 0)
		u32(&b, 0)
	}

	metadataRootOffset := uint32(b.Len())
	b.Write(metadataRootBytes)

	out := b.Bytes()
	// Patch CLI directory (data directory 14) to point at cliHeaderOffset.
	binary.LittleEndian.PutUint32(out[dataDirOffset+14*8:], cliHeaderOffset)
	binary.LittleEndian.PutUint32(out[dataDirOffset+14*8+4:], 72)
	// Patch the CLI header's MetaData directory to point at the root.
	binary.LittleEndian.PutUint32(out[metaDataOffset:], metadataRootOffset)
	// SizeOfHeaders must cover everything written so the header fallback
	// in rvaToOffset resolves both RVAs above.
	binary.LittleEndian.PutUint32(out[sizeOfHeadersOffset:], uint32(len(out)))

	return out
}

// buildTablesStream assembles the bytes of a "#~" stream: header, row
// counts, and concatenated row bytes, for the tables named in rows. Tables
// absent from rows contribute no bit to the valid mask.
func buildTablesStream(heapSizes uint8, rows map[TableKind][][]byte) []byte {
	var valid uint64
	for k := range rows {
		valid |= 1 << uint(k)
	}

	var b bytes.Buffer
	u32(&b, 0) // reserved
	u8(&b, 2)  // major
	u8(&b, 0)  // minor
	u8(&b, heapSizes)
	u8(&b, 1) // reserved
	u64(&b, valid)
	u64(&b, 0) // sorted

	for kind := TableKind(0); kind < tableKindMax; kind++ {
		if valid&(1<<uint(kind)) != 0 {
			u32(&b, uint32(len(rows[kind])))
		}
	}
	for kind := TableKind(0); kind < tableKindMax; kind++ {
		if valid&(1<<uint(kind)) != 0 {
			for _, row := range rows[kind] {
				b.Write(row)
			}
		}
	}
	return b.Bytes()
}

// strHeap concatenates NUL-terminated strings, returning the heap bytes
// and each string's byte offset in declaration order. Offset 0 is always
// the heap's own leading NUL (the empty string).
func strHeap(strs ...string) ([]byte, []uint32) {
	data := []byte{0}
	offsets := make([]uint32, len(strs))
	for i, s := range strs {
		offsets[i] = uint32(len(data))
		data = append(data, []byte(s)...)
		data = append(data, 0)
	}
	return data, offsets
}

func blobHeap(blobs ...[]byte) ([]byte, []uint32) {
	data := []byte{0}
	offsets := make([]uint32, len(blobs))
	for i, blob := range blobs {
		offsets[i] = uint32(len(data))
		data = append(data, encodeBlobLength(len(blob))...)
		data = append(data, blob...)
	}
	return data, offsets
}

func encodeBlobLength(n int) []byte {
	switch {
	case n < 0x80:
		return []byte{byte(n)}
	case n < 0x4000:
		return []byte{byte(0x80 | (n >> 8)), byte(n)}
	default:
		return []byte{
			byte(0xC0 | (n >> 24)), byte(n >> 16), byte(n >> 8), byte(n),
		}
	}
}
