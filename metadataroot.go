// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// metadataRootSignature is "BSJB", the magic that opens the metadata root.
const metadataRootSignature = 0x424A5342

// CLIHeader is the IMAGE_COR20_HEADER embedded in the CLR data directory. It
// locates the metadata root and carries the handful of flags and optional
// directories (resources, strong-name signature, VTable fixups) a managed
// image may declare.
type CLIHeader struct {
	Cb                       uint32              `json:"cb"`
	MajorRuntimeVersion      uint16              `json:"major_runtime_version"`
	MinorRuntimeVersion      uint16              `json:"minor_runtime_version"`
	MetaData                 ImageDataDirectory  `json:"metadata"`
	Flags                    uint32              `json:"flags"`
	EntryPointToken          uint32              `json:"entry_point_token"`
	Resources                ImageDataDirectory  `json:"resources"`
	StrongNameSignature      ImageDataDirectory  `json:"strong_name_signature"`
	CodeManagerTable         ImageDataDirectory  `json:"code_manager_table"`
	VTableFixups             ImageDataDirectory  `json:"vtable_fixups"`
	ExportAddressTableJumps  ImageDataDirectory  `json:"export_address_table_jumps"`
	ManagedNativeHeader      ImageDataDirectory  `json:"managed_native_header"`
}

// CLI header runtime flags (ECMA-335 §II.25.3.3.1).
const (
	COMImageFlagsILOnly          = 0x00000001
	COMImageFlags32BitRequired   = 0x00000002
	COMImageFlagsStrongNameSigned = 0x00000008
	COMImageFlagsNativeEntrypoint = 0x00000010
	COMImageFlagsTrackDebugData   = 0x00010000
)

// MetadataStreamHeader is one entry of the metadata root's stream
// directory: an (offset, size) pair relative to the metadata root, plus
// the stream's name ("#Strings", "#US", "#Blob", "#GUID", "#~" or "#-").
type MetadataStreamHeader struct {
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
	Name   string `json:"name"`
}

// MetadataRoot is the BSJB header that opens the metadata blob pointed to
// by the CLI header's MetaData data directory.
type MetadataRoot struct {
	Signature      uint32                 `json:"signature"`
	MajorVersion   uint16                 `json:"major_version"`
	MinorVersion   uint16                 `json:"minor_version"`
	VersionString  string                 `json:"version_string"`
	Flags          uint16                 `json:"flags"`
	Streams        []MetadataStreamHeader `json:"streams"`

	// base is the file offset the metadata root starts at; every stream
	// header's Offset is relative to it.
	base uint32
}

func (r *Reader) parseCLIHeader() error {
	dir := r.NtHeader.OptionalHeader.DataDirectory[ImageDirectoryEntryCLR]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		r.addAnomaly(AnoNoCLIHeader)
		return nil
	}

	off, err := r.rvaToOffset(dir.VirtualAddress)
	if err != nil {
		return err
	}
	c := NewCursor(r.buf)
	if err := c.Seek(off); err != nil {
		return err
	}

	h := &r.CLIHeader
	if h.Cb, err = c.ReadU32(); err != nil {
		return err
	}
	if h.MajorRuntimeVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if h.MinorRuntimeVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if h.MetaData, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.Flags, err = c.ReadU32(); err != nil {
		return err
	}
	if h.EntryPointToken, err = c.ReadU32(); err != nil {
		return err
	}
	if h.Resources, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.StrongNameSignature, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.CodeManagerTable, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.VTableFixups, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.ExportAddressTableJumps, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.ManagedNativeHeader, err = readDataDirectory(c); err != nil {
		return err
	}
	if h.Flags&COMImageFlagsILOnly == 0 {
		r.addAnomaly(AnoNotILOnly)
	}

	r.HasCLIHeader = true
	return r.parseMetadataRoot()
}

func readDataDirectory(c *Cursor) (ImageDataDirectory, error) {
	va, err := c.ReadU32()
	if err != nil {
		return ImageDataDirectory{}, err
	}
	sz, err := c.ReadU32()
	if err != nil {
		return ImageDataDirectory{}, err
	}
	return ImageDataDirectory{VirtualAddress: va, Size: sz}, nil
}

func (r *Reader) parseMetadataRoot() error {
	if r.CLIHeader.MetaData.VirtualAddress == 0 {
		return errInvalidData(0, "CLI header has no metadata directory")
	}
	base, err := r.rvaToOffset(r.CLIHeader.MetaData.VirtualAddress)
	if err != nil {
		return err
	}

	c := NewCursor(r.buf)
	if err := c.Seek(base); err != nil {
		return err
	}

	root := &r.MetadataRoot
	root.base = base

	if root.Signature, err = c.ReadU32(); err != nil {
		return err
	}
	if root.Signature != metadataRootSignature {
		return errInvalidData(base, "metadata root signature")
	}
	if root.MajorVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if root.MinorVersion, err = c.ReadU16(); err != nil {
		return err
	}
	// Reserved, must be 0.
	if _, err = c.ReadU32(); err != nil {
		return err
	}

	length, err := c.ReadU32()
	if err != nil {
		return err
	}
	if length%4 != 0 {
		if r.opts.Strict {
			return errInvalidData(c.Pos()-4, "metadata version length")
		}
		r.addAnomaly(AnoMetadataVersionLength)
	}
	verBytes, err := c.ReadBytes(length)
	if err != nil {
		return err
	}
	n := 0
	for n < len(verBytes) && verBytes[n] != 0 {
		n++
	}
	root.VersionString = string(verBytes[:n])
	for _, b := range verBytes[n:] {
		if b != 0 {
			r.addAnomaly(AnoMetadataVersionPadding)
			break
		}
	}

	if root.Flags, err = c.ReadU16(); err != nil {
		return err
	}
	streamCount, err := c.ReadU16()
	if err != nil {
		return err
	}

	root.Streams = make([]MetadataStreamHeader, 0, streamCount)
	for i := uint16(0); i < streamCount; i++ {
		var sh MetadataStreamHeader
		if sh.Offset, err = c.ReadU32(); err != nil {
			return err
		}
		if sh.Size, err = c.ReadU32(); err != nil {
			return err
		}
		nameBytes, err := c.ReadNullTerminatedString("stream name")
		if err != nil {
			return err
		}
		sh.Name = string(nameBytes)

		// Stream header names are padded to a 4-byte boundary, counting
		// the NUL terminator already consumed above.
		pad := (4 - (len(nameBytes)+1)%4) % 4
		if pad > 0 {
			if err := c.Skip(uint32(pad)); err != nil {
				return err
			}
		}

		root.Streams = append(root.Streams, sh)
	}

	return r.parseHeapsAndTables()
}

// streamData returns a zero-copy slice of the named stream's bytes, or
// (nil, false) if no stream with that name was declared.
func (r *Reader) streamData(name string) ([]byte, bool) {
	for _, sh := range r.MetadataRoot.Streams {
		if sh.Name == name {
			start := r.MetadataRoot.base + sh.Offset
			end := start + sh.Size
			if end > uint32(len(r.buf)) || start > end {
				return nil, false
			}
			return r.buf[start:end], true
		}
	}
	return nil, false
}
