// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// ImageFileHeader is the COFF file header immediately following the "PE\0\0"
// signature.
type ImageFileHeader struct {
	Machine              uint16 `json:"machine"`
	NumberOfSections     uint16 `json:"number_of_sections"`
	TimeDateStamp        uint32 `json:"time_date_stamp"`
	PointerToSymbolTable uint32 `json:"pointer_to_symbol_table"`
	NumberOfSymbols      uint32 `json:"number_of_symbols"`
	SizeOfOptionalHeader uint16 `json:"size_of_optional_header"`
	Characteristics      uint16 `json:"characteristics"`
}

// ImageOptionalHeader holds the fields common to both PE32 and PE32+,
// widened where the formats differ (ImageBase, stack/heap commit and
// reserve sizes). BaseOfData is only meaningful when Magic is the PE32
// value; it reads zero for PE32+ images, which drop the field entirely.
type ImageOptionalHeader struct {
	Magic                       uint16                 `json:"magic"`
	MajorLinkerVersion          uint8                  `json:"major_linker_version"`
	MinorLinkerVersion          uint8                  `json:"minor_linker_version"`
	SizeOfCode                  uint32                 `json:"size_of_code"`
	SizeOfInitializedData       uint32                 `json:"size_of_initialized_data"`
	SizeOfUninitializedData     uint32                 `json:"size_of_uninitialized_data"`
	AddressOfEntryPoint         uint32                 `json:"address_of_entry_point"`
	BaseOfCode                  uint32                 `json:"base_of_code"`
	BaseOfData                  uint32                 `json:"base_of_data"`
	ImageBase                   uint64                 `json:"image_base"`
	SectionAlignment            uint32                 `json:"section_alignment"`
	FileAlignment               uint32                 `json:"file_alignment"`
	MajorOperatingSystemVersion uint16                 `json:"major_os_version"`
	MinorOperatingSystemVersion uint16                 `json:"minor_os_version"`
	MajorImageVersion           uint16                 `json:"major_image_version"`
	MinorImageVersion           uint16                 `json:"minor_image_version"`
	MajorSubsystemVersion       uint16                 `json:"major_subsystem_version"`
	MinorSubsystemVersion       uint16                 `json:"minor_subsystem_version"`
	Win32VersionValue           uint32                 `json:"win32_version_value"`
	SizeOfImage                 uint32                 `json:"size_of_image"`
	SizeOfHeaders               uint32                 `json:"size_of_headers"`
	CheckSum                    uint32                 `json:"checksum"`
	Subsystem                   uint16                 `json:"subsystem"`
	DllCharacteristics          uint16                 `json:"dll_characteristics"`
	SizeOfStackReserve          uint64                 `json:"size_of_stack_reserve"`
	SizeOfStackCommit           uint64                 `json:"size_of_stack_commit"`
	SizeOfHeapReserve           uint64                 `json:"size_of_heap_reserve"`
	SizeOfHeapCommit            uint64                 `json:"size_of_heap_commit"`
	LoaderFlags                 uint32                 `json:"loader_flags"`
	NumberOfRvaAndSizes         uint32                 `json:"number_of_rva_and_sizes"`
	DataDirectory               [16]ImageDataDirectory `json:"data_directory"`
}

// ImageNtHeader is the "PE\0\0" signature, the COFF file header and the
// optional header.
type ImageNtHeader struct {
	Signature      uint32              `json:"signature"`
	FileHeader     ImageFileHeader     `json:"file_header"`
	OptionalHeader ImageOptionalHeader `json:"optional_header"`
}

func (r *Reader) parseNtHeader() error {
	c := NewCursor(r.buf)
	if err := c.Seek(r.DOSHeader.AddressOfNewEXEHeader); err != nil {
		return err
	}
	nt := &r.NtHeader

	sig, err := c.ReadU32()
	if err != nil {
		return err
	}
	nt.Signature = sig
	if nt.Signature != ImageNTSignature {
		return errInvalidData(c.Pos()-4, "nt signature")
	}

	fh := &nt.FileHeader
	machineOffset := c.Pos()
	if fh.Machine, err = c.ReadU16(); err != nil {
		return err
	}
	switch fh.Machine {
	case ImageFileMachineI386, ImageFileMachineAMD64, ImageFileMachineARM,
		ImageFileMachineARMNT, ImageFileMachineARM64:
	default:
		if r.opts.Strict {
			return errInvalidData(machineOffset, "machine")
		}
		r.addAnomaly(AnoUnexpectedMachine)
	}
	if fh.NumberOfSections, err = c.ReadU16(); err != nil {
		return err
	}
	if fh.TimeDateStamp, err = c.ReadU32(); err != nil {
		return err
	}
	if fh.PointerToSymbolTable, err = c.ReadU32(); err != nil {
		return err
	}
	if fh.NumberOfSymbols, err = c.ReadU32(); err != nil {
		return err
	}
	if fh.SizeOfOptionalHeader, err = c.ReadU16(); err != nil {
		return err
	}
	if fh.Characteristics, err = c.ReadU16(); err != nil {
		return err
	}

	if fh.PointerToSymbolTable != 0 && fh.NumberOfSymbols != 0 {
		r.addAnomaly(AnoCOFFSymbolsCount)
	}

	return r.parseOptionalHeader(c)
}

func (r *Reader) parseOptionalHeader(c *Cursor) error {
	start := c.Pos()
	oh := &r.NtHeader.OptionalHeader

	magic, err := c.ReadU16()
	if err != nil {
		return err
	}
	oh.Magic = magic

	switch magic {
	case ImageNtOptionalHdr32Magic:
		r.Is64 = false
	case ImageNtOptionalHdr64Magic:
		r.Is64 = true
	default:
		return errInvalidData(start, "optional header magic")
	}
	if r.Is64 && r.opts.PE32Only {
		return errInvalidData(start, "PE32+ rejected by PE32Only option")
	}

	if oh.MajorLinkerVersion, err = c.ReadU8(); err != nil {
		return err
	}
	if oh.MinorLinkerVersion, err = c.ReadU8(); err != nil {
		return err
	}
	if oh.SizeOfCode, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.SizeOfInitializedData, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.SizeOfUninitializedData, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.AddressOfEntryPoint, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.BaseOfCode, err = c.ReadU32(); err != nil {
		return err
	}
	if !r.Is64 {
		if oh.BaseOfData, err = c.ReadU32(); err != nil {
			return err
		}
	}

	if r.Is64 {
		if oh.ImageBase, err = c.ReadU64(); err != nil {
			return err
		}
	} else {
		v, err := c.ReadU32()
		if err != nil {
			return err
		}
		oh.ImageBase = uint64(v)
	}

	if oh.SectionAlignment, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.FileAlignment, err = c.ReadU32(); err != nil {
		return err
	}
	if r.opts.Strict && oh.FileAlignment != 0 && oh.SectionAlignment < oh.FileAlignment {
		return errInvalidData(start, "section alignment below file alignment")
	}

	if oh.MajorOperatingSystemVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.MinorOperatingSystemVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.MajorImageVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.MinorImageVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.MajorSubsystemVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.MinorSubsystemVersion, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.Win32VersionValue, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.SizeOfImage, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.SizeOfHeaders, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.CheckSum, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.Subsystem, err = c.ReadU16(); err != nil {
		return err
	}
	if oh.DllCharacteristics, err = c.ReadU16(); err != nil {
		return err
	}

	if r.Is64 {
		if oh.SizeOfStackReserve, err = c.ReadU64(); err != nil {
			return err
		}
		if oh.SizeOfStackCommit, err = c.ReadU64(); err != nil {
			return err
		}
		if oh.SizeOfHeapReserve, err = c.ReadU64(); err != nil {
			return err
		}
		if oh.SizeOfHeapCommit, err = c.ReadU64(); err != nil {
			return err
		}
	} else {
		v, err := c.ReadU32()
		if err != nil {
			return err
		}
		oh.SizeOfStackReserve = uint64(v)
		if v, err = c.ReadU32(); err != nil {
			return err
		}
		oh.SizeOfStackCommit = uint64(v)
		if v, err = c.ReadU32(); err != nil {
			return err
		}
		oh.SizeOfHeapReserve = uint64(v)
		if v, err = c.ReadU32(); err != nil {
			return err
		}
		oh.SizeOfHeapCommit = uint64(v)
	}

	if oh.LoaderFlags, err = c.ReadU32(); err != nil {
		return err
	}
	if oh.NumberOfRvaAndSizes, err = c.ReadU32(); err != nil {
		return err
	}

	n := oh.NumberOfRvaAndSizes
	if n > 16 {
		n = 16
	}
	for i := uint32(0); i < n; i++ {
		va, err := c.ReadU32()
		if err != nil {
			return err
		}
		sz, err := c.ReadU32()
		if err != nil {
			return err
		}
		oh.DataDirectory[i] = ImageDataDirectory{VirtualAddress: va, Size: sz}
	}

	return nil
}
