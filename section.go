// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// ImageSectionHeader describes one row of the section table that follows
// the optional header.
type ImageSectionHeader struct {
	Name                 [8]byte `json:"name"`
	VirtualSize          uint32  `json:"virtual_size"`
	VirtualAddress       uint32  `json:"virtual_address"`
	SizeOfRawData        uint32  `json:"size_of_raw_data"`
	PointerToRawData     uint32  `json:"pointer_to_raw_data"`
	PointerToRelocations uint32  `json:"pointer_to_relocations"`
	PointerToLineNumbers uint32  `json:"pointer_to_line_numbers"`
	NumberOfRelocations   uint16 `json:"number_of_relocations"`
	NumberOfLineNumbers   uint16 `json:"number_of_line_numbers"`
	Characteristics      uint32  `json:"characteristics"`
}

// NameString returns the section name with trailing NULs trimmed.
func (s ImageSectionHeader) NameString() string {
	n := 0
	for n < len(s.Name) && s.Name[n] != 0 {
		n++
	}
	return string(s.Name[:n])
}

func (r *Reader) parseSectionHeaders() error {
	sectionTableOffset := r.DOSHeader.AddressOfNewEXEHeader + 4 + 20 + uint32(r.NtHeader.FileHeader.SizeOfOptionalHeader)

	c := NewCursor(r.buf)
	if err := c.Seek(sectionTableOffset); err != nil {
		return err
	}

	count := r.NtHeader.FileHeader.NumberOfSections
	r.Sections = make([]ImageSectionHeader, 0, count)

	for i := uint16(0); i < count; i++ {
		var s ImageSectionHeader
		b, err := c.ReadBytes(8)
		if err != nil {
			return err
		}
		copy(s.Name[:], b)

		var err2 error
		if s.VirtualSize, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.VirtualAddress, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.SizeOfRawData, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.PointerToRawData, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.PointerToRelocations, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.PointerToLineNumbers, err2 = c.ReadU32(); err2 != nil {
			return err2
		}
		if s.NumberOfRelocations, err2 = c.ReadU16(); err2 != nil {
			return err2
		}
		if s.NumberOfLineNumbers, err2 = c.ReadU16(); err2 != nil {
			return err2
		}
		if s.Characteristics, err2 = c.ReadU32(); err2 != nil {
			return err2
		}

		r.Sections = append(r.Sections, s)
	}

	return nil
}

// rvaToOffset resolves a relative virtual address to a file offset by
// scanning the section table for the section whose on-disk range contains
// rva. The match is against SizeOfRawData: bytes past a section's raw data
// have no file offset even when the section's virtual size extends over
// them. Header-resident addresses, covered by no section, map identically.
func (r *Reader) rvaToOffset(rva uint32) (uint32, error) {
	for _, s := range r.Sections {
		va := s.VirtualAddress
		size := s.SizeOfRawData
		if rva >= va && rva < va+size {
			return rva - va + s.PointerToRawData, nil
		}
	}
	if rva < r.NtHeader.OptionalHeader.SizeOfHeaders {
		return rva, nil
	}
	return 0, errOffsetOutOfBounds(rva, "rva not mapped by any section")
}
