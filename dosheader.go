// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// ImageDOSHeader represents the DOS stub of a PE.
type ImageDOSHeader struct {
	Magic                    uint16    `json:"magic"`
	BytesOnLastPageOfFile    uint16    `json:"bytes_on_last_page_of_file"`
	PagesInFile              uint16    `json:"pages_in_file"`
	Relocations              uint16    `json:"relocations"`
	SizeOfHeader             uint16    `json:"size_of_header"`
	MinExtraParagraphsNeeded uint16    `json:"min_extra_paragraphs_needed"`
	MaxExtraParagraphsNeeded uint16    `json:"max_extra_paragraphs_needed"`
	InitialSS                uint16    `json:"initial_ss"`
	InitialSP                uint16    `json:"initial_sp"`
	Checksum                 uint16    `json:"checksum"`
	InitialIP                uint16    `json:"initial_ip"`
	InitialCS                uint16    `json:"initial_cs"`
	AddressOfRelocationTable uint16    `json:"address_of_relocation_table"`
	OverlayNumber            uint16    `json:"overlay_number"`
	ReservedWords1           [4]uint16 `json:"reserved_words_1"`
	OEMIdentifier            uint16    `json:"oem_identifier"`
	OEMInformation           uint16    `json:"oem_information"`
	ReservedWords2           [10]uint16 `json:"reserved_words_2"`
	AddressOfNewEXEHeader    uint32    `json:"address_of_new_exe_header"`
}

// parseDOSHeader parses the DOS stub every PE file begins with. The only
// field this package relies on afterwards is AddressOfNewEXEHeader, which
// locates the real "PE\0\0" header.
func (r *Reader) parseDOSHeader() error {
	c := NewCursor(r.buf)
	h := &r.DOSHeader

	var err error
	if h.Magic, err = c.ReadU16(); err != nil {
		return err
	}
	if h.Magic != ImageDOSSignature && h.Magic != ImageDOSZMSignature {
		return errInvalidData(0, "dos signature")
	}
	if h.BytesOnLastPageOfFile, err = c.ReadU16(); err != nil {
		return err
	}
	if h.PagesInFile, err = c.ReadU16(); err != nil {
		return err
	}
	if h.Relocations, err = c.ReadU16(); err != nil {
		return err
	}
	if h.SizeOfHeader, err = c.ReadU16(); err != nil {
		return err
	}
	if h.MinExtraParagraphsNeeded, err = c.ReadU16(); err != nil {
		return err
	}
	if h.MaxExtraParagraphsNeeded, err = c.ReadU16(); err != nil {
		return err
	}
	if h.InitialSS, err = c.ReadU16(); err != nil {
		return err
	}
	if h.InitialSP, err = c.ReadU16(); err != nil {
		return err
	}
	if h.Checksum, err = c.ReadU16(); err != nil {
		return err
	}
	if h.InitialIP, err = c.ReadU16(); err != nil {
		return err
	}
	if h.InitialCS, err = c.ReadU16(); err != nil {
		return err
	}
	if h.AddressOfRelocationTable, err = c.ReadU16(); err != nil {
		return err
	}
	if h.OverlayNumber, err = c.ReadU16(); err != nil {
		return err
	}
	for i := range h.ReservedWords1 {
		if h.ReservedWords1[i], err = c.ReadU16(); err != nil {
			return err
		}
	}
	if h.OEMIdentifier, err = c.ReadU16(); err != nil {
		return err
	}
	if h.OEMInformation, err = c.ReadU16(); err != nil {
		return err
	}
	for i := range h.ReservedWords2 {
		if h.ReservedWords2[i], err = c.ReadU16(); err != nil {
			return err
		}
	}
	if h.AddressOfNewEXEHeader, err = c.ReadU32(); err != nil {
		return err
	}

	// e_lfanew must be large enough not to collide with the DOS header's
	// signature field and must stay within the file.
	if h.AddressOfNewEXEHeader < 4 || h.AddressOfNewEXEHeader > c.Len() {
		return errInvalidData(60, "e_lfanew")
	}
	if h.AddressOfNewEXEHeader <= 0x3c {
		r.addAnomaly(AnoPEHeaderOverlapDOSHeader)
	}

	return nil
}
