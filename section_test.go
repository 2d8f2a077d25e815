// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"errors"
	"testing"
)

func TestRvaToOffsetResolvesWithinSection(t *testing.T) {
	r := &Reader{
		Sections: []ImageSectionHeader{
			{VirtualAddress: 0x2000, VirtualSize: 0x400, SizeOfRawData: 0x400, PointerToRawData: 0x200},
		},
	}
	cases := []struct {
		rva, want uint32
	}{
		{0x2000, 0x200},
		{0x23FF, 0x5FF},
	}
	for _, tc := range cases {
		off, err := r.rvaToOffset(tc.rva)
		if err != nil {
			t.Fatalf("rva 0x%x: unexpected error: %v", tc.rva, err)
		}
		if off != tc.want {
			t.Fatalf("rva 0x%x: expected offset 0x%x, got 0x%x", tc.rva, tc.want, off)
		}
	}
	if _, err := r.rvaToOffset(0x2400); err == nil {
		t.Fatal("an rva one past the section's raw data must not resolve")
	}
}

func TestRvaToOffsetMatchesAgainstRawSize(t *testing.T) {
	// Virtual size overhangs the raw data (a .bss-style tail): the
	// overhang has no file offset and must not resolve.
	r := &Reader{
		Sections: []ImageSectionHeader{
			{VirtualAddress: 0x1000, VirtualSize: 0x400, SizeOfRawData: 0x200, PointerToRawData: 0x400},
		},
	}
	off, err := r.rvaToOffset(0x1100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off != 0x500 {
		t.Fatalf("expected offset 0x500, got 0x%x", off)
	}
	if _, err := r.rvaToOffset(0x1300); err == nil {
		t.Fatal("an rva inside the virtual overhang past raw data must not resolve")
	}
}

func TestRvaToOffsetHeaderFallback(t *testing.T) {
	r := &Reader{}
	r.NtHeader.OptionalHeader.SizeOfHeaders = 0x400
	off, err := r.rvaToOffset(0x100)
	if err != nil {
		t.Fatalf("an rva inside SizeOfHeaders should resolve identically: %v", err)
	}
	if off != 0x100 {
		t.Fatalf("expected identity-mapped offset 0x100, got 0x%x", off)
	}
}

func TestRvaToOffsetUnmappedFails(t *testing.T) {
	r := &Reader{
		Sections: []ImageSectionHeader{
			{VirtualAddress: 0x1000, VirtualSize: 0x100, SizeOfRawData: 0x100, PointerToRawData: 0x200},
		},
	}
	r.NtHeader.OptionalHeader.SizeOfHeaders = 0x10
	_, err := r.rvaToOffset(0x5000)
	if err == nil {
		t.Fatal("an rva covered by no section and past SizeOfHeaders should fail")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrOffsetOutOfBounds {
		t.Fatalf("expected OffsetOutOfBounds, got %v", err)
	}
}

func TestSectionNameStringTrimsTrailingNULs(t *testing.T) {
	s := ImageSectionHeader{Name: [8]byte{'.', 't', 'e', 'x', 't', 0, 0, 0}}
	if got := s.NameString(); got != ".text" {
		t.Fatalf("expected %q, got %q", ".text", got)
	}
}
