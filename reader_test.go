// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"bytes"
	"errors"
	"testing"
)

// TestParseMinimalValidImage is scenario S1: the smallest well-formed
// managed image this package should accept end to end — a Module and
// Assembly row and nothing else.
func TestParseMinimalValidImage(t *testing.T) {
	strs, soff := strHeap("MinimalModule", "MinimalAssembly")
	guids := make([]byte, 16)
	blobs, _ := blobHeap()

	tables := buildTablesStream(0, map[TableKind][][]byte{
		TableModule:   {moduleRowBytes(uint16(soff[0]))},
		TableAssembly: {assemblyRowBytes(uint16(soff[1]), 0)},
	})

	root := buildMetadataRoot("v4.0.30319", []namedStream{
		{"#Strings", strs},
		{"#GUID", guids},
		{"#Blob", blobs},
		{"#~", tables},
	})
	img := buildImage(root)

	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !r.HasCLIHeader {
		t.Fatal("expected HasCLIHeader to be set")
	}

	id, err := r.Identity()
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id.Name != "MinimalAssembly" {
		t.Fatalf("expected assembly name %q, got %q", "MinimalAssembly", id.Name)
	}
	if id.Version != "1.2.3.4" {
		t.Fatalf("expected version 1.2.3.4, got %q", id.Version)
	}

	mod, err := r.Module()
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	name, err := r.Strings.GetString(mod.Name)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if name != "MinimalModule" {
		t.Fatalf("expected module name %q, got %q", "MinimalModule", name)
	}
}

// TestParseTwoTypeModule is scenario S2: a module declaring two user types
// with owned fields/methods, plus a reference to an external assembly.
func TestParseTwoTypeModule(t *testing.T) {
	strs, soff := strHeap(
		"TwoTypeModule", "TwoTypeAssembly", "", "First", "Second", "Field1", "Method1", "mscorlib",
	)
	guids := make([]byte, 16)
	blobs, _ := blobHeap()

	tables := buildTablesStream(0, map[TableKind][][]byte{
		TableModule:   {moduleRowBytes(uint16(soff[0]))},
		TableAssembly: {assemblyRowBytes(uint16(soff[1]), uint16(soff[2]))},
		TableTypeDef: {
			typeDefRowBytes(uint16(soff[2]), uint16(soff[2]), 1, 1), // <Module>
			typeDefRowBytes(uint16(soff[3]), uint16(soff[2]), 1, 1), // First: owns Field1/Method1
			typeDefRowBytes(uint16(soff[4]), uint16(soff[2]), 2, 2), // Second: owns nothing further
		},
		TableField:      {fieldRowBytes(uint16(soff[5]))},
		TableMethodDef:  {methodDefRowBytes(uint16(soff[6]))},
		TableAssemblyRef: {assemblyRefRowBytes(uint16(soff[7]), 0)},
	})

	root := buildMetadataRoot("v4.0.30319", []namedStream{
		{"#Strings", strs},
		{"#GUID", guids},
		{"#Blob", blobs},
		{"#~", tables},
	})
	img := buildImage(root)

	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	types, err := r.Types()
	if err != nil {
		t.Fatalf("Types: %v", err)
	}
	if len(types) != 3 {
		t.Fatalf("expected 3 TypeDef rows (including <Module>), got %d", len(types))
	}
	first := types[1]
	if first.Name != "First" {
		t.Fatalf("expected second TypeDef to be named First, got %q", first.Name)
	}
	if first.FieldStart != 1 || first.FieldEnd != 2 {
		t.Fatalf("First should own exactly field 1, got [%d,%d)", first.FieldStart, first.FieldEnd)
	}
	if first.MethodStart != 1 || first.MethodEnd != 2 {
		t.Fatalf("First should own exactly method 1, got [%d,%d)", first.MethodStart, first.MethodEnd)
	}
	second := types[2]
	if second.FieldStart != second.FieldEnd {
		t.Fatalf("Second should own no fields, got [%d,%d)", second.FieldStart, second.FieldEnd)
	}

	refs, err := r.References()
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "mscorlib" {
		t.Fatalf("expected a single reference to mscorlib, got %+v", refs)
	}
}

// TestParseTruncatedTablesStreamFails is scenario S4: a tables stream that
// is cut off mid-row must fail cleanly, never panic.
func TestParseTruncatedTablesStreamFails(t *testing.T) {
	strs, soff := strHeap("M", "A")
	guids := make([]byte, 16)
	blobs, _ := blobHeap()

	tables := buildTablesStream(0, map[TableKind][][]byte{
		TableModule:   {moduleRowBytes(uint16(soff[0]))},
		TableAssembly: {assemblyRowBytes(uint16(soff[1]), 0)},
	})
	tables = tables[:len(tables)-4] // chop the last row short

	root := buildMetadataRoot("v4.0.30319", []namedStream{
		{"#Strings", strs},
		{"#GUID", guids},
		{"#Blob", blobs},
		{"#~", tables},
	})
	img := buildImage(root)

	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err == nil {
		t.Fatal("expected Parse to fail on a truncated tables stream")
	}
}

// TestParseBadDOSSignatureFails: a file whose DOS signature isn't "MZ"
// must be rejected at the very first step.
func TestParseBadDOSSignatureFails(t *testing.T) {
	img := buildImage(buildMetadataRoot("v4.0.30319", nil))
	img[0] = 'X'
	img[1] = 'X'

	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err == nil {
		t.Fatal("expected Parse to reject a corrupt DOS signature")
	}
}

// TestParseBadNTSignatureFails: bytes at e_lfanew that almost spell
// "PE\0\0" must be rejected as InvalidData at that offset.
func TestParseBadNTSignatureFails(t *testing.T) {
	img := buildImage(buildMetadataRoot("v4.0.30319", nil))
	img[0x42] = 0x01 // PE\x01\x00

	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	err = r.Parse()
	if err == nil {
		t.Fatal("expected Parse to reject a corrupt PE signature")
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != ErrInvalidData {
		t.Fatalf("expected InvalidData, got %v", err)
	}
	if e.Offset != 0x40 {
		t.Fatalf("expected the error anchored at e_lfanew (0x40), got 0x%x", e.Offset)
	}
}

// TestStreamHeaderPaddingForEveryNameLength is the stream-directory
// alignment property: whatever length a stream's name has, the 4-byte
// padding after name+NUL must leave the next header aligned so every
// declared (offset, size) still round-trips to its stream's bytes.
func TestStreamHeaderPaddingForEveryNameLength(t *testing.T) {
	names := []string{"#A", "#AB", "#ABC", "#ABCD", "#ABCDE", "#ABCDEF"}
	streams := make([]namedStream, 0, len(names)+1)
	payloads := make(map[string][]byte, len(names))
	for i, name := range names {
		payload := bytes.Repeat([]byte{byte(i + 1)}, 4)
		payloads[name] = payload
		streams = append(streams, namedStream{name, payload})
	}
	streams = append(streams, namedStream{"#~", buildTablesStream(0, nil)})

	img := buildImage(buildMetadataRoot("v4.0.30319", streams))
	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.MetadataRoot.Streams) != len(streams) {
		t.Fatalf("expected %d stream headers, got %d", len(streams), len(r.MetadataRoot.Streams))
	}
	for _, name := range names {
		data, ok := r.streamData(name)
		if !ok {
			t.Fatalf("stream %q was not found after parsing", name)
		}
		if !bytes.Equal(data, payloads[name]) {
			t.Fatalf("stream %q: declared offset/size does not map back to its payload", name)
		}
	}
}

// TestParsePE32OnlyRejectsPE32Plus is scenario S6's Options-driven sibling:
// the PE32Only option must reject a PE32+ optional header magic.
func TestParsePE32OnlyRejectsPE32Plus(t *testing.T) {
	img := buildImage(buildMetadataRoot("v4.0.30319", nil))
	// Patch the optional header magic (right after DOS+file headers) to
	// the PE32+ value.
	magicOffset := 0x40 + 4 + 20
	img[magicOffset] = 0x0b
	img[magicOffset+1] = 0x02

	r, err := NewBytes(img, &Options{Strict: true, PE32Only: true})
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err == nil {
		t.Fatal("expected Parse to reject a PE32+ image when PE32Only is set")
	}
}

func TestCertificateAbsentWhenSecurityDirectoryEmpty(t *testing.T) {
	tables := buildTablesStream(0, map[TableKind][][]byte{})
	root := buildMetadataRoot("v4.0.30319", []namedStream{{"#~", tables}})
	img := buildImage(root)
	r, err := NewBytes(img, nil)
	if err != nil {
		t.Fatalf("NewBytes: %v", err)
	}
	if err := r.Parse(); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cert, err := r.Certificate()
	if err != nil {
		t.Fatalf("Certificate: %v", err)
	}
	if cert != nil {
		t.Fatal("expected no certificate when the Security directory is empty")
	}
}

// FuzzParseImage exercises Parse end to end against mutated copies of the
// synthetic images built above. Parse must never panic; any rejection has
// to surface as an error.
func FuzzParseImage(f *testing.F) {
	strs, soff := strHeap("M", "A")
	guids := make([]byte, 16)
	blobs, _ := blobHeap()
	tables := buildTablesStream(0, map[TableKind][][]byte{
		TableModule:   {moduleRowBytes(uint16(soff[0]))},
		TableAssembly: {assemblyRowBytes(uint16(soff[1]), 0)},
	})
	root := buildMetadataRoot("v4.0.30319", []namedStream{
		{"#Strings", strs},
		{"#GUID", guids},
		{"#Blob", blobs},
		{"#~", tables},
	})
	f.Add(buildImage(root))

	truncated := buildImage(root)
	f.Add(truncated[:len(truncated)-4])

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := NewBytes(data, nil)
		if err != nil {
			return
		}
		_ = r.Parse()
	})
}
