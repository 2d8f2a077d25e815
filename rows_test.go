// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"bytes"
	"testing"
)

// typeDefRowBytes encodes one TypeDef row per tableSchemas[TableTypeDef]:
// Flags(u32), Name(str), Namespace(str), Extends(coded TypeDefOrRef, 2
// bytes when narrow), FieldList(simple), MethodList(simple).
func typeDefRowBytes(name, namespace, fieldList, methodList uint16) []byte {
	var b bytes.Buffer
	u32(&b, 0)
	u16(&b, name)
	u16(&b, namespace)
	u16(&b, 0) // Extends: null TypeDefOrRef coded index
	u16(&b, fieldList)
	u16(&b, methodList)
	return b.Bytes()
}

func fieldRowBytes(name uint16) []byte {
	var b bytes.Buffer
	u16(&b, 0) // flags
	u16(&b, name)
	u16(&b, 0) // signature blob index
	return b.Bytes()
}

func methodDefRowBytes(name uint16) []byte {
	var b bytes.Buffer
	u32(&b, 0) // rva
	u16(&b, 0) // implflags
	u16(&b, 0) // flags
	u16(&b, name)
	u16(&b, 0) // signature
	u16(&b, 1) // paramlist
	return b.Bytes()
}

// buildTestReader wraps a synthetic tables stream and string heap in a bare
// Reader, bypassing PE/CLI/metadata-root parsing entirely: the row-getter
// and ownership-range logic under test only ever look at r.Tables and
// r.Strings.
func buildTestReader(t *testing.T, rows map[TableKind][][]byte, strings []byte) *Reader {
	t.Helper()
	data := buildTablesStream(0, rows)
	ts, err := parseTablesStream(data)
	if err != nil {
		t.Fatalf("parseTablesStream: %v", err)
	}
	return &Reader{Tables: ts, Strings: StringHeap{data: strings}}
}

func TestTypeDefFieldRangeDerivedFromNextRowGap(t *testing.T) {
	strs, off := strHeap("<Module>", "First", "Second")

	r := buildTestReader(t, map[TableKind][][]byte{
		TableTypeDef: {
			typeDefRowBytes(uint16(off[0]), 0, 1, 1), // <Module>, owns no fields/methods
			typeDefRowBytes(uint16(off[1]), 0, 1, 1), // First: fields [1,3), methods [1,1)
			typeDefRowBytes(uint16(off[2]), 0, 3, 1), // Second: fields [3,4), methods [1,1)
		},
		TableField: {
			fieldRowBytes(0), fieldRowBytes(0), fieldRowBytes(0),
		},
	}, strs)

	fs, fe, err := r.TypeDefFieldRange(2) // First
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs != 1 || fe != 3 {
		t.Fatalf("First's field range: want [1,3), got [%d,%d)", fs, fe)
	}

	fs, fe, err = r.TypeDefFieldRange(3) // Second, the last TypeDef row
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs != 3 || fe != 4 {
		t.Fatalf("Second's field range: want [3,4) (to end of Field table), got [%d,%d)", fs, fe)
	}
}

func TestTypeDefMethodRangeEmptyWhenListsCoincide(t *testing.T) {
	strs, off := strHeap("<Module>", "Empty")

	r := buildTestReader(t, map[TableKind][][]byte{
		TableTypeDef: {
			typeDefRowBytes(uint16(off[0]), 0, 1, 1),
			typeDefRowBytes(uint16(off[1]), 0, 1, 1),
		},
		TableMethodDef: {},
	}, strs)

	ms, me, err := r.TypeDefMethodRange(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms != me {
		t.Fatalf("equal consecutive MethodList values should derive an empty range, got [%d,%d)", ms, me)
	}
}

func TestTypeDefOwnershipJoinsWithStringHeap(t *testing.T) {
	strs, off := strHeap("<Module>", "Widget")

	r := buildTestReader(t, map[TableKind][][]byte{
		TableTypeDef: {
			typeDefRowBytes(uint16(off[0]), 0, 1, 1),
			typeDefRowBytes(uint16(off[1]), 0, 1, 1),
		},
	}, strs)

	row, err := r.TypeDef(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, err := r.Strings.GetString(row.Name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "Widget" {
		t.Fatalf("expected %q, got %q", "Widget", name)
	}
}

func TestConstantRowSkipsPaddingByte(t *testing.T) {
	// A Constant row is ELEMENT_TYPE(u8), padding(u8), Parent(HasConstant
	// coded), Value(blob): the padding byte must not leak into Parent.
	var b bytes.Buffer
	u8(&b, 0x08) // ELEMENT_TYPE_I4
	u8(&b, 0)
	u16(&b, 1<<2|0) // HasConstant: Field row 1, tag 0
	u16(&b, 0x33)   // value blob index

	r := buildTestReader(t, map[TableKind][][]byte{
		TableConstant: {b.Bytes()},
	}, []byte{0})

	row, err := r.Constant(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Type != 0x08 {
		t.Fatalf("expected ELEMENT_TYPE_I4, got 0x%x", row.Type)
	}
	tok, err := ResolveHasConstant(row.Parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Table() != TableField || tok.RID() != 1 {
		t.Fatalf("expected Parent to decode to Field row 1, got %v row %d", tok.Table(), tok.RID())
	}
	if row.Value != 0x33 {
		t.Fatalf("expected Value blob index 0x33, got 0x%x", row.Value)
	}
}

func TestRowGetterMissingTable(t *testing.T) {
	r := buildTestReader(t, map[TableKind][][]byte{}, []byte{0})
	if _, err := r.Module(); err == nil {
		t.Fatal("Module() against a tables stream with no Module table should fail")
	}
}
