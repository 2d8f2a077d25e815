// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// CodedIndexKind identifies one of the fourteen coded-index shapes ECMA-335
// §II.24.2.6 defines. A coded index packs a table tag into the low bits of
// the stored value and a row number into the rest.
type CodedIndexKind int

const (
	CodedTypeDefOrRef CodedIndexKind = iota
	CodedHasConstant
	CodedHasCustomAttribute
	CodedHasFieldMarshal
	CodedHasDeclSecurity
	CodedMemberRefParent
	CodedHasSemantics
	CodedMethodDefOrRef
	CodedMemberForwarded
	CodedImplementation
	CodedCustomAttributeType
	CodedResolutionScope
	CodedTypeOrMethodDef
	CodedHasCustomDebugInformation
)

// codedIndexDef is the tag-bit width and ordered table set of one coded
// index kind. Tag value == position in Tables, except where noted.
type codedIndexDef struct {
	tagBits uint
	tables  []TableKind // tables[i] has tag i; a -1 slot (tableKindNone) means "tag reserved, unused"
}

const tableKindNone TableKind = -1

var codedIndexDefs = map[CodedIndexKind]codedIndexDef{
	CodedTypeDefOrRef: {2, []TableKind{TableTypeDef, TableTypeRef, TableTypeSpec}},
	CodedHasConstant:  {2, []TableKind{TableField, TableParam, TableProperty}},
	CodedHasCustomAttribute: {5, []TableKind{
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam,
		TableInterfaceImpl, TableMemberRef, TableModule, TableDeclSecurity,
		TableProperty, TableEvent, TableStandAloneSig, TableModuleRef,
		TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile,
		TableExportedType, TableManifestResource, TableGenericParam,
		TableGenericParamConstraint, TableMethodSpec,
	}},
	CodedHasFieldMarshal: {1, []TableKind{TableField, TableParam}},
	CodedHasDeclSecurity: {2, []TableKind{TableTypeDef, TableMethodDef, TableAssembly}},
	CodedMemberRefParent: {3, []TableKind{
		TableTypeDef, TableTypeRef, TableModuleRef, TableMethodDef, TableTypeSpec,
	}},
	CodedHasSemantics:   {1, []TableKind{TableEvent, TableProperty}},
	CodedMethodDefOrRef: {1, []TableKind{TableMethodDef, TableMemberRef}},
	CodedMemberForwarded: {1, []TableKind{TableField, TableMethodDef}},
	CodedImplementation: {2, []TableKind{TableFile, TableAssemblyRef, TableExportedType}},
	CodedCustomAttributeType: {3, []TableKind{
		tableKindNone, tableKindNone, TableMethodDef, TableMemberRef, tableKindNone,
	}},
	CodedResolutionScope: {2, []TableKind{TableModule, TableModuleRef, TableAssemblyRef, TableTypeRef}},
	CodedTypeOrMethodDef: {1, []TableKind{TableTypeDef, TableMethodDef}},
	CodedHasCustomDebugInformation: {5, []TableKind{
		TableMethodDef, TableField, TableTypeRef, TableTypeDef, TableParam,
		TableInterfaceImpl, TableMemberRef, TableModule, TableDeclSecurity,
		TableProperty, TableEvent, TableStandAloneSig, TableModuleRef,
		TableTypeSpec, TableAssembly, TableAssemblyRef, TableFile,
		TableExportedType, TableManifestResource, TableGenericParam,
		TableGenericParamConstraint, TableMethodSpec, TableDocument,
		TableLocalScope, TableLocalVariable, TableLocalConstant,
		TableImportScope,
	}},
}

// width reports whether this coded index is stored as 2 or 4 bytes, given
// the row counts of every table named in this kind's set: 2 bytes if the
// largest such table has fewer rows than 2^(16-tagBits), 4 bytes otherwise.
func (def codedIndexDef) width(rowCounts [tableKindMax]uint32) uint8 {
	limit := uint32(1) << (16 - def.tagBits)
	var maxRows uint32
	for _, t := range def.tables {
		if t == tableKindNone {
			continue
		}
		if rowCounts[t] > maxRows {
			maxRows = rowCounts[t]
		}
	}
	if maxRows < limit {
		return 2
	}
	return 4
}

// decode splits a raw coded-index value into its table kind and row
// number, per this kind's tag-bit width and table set.
func (def codedIndexDef) decode(raw uint32) (Token, error) {
	tagMask := uint32(1)<<def.tagBits - 1
	tag := raw & tagMask
	row := raw >> def.tagBits
	if row == 0 {
		// A row number of 0 is the null coded index regardless of which tag
		// happens to sit in the low bits: a reserved tag must not reject a
		// null reference, only a reserved tag paired with a real row.
		return 0, nil
	}
	if int(tag) >= len(def.tables) || def.tables[tag] == tableKindNone {
		return 0, errInvalidData(raw, "coded index tag")
	}
	return NewToken(def.tables[tag], row), nil
}

// encode is the inverse of decode: it packs a token back into a raw
// coded-index value for the given kind, returning an error if the token's
// table is not a member of this kind's set.
func (def codedIndexDef) encode(t Token) (uint32, error) {
	if t.IsNull() {
		return 0, nil
	}
	for tag, tbl := range def.tables {
		if tbl == t.Table() {
			return (t.RID() << def.tagBits) | uint32(tag), nil
		}
	}
	return 0, errInvalidData(uint32(t), "token table not in coded index set")
}
