// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// TableKind identifies one of the metadata tables by its ECMA-335 table
// number, which also doubles as the high byte of every token referencing
// a row in that table.
type TableKind int

// Table numbers, per ECMA-335 §II.22.
const (
	TableModule                 TableKind = 0x00
	TableTypeRef                TableKind = 0x01
	TableTypeDef                TableKind = 0x02
	TableFieldPtr               TableKind = 0x03
	TableField                  TableKind = 0x04
	TableMethodPtr              TableKind = 0x05
	TableMethodDef              TableKind = 0x06
	TableParamPtr               TableKind = 0x07
	TableParam                  TableKind = 0x08
	TableInterfaceImpl          TableKind = 0x09
	TableMemberRef              TableKind = 0x0A
	TableConstant               TableKind = 0x0B
	TableCustomAttribute        TableKind = 0x0C
	TableFieldMarshal           TableKind = 0x0D
	TableDeclSecurity           TableKind = 0x0E
	TableClassLayout            TableKind = 0x0F
	TableFieldLayout            TableKind = 0x10
	TableStandAloneSig          TableKind = 0x11
	TableEventMap               TableKind = 0x12
	TableEventPtr               TableKind = 0x13
	TableEvent                  TableKind = 0x14
	TablePropertyMap            TableKind = 0x15
	TablePropertyPtr            TableKind = 0x16
	TableProperty               TableKind = 0x17
	TableMethodSemantics        TableKind = 0x18
	TableMethodImpl             TableKind = 0x19
	TableModuleRef              TableKind = 0x1A
	TableTypeSpec               TableKind = 0x1B
	TableImplMap                TableKind = 0x1C
	TableFieldRVA               TableKind = 0x1D
	TableENCLog                 TableKind = 0x1E
	TableENCMap                 TableKind = 0x1F
	TableAssembly               TableKind = 0x20
	TableAssemblyProcessor      TableKind = 0x21
	TableAssemblyOS             TableKind = 0x22
	TableAssemblyRef            TableKind = 0x23
	TableAssemblyRefProcessor   TableKind = 0x24
	TableAssemblyRefOS          TableKind = 0x25
	TableFile                   TableKind = 0x26
	TableExportedType           TableKind = 0x27
	TableManifestResource       TableKind = 0x28
	TableNestedClass            TableKind = 0x29
	TableGenericParam           TableKind = 0x2A
	TableMethodSpec             TableKind = 0x2B
	TableGenericParamConstraint TableKind = 0x2C

	// Portable-PDB debug tables. Enumerated (their presence bits and row
	// counts are read so the stream lays out) but not row-decoded.
	TableDocument               TableKind = 0x30
	TableMethodDebugInformation TableKind = 0x31
	TableLocalScope             TableKind = 0x32
	TableLocalVariable          TableKind = 0x33
	TableLocalConstant          TableKind = 0x34
	TableImportScope            TableKind = 0x35
	TableStateMachineMethod     TableKind = 0x36
	TableCustomDebugInformation TableKind = 0x37

	// tableKindMax spans the whole 64-bit valid mask, so row counts for
	// every bit the mask can set are read in ascending table-id order.
	tableKindMax = 0x40
)

var tableNames = map[TableKind]string{
	TableModule: "Module", TableTypeRef: "TypeRef", TableTypeDef: "TypeDef",
	TableFieldPtr: "FieldPtr", TableField: "Field", TableMethodPtr: "MethodPtr",
	TableMethodDef: "MethodDef", TableParamPtr: "ParamPtr", TableParam: "Param",
	TableInterfaceImpl: "InterfaceImpl", TableMemberRef: "MemberRef",
	TableConstant: "Constant", TableCustomAttribute: "CustomAttribute",
	TableFieldMarshal: "FieldMarshal", TableDeclSecurity: "DeclSecurity",
	TableClassLayout: "ClassLayout", TableFieldLayout: "FieldLayout",
	TableStandAloneSig: "StandAloneSig", TableEventMap: "EventMap",
	TableEventPtr: "EventPtr", TableEvent: "Event", TablePropertyMap: "PropertyMap",
	TablePropertyPtr: "PropertyPtr", TableProperty: "Property",
	TableMethodSemantics: "MethodSemantics", TableMethodImpl: "MethodImpl",
	TableModuleRef: "ModuleRef", TableTypeSpec: "TypeSpec", TableImplMap: "ImplMap",
	TableFieldRVA: "FieldRVA", TableENCLog: "ENCLog", TableENCMap: "ENCMap",
	TableAssembly: "Assembly", TableAssemblyProcessor: "AssemblyProcessor",
	TableAssemblyOS: "AssemblyOS", TableAssemblyRef: "AssemblyRef",
	TableAssemblyRefProcessor: "AssemblyRefProcessor", TableAssemblyRefOS: "AssemblyRefOS",
	TableFile: "File", TableExportedType: "ExportedType",
	TableManifestResource: "ManifestResource", TableNestedClass: "NestedClass",
	TableGenericParam: "GenericParam", TableMethodSpec: "MethodSpec",
	TableGenericParamConstraint: "GenericParamConstraint",
	TableDocument: "Document", TableMethodDebugInformation: "MethodDebugInformation",
	TableLocalScope: "LocalScope", TableLocalVariable: "LocalVariable",
	TableLocalConstant: "LocalConstant", TableImportScope: "ImportScope",
	TableStateMachineMethod:     "StateMachineMethod",
	TableCustomDebugInformation: "CustomDebugInformation",
}

func (k TableKind) String() string {
	if n, ok := tableNames[k]; ok {
		return n
	}
	return "Unknown"
}

// Token is a 32-bit metadata token: the table kind in the high byte and a
// 1-based row number in the low three bytes. A zero token is the null
// token, valid wherever the format allows an optional reference.
type Token uint32

// NewToken builds a token from a table kind and a 1-based row number.
func NewToken(kind TableKind, row uint32) Token {
	return Token(uint32(kind)<<24 | (row & 0x00FFFFFF))
}

// Table returns the token's table kind.
func (t Token) Table() TableKind { return TableKind(t >> 24) }

// RID returns the token's 1-based row number, or 0 for the null token.
func (t Token) RID() uint32 { return uint32(t) & 0x00FFFFFF }

// IsNull reports whether t is the null token.
func (t Token) IsNull() bool { return t == 0 }

// ModuleRow is table 0x00.
type ModuleRow struct {
	Generation uint16
	Name       uint32
	Mvid       uint32
	EncID      uint32
	EncBaseID  uint32
}

// TypeRefRow is table 0x01.
type TypeRefRow struct {
	ResolutionScope uint32
	Name            uint32
	Namespace       uint32
}

// TypeDef flags (ECMA-335 §II.23.1.15), the subset this reader surfaces.
const (
	TypeAttrPublic       = 0x00000001
	TypeAttrInterface    = 0x00000020
	TypeAttrAbstract     = 0x00000080
	TypeAttrSealed       = 0x00000100
	TypeAttrSpecialName  = 0x00000400
)

// TypeDefRow is table 0x02.
type TypeDefRow struct {
	Flags      uint32
	Name       uint32
	Namespace  uint32
	Extends    uint32
	FieldList  uint32
	MethodList uint32
}

// FieldRow is table 0x04.
type FieldRow struct {
	Flags     uint16
	Name      uint32
	Signature uint32
}

// MethodDefRow is table 0x06.
type MethodDefRow struct {
	RVA       uint32
	ImplFlags uint16
	Flags     uint16
	Name      uint32
	Signature uint32
	ParamList uint32
}

// ParamRow is table 0x08.
type ParamRow struct {
	Flags    uint16
	Sequence uint16
	Name     uint32
}

// InterfaceImplRow is table 0x09.
type InterfaceImplRow struct {
	Class     uint32
	Interface uint32
}

// MemberRefRow is table 0x0A.
type MemberRefRow struct {
	Class     uint32
	Name      uint32
	Signature uint32
}

// ConstantRow is table 0x0B.
type ConstantRow struct {
	Type    uint8
	Parent  uint32
	Value   uint32
}

// CustomAttributeRow is table 0x0C.
type CustomAttributeRow struct {
	Parent uint32
	Type   uint32
	Value  uint32
}

// FieldMarshalRow is table 0x0D.
type FieldMarshalRow struct {
	Parent     uint32
	NativeType uint32
}

// DeclSecurityRow is table 0x0E.
type DeclSecurityRow struct {
	Action        uint16
	Parent        uint32
	PermissionSet uint32
}

// ClassLayoutRow is table 0x0F.
type ClassLayoutRow struct {
	PackingSize uint16
	ClassSize   uint32
	Parent      uint32
}

// FieldLayoutRow is table 0x10.
type FieldLayoutRow struct {
	Offset uint32
	Field  uint32
}

// StandAloneSigRow is table 0x11.
type StandAloneSigRow struct {
	Signature uint32
}

// EventMapRow is table 0x12.
type EventMapRow struct {
	Parent    uint32
	EventList uint32
}

// EventRow is table 0x14.
type EventRow struct {
	EventFlags uint16
	Name       uint32
	EventType  uint32
}

// PropertyMapRow is table 0x15.
type PropertyMapRow struct {
	Parent       uint32
	PropertyList uint32
}

// PropertyRow is table 0x17.
type PropertyRow struct {
	Flags uint16
	Name  uint32
	Type  uint32
}

// MethodSemanticsRow is table 0x18.
type MethodSemanticsRow struct {
	Semantics   uint16
	Method      uint32
	Association uint32
}

// MethodImplRow is table 0x19.
type MethodImplRow struct {
	Class              uint32
	MethodBody         uint32
	MethodDeclaration  uint32
}

// ModuleRefRow is table 0x1A.
type ModuleRefRow struct {
	Name uint32
}

// TypeSpecRow is table 0x1B.
type TypeSpecRow struct {
	Signature uint32
}

// ImplMapRow is table 0x1C.
type ImplMapRow struct {
	MappingFlags   uint16
	MemberForwarded uint32
	ImportName     uint32
	ImportScope    uint32
}

// FieldRVARow is table 0x1D.
type FieldRVARow struct {
	RVA   uint32
	Field uint32
}

// AssemblyHashAlgorithm values (ECMA-335 §II.23.1.1).
const (
	AssemblyHashAlgNone   = 0x0000
	AssemblyHashAlgMD5    = 0x8003
	AssemblyHashAlgSHA1   = 0x8004
)

// AssemblyFlags (ECMA-335 §II.23.1.2), the subset worth surfacing.
const (
	AssemblyFlagsPublicKey                  = 0x0001
	AssemblyFlagsRetargetable               = 0x0100
	AssemblyFlagsDisableJITCompileOptimizer = 0x4000
	AssemblyFlagsEnableJITCompileTracking   = 0x8000
)

// AssemblyRow is table 0x20, the single row describing this assembly's own
// identity.
type AssemblyRow struct {
	HashAlgId      uint32
	MajorVersion   uint16
	MinorVersion   uint16
	BuildNumber    uint16
	RevisionNumber uint16
	Flags          uint32
	PublicKey      uint32
	Name           uint32
	Culture        uint32
}

// AssemblyRefRow is table 0x23. HashValue is read from its own trailing
// blob field, not aliased to PublicKeyOrToken — some readers conflate the
// two because both are blob-heap indices of similar size, but ECMA-335
// §II.22.5 lays them out as separate columns.
type AssemblyRefRow struct {
	MajorVersion     uint16
	MinorVersion     uint16
	BuildNumber      uint16
	RevisionNumber   uint16
	Flags            uint32
	PublicKeyOrToken uint32
	Name             uint32
	Culture          uint32
	HashValue        uint32
}

// FileRow is table 0x26.
type FileRow struct {
	Flags     uint32
	Name      uint32
	HashValue uint32
}

// ExportedTypeRow is table 0x27.
type ExportedTypeRow struct {
	Flags          uint32
	TypeDefId      uint32
	TypeName       uint32
	TypeNamespace  uint32
	Implementation uint32
}

// ManifestResourceRow is table 0x28.
type ManifestResourceRow struct {
	Offset         uint32
	Flags          uint32
	Name           uint32
	Implementation uint32
}

// NestedClassRow is table 0x29.
type NestedClassRow struct {
	NestedClass    uint32
	EnclosingClass uint32
}

// GenericParamRow is table 0x2A.
type GenericParamRow struct {
	Number uint16
	Flags  uint16
	Owner  uint32
	Name   uint32
}

// MethodSpecRow is table 0x2B.
type MethodSpecRow struct {
	Method        uint32
	Instantiation uint32
}

// GenericParamConstraintRow is table 0x2C.
type GenericParamConstraintRow struct {
	Owner      uint32
	Constraint uint32
}
