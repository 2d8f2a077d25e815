// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// Module returns the single row of the Module table, which every managed
// image declares exactly once.
func (r *Reader) Module() (ModuleRow, error) {
	raw, err := r.Tables.rawRow(TableModule, 1)
	if err != nil {
		return ModuleRow{}, err
	}
	v, err := readColumns(r.Tables, TableModule, raw)
	if err != nil {
		return ModuleRow{}, err
	}
	return ModuleRow{
		Generation: uint16(v[0]), Name: v[1], Mvid: v[2], EncID: v[3], EncBaseID: v[4],
	}, nil
}

// TypeDef returns the 1-based row rid of the TypeDef table.
func (r *Reader) TypeDef(rid uint32) (TypeDefRow, error) {
	raw, err := r.Tables.rawRow(TableTypeDef, rid)
	if err != nil {
		return TypeDefRow{}, err
	}
	v, err := readColumns(r.Tables, TableTypeDef, raw)
	if err != nil {
		return TypeDefRow{}, err
	}
	return TypeDefRow{
		Flags: v[0], Name: v[1], Namespace: v[2], Extends: v[3],
		FieldList: v[4], MethodList: v[5],
	}, nil
}

// TypeDefFieldRange returns the [start, end) 1-based row range of the
// Field table owned by TypeDef row rid, derived from the gap between its
// FieldList and the next TypeDef's FieldList (or the end of the Field
// table, for the last TypeDef row). Neither bound is stored in the file;
// both are computed on demand.
func (r *Reader) TypeDefFieldRange(rid uint32) (start, end uint32, err error) {
	return r.typeDefOwnedRange(rid, TableField, func(row TypeDefRow) uint32 { return row.FieldList })
}

// TypeDefMethodRange is TypeDefFieldRange's analogue for the MethodDef
// table.
func (r *Reader) TypeDefMethodRange(rid uint32) (start, end uint32, err error) {
	return r.typeDefOwnedRange(rid, TableMethodDef, func(row TypeDefRow) uint32 { return row.MethodList })
}

func (r *Reader) typeDefOwnedRange(rid uint32, owned TableKind, field func(TypeDefRow) uint32) (uint32, uint32, error) {
	cur, err := r.TypeDef(rid)
	if err != nil {
		return 0, 0, err
	}
	start := field(cur)
	total := r.Tables.RowCount(owned)

	count := r.Tables.RowCount(TableTypeDef)
	end := total + 1
	if rid < count {
		next, err := r.TypeDef(rid + 1)
		if err != nil {
			return 0, 0, err
		}
		end = field(next)
	}
	if end > total+1 {
		end = total + 1
	}
	if start == 0 {
		start = 1
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// Field returns the 1-based row rid of the Field table.
func (r *Reader) Field(rid uint32) (FieldRow, error) {
	raw, err := r.Tables.rawRow(TableField, rid)
	if err != nil {
		return FieldRow{}, err
	}
	v, err := readColumns(r.Tables, TableField, raw)
	if err != nil {
		return FieldRow{}, err
	}
	return FieldRow{Flags: uint16(v[0]), Name: v[1], Signature: v[2]}, nil
}

// MethodDef returns the 1-based row rid of the MethodDef table.
func (r *Reader) MethodDef(rid uint32) (MethodDefRow, error) {
	raw, err := r.Tables.rawRow(TableMethodDef, rid)
	if err != nil {
		return MethodDefRow{}, err
	}
	v, err := readColumns(r.Tables, TableMethodDef, raw)
	if err != nil {
		return MethodDefRow{}, err
	}
	return MethodDefRow{
		RVA: v[0], ImplFlags: uint16(v[1]), Flags: uint16(v[2]),
		Name: v[3], Signature: v[4], ParamList: v[5],
	}, nil
}

// MethodDefParamRange returns the [start, end) 1-based row range of the
// Param table owned by MethodDef row rid.
func (r *Reader) MethodDefParamRange(rid uint32) (start, end uint32, err error) {
	cur, err := r.MethodDef(rid)
	if err != nil {
		return 0, 0, err
	}
	start = cur.ParamList
	total := r.Tables.RowCount(TableParam)
	count := r.Tables.RowCount(TableMethodDef)
	end = total + 1
	if rid < count {
		next, err := r.MethodDef(rid + 1)
		if err != nil {
			return 0, 0, err
		}
		end = next.ParamList
	}
	if end > total+1 {
		end = total + 1
	}
	if start == 0 {
		start = 1
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// Param returns the 1-based row rid of the Param table.
func (r *Reader) Param(rid uint32) (ParamRow, error) {
	raw, err := r.Tables.rawRow(TableParam, rid)
	if err != nil {
		return ParamRow{}, err
	}
	v, err := readColumns(r.Tables, TableParam, raw)
	if err != nil {
		return ParamRow{}, err
	}
	return ParamRow{Flags: uint16(v[0]), Sequence: uint16(v[1]), Name: v[2]}, nil
}

// TypeRef returns the 1-based row rid of the TypeRef table.
func (r *Reader) TypeRef(rid uint32) (TypeRefRow, error) {
	raw, err := r.Tables.rawRow(TableTypeRef, rid)
	if err != nil {
		return TypeRefRow{}, err
	}
	v, err := readColumns(r.Tables, TableTypeRef, raw)
	if err != nil {
		return TypeRefRow{}, err
	}
	return TypeRefRow{ResolutionScope: v[0], Name: v[1], Namespace: v[2]}, nil
}

// MemberRef returns the 1-based row rid of the MemberRef table.
func (r *Reader) MemberRef(rid uint32) (MemberRefRow, error) {
	raw, err := r.Tables.rawRow(TableMemberRef, rid)
	if err != nil {
		return MemberRefRow{}, err
	}
	v, err := readColumns(r.Tables, TableMemberRef, raw)
	if err != nil {
		return MemberRefRow{}, err
	}
	return MemberRefRow{Class: v[0], Name: v[1], Signature: v[2]}, nil
}

// CustomAttribute returns the 1-based row rid of the CustomAttribute table.
func (r *Reader) CustomAttribute(rid uint32) (CustomAttributeRow, error) {
	raw, err := r.Tables.rawRow(TableCustomAttribute, rid)
	if err != nil {
		return CustomAttributeRow{}, err
	}
	v, err := readColumns(r.Tables, TableCustomAttribute, raw)
	if err != nil {
		return CustomAttributeRow{}, err
	}
	return CustomAttributeRow{Parent: v[0], Type: v[1], Value: v[2]}, nil
}

// Assembly returns the single row of the Assembly table. It is absent from
// modules that are not themselves an assembly manifest (netmodules).
func (r *Reader) Assembly() (AssemblyRow, error) {
	raw, err := r.Tables.rawRow(TableAssembly, 1)
	if err != nil {
		return AssemblyRow{}, err
	}
	v, err := readColumns(r.Tables, TableAssembly, raw)
	if err != nil {
		return AssemblyRow{}, err
	}
	return AssemblyRow{
		HashAlgId: v[0], MajorVersion: uint16(v[1]), MinorVersion: uint16(v[2]),
		BuildNumber: uint16(v[3]), RevisionNumber: uint16(v[4]), Flags: v[5],
		PublicKey: v[6], Name: v[7], Culture: v[8],
	}, nil
}

// AssemblyRef returns the 1-based row rid of the AssemblyRef table.
func (r *Reader) AssemblyRef(rid uint32) (AssemblyRefRow, error) {
	raw, err := r.Tables.rawRow(TableAssemblyRef, rid)
	if err != nil {
		return AssemblyRefRow{}, err
	}
	v, err := readColumns(r.Tables, TableAssemblyRef, raw)
	if err != nil {
		return AssemblyRefRow{}, err
	}
	return AssemblyRefRow{
		MajorVersion: uint16(v[0]), MinorVersion: uint16(v[1]), BuildNumber: uint16(v[2]),
		RevisionNumber: uint16(v[3]), Flags: v[4], PublicKeyOrToken: v[5],
		Name: v[6], Culture: v[7], HashValue: v[8],
	}, nil
}

// InterfaceImpl returns the 1-based row rid of the InterfaceImpl table.
func (r *Reader) InterfaceImpl(rid uint32) (InterfaceImplRow, error) {
	v, err := r.row(TableInterfaceImpl, rid)
	if err != nil {
		return InterfaceImplRow{}, err
	}
	return InterfaceImplRow{Class: v[0], Interface: v[1]}, nil
}

// Constant returns the 1-based row rid of the Constant table.
func (r *Reader) Constant(rid uint32) (ConstantRow, error) {
	v, err := r.row(TableConstant, rid)
	if err != nil {
		return ConstantRow{}, err
	}
	return ConstantRow{Type: uint8(v[0]), Parent: v[2], Value: v[3]}, nil
}

// FieldMarshal returns the 1-based row rid of the FieldMarshal table.
func (r *Reader) FieldMarshal(rid uint32) (FieldMarshalRow, error) {
	v, err := r.row(TableFieldMarshal, rid)
	if err != nil {
		return FieldMarshalRow{}, err
	}
	return FieldMarshalRow{Parent: v[0], NativeType: v[1]}, nil
}

// DeclSecurity returns the 1-based row rid of the DeclSecurity table.
func (r *Reader) DeclSecurity(rid uint32) (DeclSecurityRow, error) {
	v, err := r.row(TableDeclSecurity, rid)
	if err != nil {
		return DeclSecurityRow{}, err
	}
	return DeclSecurityRow{Action: uint16(v[0]), Parent: v[1], PermissionSet: v[2]}, nil
}

// ClassLayout returns the 1-based row rid of the ClassLayout table.
func (r *Reader) ClassLayout(rid uint32) (ClassLayoutRow, error) {
	v, err := r.row(TableClassLayout, rid)
	if err != nil {
		return ClassLayoutRow{}, err
	}
	return ClassLayoutRow{PackingSize: uint16(v[0]), ClassSize: v[1], Parent: v[2]}, nil
}

// FieldLayout returns the 1-based row rid of the FieldLayout table.
func (r *Reader) FieldLayout(rid uint32) (FieldLayoutRow, error) {
	v, err := r.row(TableFieldLayout, rid)
	if err != nil {
		return FieldLayoutRow{}, err
	}
	return FieldLayoutRow{Offset: v[0], Field: v[1]}, nil
}

// StandAloneSig returns the 1-based row rid of the StandAloneSig table.
func (r *Reader) StandAloneSig(rid uint32) (StandAloneSigRow, error) {
	v, err := r.row(TableStandAloneSig, rid)
	if err != nil {
		return StandAloneSigRow{}, err
	}
	return StandAloneSigRow{Signature: v[0]}, nil
}

// EventMap returns the 1-based row rid of the EventMap table.
func (r *Reader) EventMap(rid uint32) (EventMapRow, error) {
	v, err := r.row(TableEventMap, rid)
	if err != nil {
		return EventMapRow{}, err
	}
	return EventMapRow{Parent: v[0], EventList: v[1]}, nil
}

// Event returns the 1-based row rid of the Event table.
func (r *Reader) Event(rid uint32) (EventRow, error) {
	v, err := r.row(TableEvent, rid)
	if err != nil {
		return EventRow{}, err
	}
	return EventRow{EventFlags: uint16(v[0]), Name: v[1], EventType: v[2]}, nil
}

// PropertyMap returns the 1-based row rid of the PropertyMap table.
func (r *Reader) PropertyMap(rid uint32) (PropertyMapRow, error) {
	v, err := r.row(TablePropertyMap, rid)
	if err != nil {
		return PropertyMapRow{}, err
	}
	return PropertyMapRow{Parent: v[0], PropertyList: v[1]}, nil
}

// Property returns the 1-based row rid of the Property table.
func (r *Reader) Property(rid uint32) (PropertyRow, error) {
	v, err := r.row(TableProperty, rid)
	if err != nil {
		return PropertyRow{}, err
	}
	return PropertyRow{Flags: uint16(v[0]), Name: v[1], Type: v[2]}, nil
}

// MethodSemantics returns the 1-based row rid of the MethodSemantics table.
func (r *Reader) MethodSemantics(rid uint32) (MethodSemanticsRow, error) {
	v, err := r.row(TableMethodSemantics, rid)
	if err != nil {
		return MethodSemanticsRow{}, err
	}
	return MethodSemanticsRow{Semantics: uint16(v[0]), Method: v[1], Association: v[2]}, nil
}

// MethodImpl returns the 1-based row rid of the MethodImpl table.
func (r *Reader) MethodImpl(rid uint32) (MethodImplRow, error) {
	v, err := r.row(TableMethodImpl, rid)
	if err != nil {
		return MethodImplRow{}, err
	}
	return MethodImplRow{Class: v[0], MethodBody: v[1], MethodDeclaration: v[2]}, nil
}

// ModuleRef returns the 1-based row rid of the ModuleRef table.
func (r *Reader) ModuleRef(rid uint32) (ModuleRefRow, error) {
	v, err := r.row(TableModuleRef, rid)
	if err != nil {
		return ModuleRefRow{}, err
	}
	return ModuleRefRow{Name: v[0]}, nil
}

// TypeSpec returns the 1-based row rid of the TypeSpec table.
func (r *Reader) TypeSpec(rid uint32) (TypeSpecRow, error) {
	v, err := r.row(TableTypeSpec, rid)
	if err != nil {
		return TypeSpecRow{}, err
	}
	return TypeSpecRow{Signature: v[0]}, nil
}

// ImplMap returns the 1-based row rid of the ImplMap table.
func (r *Reader) ImplMap(rid uint32) (ImplMapRow, error) {
	v, err := r.row(TableImplMap, rid)
	if err != nil {
		return ImplMapRow{}, err
	}
	return ImplMapRow{
		MappingFlags: uint16(v[0]), MemberForwarded: v[1], ImportName: v[2], ImportScope: v[3],
	}, nil
}

// FieldRVA returns the 1-based row rid of the FieldRVA table.
func (r *Reader) FieldRVA(rid uint32) (FieldRVARow, error) {
	v, err := r.row(TableFieldRVA, rid)
	if err != nil {
		return FieldRVARow{}, err
	}
	return FieldRVARow{RVA: v[0], Field: v[1]}, nil
}

// File returns the 1-based row rid of the File table.
func (r *Reader) File(rid uint32) (FileRow, error) {
	v, err := r.row(TableFile, rid)
	if err != nil {
		return FileRow{}, err
	}
	return FileRow{Flags: v[0], Name: v[1], HashValue: v[2]}, nil
}

// ExportedType returns the 1-based row rid of the ExportedType table.
func (r *Reader) ExportedType(rid uint32) (ExportedTypeRow, error) {
	v, err := r.row(TableExportedType, rid)
	if err != nil {
		return ExportedTypeRow{}, err
	}
	return ExportedTypeRow{
		Flags: v[0], TypeDefId: v[1], TypeName: v[2], TypeNamespace: v[3], Implementation: v[4],
	}, nil
}

// ManifestResource returns the 1-based row rid of the ManifestResource table.
func (r *Reader) ManifestResource(rid uint32) (ManifestResourceRow, error) {
	v, err := r.row(TableManifestResource, rid)
	if err != nil {
		return ManifestResourceRow{}, err
	}
	return ManifestResourceRow{
		Offset: v[0], Flags: v[1], Name: v[2], Implementation: v[3],
	}, nil
}

// NestedClass returns the 1-based row rid of the NestedClass table.
func (r *Reader) NestedClass(rid uint32) (NestedClassRow, error) {
	v, err := r.row(TableNestedClass, rid)
	if err != nil {
		return NestedClassRow{}, err
	}
	return NestedClassRow{NestedClass: v[0], EnclosingClass: v[1]}, nil
}

// GenericParam returns the 1-based row rid of the GenericParam table.
func (r *Reader) GenericParam(rid uint32) (GenericParamRow, error) {
	v, err := r.row(TableGenericParam, rid)
	if err != nil {
		return GenericParamRow{}, err
	}
	return GenericParamRow{Number: uint16(v[0]), Flags: uint16(v[1]), Owner: v[2], Name: v[3]}, nil
}

// MethodSpec returns the 1-based row rid of the MethodSpec table.
func (r *Reader) MethodSpec(rid uint32) (MethodSpecRow, error) {
	v, err := r.row(TableMethodSpec, rid)
	if err != nil {
		return MethodSpecRow{}, err
	}
	return MethodSpecRow{Method: v[0], Instantiation: v[1]}, nil
}

// GenericParamConstraint returns the 1-based row rid of the
// GenericParamConstraint table.
func (r *Reader) GenericParamConstraint(rid uint32) (GenericParamConstraintRow, error) {
	v, err := r.row(TableGenericParamConstraint, rid)
	if err != nil {
		return GenericParamConstraintRow{}, err
	}
	return GenericParamConstraintRow{Owner: v[0], Constraint: v[1]}, nil
}

// row decodes the 1-based row rid of kind into its widened column values,
// the shared plumbing the getters from InterfaceImpl onward go through.
func (r *Reader) row(kind TableKind, rid uint32) ([]uint32, error) {
	raw, err := r.Tables.rawRow(kind, rid)
	if err != nil {
		return nil, err
	}
	return readColumns(r.Tables, kind, raw)
}

// ResolveTypeDefOrRef decodes a raw TypeDefOrRef coded index into a token.
func ResolveTypeDefOrRef(raw uint32) (Token, error) {
	return codedIndexDefs[CodedTypeDefOrRef].decode(raw)
}

// ResolveResolutionScope decodes a raw ResolutionScope coded index.
func ResolveResolutionScope(raw uint32) (Token, error) {
	return codedIndexDefs[CodedResolutionScope].decode(raw)
}

// ResolveHasCustomAttribute decodes a raw HasCustomAttribute coded index.
func ResolveHasCustomAttribute(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasCustomAttribute].decode(raw)
}

// ResolveMemberRefParent decodes a raw MemberRefParent coded index.
func ResolveMemberRefParent(raw uint32) (Token, error) {
	return codedIndexDefs[CodedMemberRefParent].decode(raw)
}

// ResolveImplementation decodes a raw Implementation coded index.
func ResolveImplementation(raw uint32) (Token, error) {
	return codedIndexDefs[CodedImplementation].decode(raw)
}

// ResolveHasConstant decodes a raw HasConstant coded index.
func ResolveHasConstant(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasConstant].decode(raw)
}

// ResolveHasFieldMarshal decodes a raw HasFieldMarshal coded index.
func ResolveHasFieldMarshal(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasFieldMarshal].decode(raw)
}

// ResolveHasDeclSecurity decodes a raw HasDeclSecurity coded index.
func ResolveHasDeclSecurity(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasDeclSecurity].decode(raw)
}

// ResolveHasSemantics decodes a raw HasSemantics coded index.
func ResolveHasSemantics(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasSemantics].decode(raw)
}

// ResolveMethodDefOrRef decodes a raw MethodDefOrRef coded index.
func ResolveMethodDefOrRef(raw uint32) (Token, error) {
	return codedIndexDefs[CodedMethodDefOrRef].decode(raw)
}

// ResolveMemberForwarded decodes a raw MemberForwarded coded index.
func ResolveMemberForwarded(raw uint32) (Token, error) {
	return codedIndexDefs[CodedMemberForwarded].decode(raw)
}

// ResolveCustomAttributeType decodes a raw CustomAttributeType coded index.
func ResolveCustomAttributeType(raw uint32) (Token, error) {
	return codedIndexDefs[CodedCustomAttributeType].decode(raw)
}

// ResolveTypeOrMethodDef decodes a raw TypeOrMethodDef coded index.
func ResolveTypeOrMethodDef(raw uint32) (Token, error) {
	return codedIndexDefs[CodedTypeOrMethodDef].decode(raw)
}

// ResolveHasCustomDebugInformation decodes a raw HasCustomDebugInformation
// coded index.
func ResolveHasCustomDebugInformation(raw uint32) (Token, error) {
	return codedIndexDefs[CodedHasCustomDebugInformation].decode(raw)
}
