// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import "fmt"

// AssemblyIdentity is the image's own assembly identity, decoded from row 1
// of the Assembly table and joined with the String/Blob heaps. It is absent
// from netmodules, which declare types but are not themselves an assembly
// manifest.
type AssemblyIdentity struct {
	Name      string
	Culture   string
	Version   string
	PublicKey []byte
	Flags     uint32
}

// Identity decodes the image's own assembly identity. It returns
// ErrMissingTable if the image has no Assembly table (a netmodule).
func (r *Reader) Identity() (AssemblyIdentity, error) {
	row, err := r.Assembly()
	if err != nil {
		return AssemblyIdentity{}, err
	}
	name, err := r.Strings.GetString(row.Name)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	culture, err := r.Strings.GetString(row.Culture)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	pubKey, err := r.Blobs.GetBlob(row.PublicKey)
	if err != nil {
		return AssemblyIdentity{}, err
	}
	return AssemblyIdentity{
		Name:    name,
		Culture: culture,
		Version: fmt.Sprintf("%d.%d.%d.%d",
			row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber),
		PublicKey: pubKey,
		Flags:     row.Flags,
	}, nil
}

// ReferencedAssembly is one row of the AssemblyRef table, joined with the
// String heap for its name and culture.
type ReferencedAssembly struct {
	Name    string
	Culture string
	Version string
	Flags   uint32
}

// References returns every assembly this image's AssemblyRef table
// declares a dependency on, in row order. An image with no AssemblyRef
// table (self-contained, or referencing nothing beyond the runtime's
// implicit mscorlib in very old images) returns an empty slice, not an
// error.
func (r *Reader) References() ([]ReferencedAssembly, error) {
	count := r.Tables.RowCount(TableAssemblyRef)
	out := make([]ReferencedAssembly, 0, count)
	for rid := uint32(1); rid <= count; rid++ {
		row, err := r.AssemblyRef(rid)
		if err != nil {
			return nil, err
		}
		name, err := r.Strings.GetString(row.Name)
		if err != nil {
			return nil, err
		}
		culture, err := r.Strings.GetString(row.Culture)
		if err != nil {
			return nil, err
		}
		out = append(out, ReferencedAssembly{
			Name:    name,
			Culture: culture,
			Version: fmt.Sprintf("%d.%d.%d.%d",
				row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber),
			Flags: row.Flags,
		})
	}
	return out, nil
}

// DefinedType is one TypeDef row joined with the String heap, plus its
// 1-based row id and the owned Field/MethodDef ranges derived from the gap
// to the next TypeDef row.
type DefinedType struct {
	RID       uint32
	Name      string
	Namespace string
	Flags     uint32
	Extends   Token

	FieldStart, FieldEnd   uint32
	MethodStart, MethodEnd uint32
}

// Types decodes every TypeDef row, including row 1's compiler-generated
// "<Module>" pseudo-type, joined with the String heap for names and
// namespaces and with the derived owned-member ranges from §4.7.
func (r *Reader) Types() ([]DefinedType, error) {
	count := r.Tables.RowCount(TableTypeDef)
	out := make([]DefinedType, 0, count)
	for rid := uint32(1); rid <= count; rid++ {
		row, err := r.TypeDef(rid)
		if err != nil {
			return nil, err
		}
		name, err := r.Strings.GetString(row.Name)
		if err != nil {
			return nil, err
		}
		ns, err := r.Strings.GetString(row.Namespace)
		if err != nil {
			return nil, err
		}
		extends, err := ResolveTypeDefOrRef(row.Extends)
		if err != nil {
			return nil, err
		}
		fs, fe, err := r.TypeDefFieldRange(rid)
		if err != nil {
			return nil, err
		}
		ms, me, err := r.TypeDefMethodRange(rid)
		if err != nil {
			return nil, err
		}
		out = append(out, DefinedType{
			RID: rid, Name: name, Namespace: ns, Flags: row.Flags, Extends: extends,
			FieldStart: fs, FieldEnd: fe, MethodStart: ms, MethodEnd: me,
		})
	}
	return out, nil
}
