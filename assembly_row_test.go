// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import "bytes"

// assemblyRowBytes encodes one Assembly row per tableSchemas[TableAssembly]:
// HashAlgId(u32), Major/Minor/Build/Revision(u16 x4), Flags(u32),
// PublicKey(blob), Name(str), Culture(str).
func assemblyRowBytes(name, culture uint16) []byte {
	var b bytes.Buffer
	u32(&b, AssemblyHashAlgSHA1)
	u16(&b, 1)
	u16(&b, 2)
	u16(&b, 3)
	u16(&b, 4)
	u32(&b, 0)
	u16(&b, 0) // public key: empty blob
	u16(&b, name)
	u16(&b, culture)
	return b.Bytes()
}

// assemblyRefRowBytes encodes one AssemblyRef row per
// tableSchemas[TableAssemblyRef]: Major/Minor/Build/Revision(u16 x4),
// Flags(u32), PublicKeyOrToken(blob), Name(str), Culture(str),
// HashValue(blob) — HashValue is its own trailing column, not aliased to
// PublicKeyOrToken.
func assemblyRefRowBytes(name, culture uint16) []byte {
	var b bytes.Buffer
	u16(&b, 4)
	u16(&b, 0)
	u16(&b, 0)
	u16(&b, 0)
	u32(&b, 0)
	u16(&b, 0) // public key or token: empty blob
	u16(&b, name)
	u16(&b, culture)
	u16(&b, 0) // hash value: empty blob
	return b.Bytes()
}

// moduleRowBytes encodes one Module row: Generation(u16), Name(str),
// Mvid/EncId/EncBaseId(guid x3).
func moduleRowBytes(name uint16) []byte {
	var b bytes.Buffer
	u16(&b, 0)
	u16(&b, name)
	u16(&b, 1) // mvid
	u16(&b, 0)
	u16(&b, 0)
	return b.Bytes()
}
