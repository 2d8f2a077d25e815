// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// colKind enumerates the shapes a metadata table column can take. Column
// width is not fixed until the tables stream header has told us which
// heaps are 2 vs 4 bytes wide and how many rows every table has.
type colKind int

const (
	colU8 colKind = iota
	colU16
	colU32
	colStr    // index into #Strings
	colGUID   // index into #GUID
	colBlob   // index into #Blob
	colSimple // index into one other table
	colCoded  // coded index across a set of tables
)

type column struct {
	kind   colKind
	target TableKind      // for colSimple
	coded  CodedIndexKind // for colCoded
}

// tableSchema lists, for every table kind this reader can decode, the
// column sequence a row is laid out as, in field order. Tables present in
// the valid mask but absent here (the Portable PDB debug tables 0x30-0x37)
// still have their row counts read, they are just not decodable:
// requesting a row from one returns Unsupported.
var tableSchemas = map[TableKind][]column{
	TableModule: {colU16Col(), colStrCol(), colGUIDCol(), colGUIDCol(), colGUIDCol()},
	TableTypeRef: {{kind: colCoded, coded: CodedResolutionScope}, colStrCol(), colStrCol()},
	TableTypeDef: {
		colU32Col(), colStrCol(), colStrCol(),
		{kind: colCoded, coded: CodedTypeDefOrRef},
		{kind: colSimple, target: TableField},
		{kind: colSimple, target: TableMethodDef},
	},
	TableField:  {colU16Col(), colStrCol(), colBlobCol()},
	TableMethodDef: {
		colU32Col(), colU16Col(), colU16Col(), colStrCol(), colBlobCol(),
		{kind: colSimple, target: TableParam},
	},
	TableParam: {colU16Col(), colU16Col(), colStrCol()},
	TableInterfaceImpl: {
		{kind: colSimple, target: TableTypeDef},
		{kind: colCoded, coded: CodedTypeDefOrRef},
	},
	TableMemberRef: {{kind: colCoded, coded: CodedMemberRefParent}, colStrCol(), colBlobCol()},
	TableConstant: {
		colU8Col(), colU8Col(),
		{kind: colCoded, coded: CodedHasConstant},
		colBlobCol(),
	},
	TableCustomAttribute: {
		{kind: colCoded, coded: CodedHasCustomAttribute},
		{kind: colCoded, coded: CodedCustomAttributeType},
		colBlobCol(),
	},
	TableFieldMarshal: {{kind: colCoded, coded: CodedHasFieldMarshal}, colBlobCol()},
	TableDeclSecurity: {
		colU16Col(),
		{kind: colCoded, coded: CodedHasDeclSecurity},
		colBlobCol(),
	},
	TableClassLayout: {colU16Col(), colU32Col(), {kind: colSimple, target: TableTypeDef}},
	TableFieldLayout: {colU32Col(), {kind: colSimple, target: TableField}},
	TableStandAloneSig: {colBlobCol()},
	TableEventMap: {
		{kind: colSimple, target: TableTypeDef},
		{kind: colSimple, target: TableEvent},
	},
	TableEvent: {colU16Col(), colStrCol(), {kind: colCoded, coded: CodedTypeDefOrRef}},
	TablePropertyMap: {
		{kind: colSimple, target: TableTypeDef},
		{kind: colSimple, target: TableProperty},
	},
	TableProperty: {colU16Col(), colStrCol(), colBlobCol()},
	TableMethodSemantics: {
		colU16Col(),
		{kind: colSimple, target: TableMethodDef},
		{kind: colCoded, coded: CodedHasSemantics},
	},
	TableMethodImpl: {
		{kind: colSimple, target: TableTypeDef},
		{kind: colCoded, coded: CodedMethodDefOrRef},
		{kind: colCoded, coded: CodedMethodDefOrRef},
	},
	TableModuleRef: {colStrCol()},
	TableTypeSpec:  {colBlobCol()},
	TableImplMap: {
		colU16Col(),
		{kind: colCoded, coded: CodedMemberForwarded},
		colStrCol(),
		{kind: colSimple, target: TableModuleRef},
	},
	TableFieldRVA: {colU32Col(), {kind: colSimple, target: TableField}},
	TableAssembly: {
		colU32Col(), colU16Col(), colU16Col(), colU16Col(), colU16Col(), colU32Col(),
		colBlobCol(), colStrCol(), colStrCol(),
	},
	TableAssemblyRef: {
		colU16Col(), colU16Col(), colU16Col(), colU16Col(), colU32Col(),
		colBlobCol(), colStrCol(), colStrCol(), colBlobCol(),
	},
	TableFile: {colU32Col(), colStrCol(), colBlobCol()},
	TableExportedType: {
		colU32Col(), colU32Col(), colStrCol(), colStrCol(),
		{kind: colCoded, coded: CodedImplementation},
	},
	TableManifestResource: {
		colU32Col(), colU32Col(), colStrCol(),
		{kind: colCoded, coded: CodedImplementation},
	},
	TableNestedClass: {
		{kind: colSimple, target: TableTypeDef},
		{kind: colSimple, target: TableTypeDef},
	},
	TableGenericParam: {
		colU16Col(), colU16Col(),
		{kind: colCoded, coded: CodedTypeOrMethodDef},
		colStrCol(),
	},
	TableMethodSpec: {{kind: colCoded, coded: CodedMethodDefOrRef}, colBlobCol()},
	TableGenericParamConstraint: {
		{kind: colSimple, target: TableGenericParam},
		{kind: colCoded, coded: CodedTypeDefOrRef},
	},

	// The redirection, ENC and per-assembly-OS/processor tables below are
	// vanishingly rare in real in-assembly "#~" streams (the *Ptr tables
	// only appear under edit-and-continue, and AssemblyOS/Processor are
	// reserved rows ECMA-335 says compilers must not emit rows into). They
	// get a real schema anyway, fixed-width and trivial, so that a table
	// present with a nonzero row count still lays out the rest of the
	// stream correctly instead of aborting the whole parse. Portable PDB's
	// debug-only tables (0x30-0x37) get no schema: this reader enumerates
	// them but does not decode their rows.
	TableFieldPtr:    {{kind: colSimple, target: TableField}},
	TableMethodPtr:   {{kind: colSimple, target: TableMethodDef}},
	TableParamPtr:    {{kind: colSimple, target: TableParam}},
	TableEventPtr:    {{kind: colSimple, target: TableEvent}},
	TablePropertyPtr: {{kind: colSimple, target: TableProperty}},
	TableENCLog:      {colU32Col(), colU32Col()},
	TableENCMap:      {colU32Col()},
	TableAssemblyProcessor: {colU32Col()},
	TableAssemblyOS:        {colU32Col(), colU32Col(), colU32Col()},
	TableAssemblyRefProcessor: {
		colU32Col(), {kind: colSimple, target: TableAssemblyRef},
	},
	TableAssemblyRefOS: {
		colU32Col(), colU32Col(), colU32Col(), {kind: colSimple, target: TableAssemblyRef},
	},
}

func colU8Col() column   { return column{kind: colU8} }
func colU16Col() column  { return column{kind: colU16} }
func colU32Col() column  { return column{kind: colU32} }
func colStrCol() column  { return column{kind: colStr} }
func colGUIDCol() column { return column{kind: colGUID} }
func colBlobCol() column { return column{kind: colBlob} }

// TablesStream is the parsed "#~" (or "#-") stream: the header describing
// which of the 64 table ids of the valid mask are present and how many rows each has,
// plus every row's raw bytes, zero-copied from the #~ stream buffer.
type TablesStream struct {
	MajorVersion uint8
	MinorVersion uint8
	HeapSizes    uint8
	Valid        uint64
	Sorted       uint64
	RowCounts    [tableKindMax]uint32

	strIdxSize  uint8
	guidIdxSize uint8
	blobIdxSize uint8

	simpleIdxSize [tableKindMax]uint8
	codedIdxSize  map[CodedIndexKind]uint8
	rowSize       [tableKindMax]uint32
	rows          [tableKindMax][][]byte
}

// HasTable reports whether the valid mask marks kind present (even if this
// reader has no schema to decode its rows).
func (ts *TablesStream) HasTable(kind TableKind) bool {
	if kind < 0 || int(kind) >= 64 {
		return false
	}
	return ts.Valid&(1<<uint(kind)) != 0
}

// RowCount returns the number of rows kind has, or 0 if absent.
func (ts *TablesStream) RowCount(kind TableKind) uint32 {
	if kind < 0 || int(kind) >= tableKindMax {
		return 0
	}
	return ts.RowCounts[kind]
}

// simpleIndexSize resolves the byte width of an index into the given
// table: 4 bytes if the table has more than 65535 rows, 2 otherwise. This
// also applies to a table indexing itself, which is why it's keyed by
// target rather than memoized alongside tag-bit coded indices.
func (ts *TablesStream) simpleIndexSize(target TableKind) uint8 {
	if ts.RowCounts[target] > 0xFFFF {
		return 4
	}
	return 2
}

func (ts *TablesStream) codedIndexSize(kind CodedIndexKind) uint8 {
	return ts.codedIdxSize[kind]
}

func columnWidth(ts *TablesStream, col column) uint32 {
	switch col.kind {
	case colU8:
		return 1
	case colU16:
		return 2
	case colU32:
		return 4
	case colStr:
		return uint32(ts.strIdxSize)
	case colGUID:
		return uint32(ts.guidIdxSize)
	case colBlob:
		return uint32(ts.blobIdxSize)
	case colSimple:
		return uint32(ts.simpleIndexSize(col.target))
	case colCoded:
		return uint32(ts.codedIndexSize(col.coded))
	default:
		return 0
	}
}

func rowSizeFor(ts *TablesStream, kind TableKind) uint32 {
	schema, ok := tableSchemas[kind]
	if !ok {
		return 0
	}
	var size uint32
	for _, col := range schema {
		size += columnWidth(ts, col)
	}
	return size
}

// parseTablesStream decodes the "#~"/"#-" stream header and slices out
// every present table's row bytes without copying them.
func parseTablesStream(data []byte) (*TablesStream, error) {
	c := NewCursor(data)

	// Reserved, always 0.
	if _, err := c.ReadU32(); err != nil {
		return nil, err
	}
	major, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	minor, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	heapSizes, err := c.ReadU8()
	if err != nil {
		return nil, err
	}
	// Reserved, always 1.
	if _, err := c.ReadU8(); err != nil {
		return nil, err
	}
	valid, err := c.ReadU64()
	if err != nil {
		return nil, err
	}
	sorted, err := c.ReadU64()
	if err != nil {
		return nil, err
	}

	ts := &TablesStream{
		MajorVersion: major,
		MinorVersion: minor,
		HeapSizes:    heapSizes,
		Valid:        valid,
		Sorted:       sorted,
		codedIdxSize: make(map[CodedIndexKind]uint8, len(codedIndexDefs)),
	}
	if heapSizes&0x01 != 0 {
		ts.strIdxSize = 4
	} else {
		ts.strIdxSize = 2
	}
	if heapSizes&0x02 != 0 {
		ts.guidIdxSize = 4
	} else {
		ts.guidIdxSize = 2
	}
	if heapSizes&0x04 != 0 {
		ts.blobIdxSize = 4
	} else {
		ts.blobIdxSize = 2
	}

	for kind := TableKind(0); kind < tableKindMax; kind++ {
		if ts.HasTable(kind) {
			n, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			ts.RowCounts[kind] = n
		}
	}

	for kind := TableKind(0); kind < tableKindMax; kind++ {
		ts.simpleIdxSize[kind] = ts.simpleIndexSize(kind)
	}
	for kind, def := range codedIndexDefs {
		ts.codedIdxSize[kind] = def.width(ts.RowCounts)
	}

	for kind := TableKind(0); kind < tableKindMax; kind++ {
		if ts.HasTable(kind) {
			ts.rowSize[kind] = rowSizeFor(ts, kind)
		}
	}

	for kind := TableKind(0); kind < tableKindMax; kind++ {
		count := ts.RowCounts[kind]
		if count == 0 || !ts.HasTable(kind) {
			continue
		}
		rowSize := ts.rowSize[kind]
		if rowSize == 0 {
			// No schema registered, so the table's row width is unknown
			// and nothing past it in the stream can be located. Every
			// schemaed table has a lower id than any schemaless one, so
			// stopping here loses no decodable rows. Presence and row
			// counts for the remaining tables are already recorded;
			// requesting their rows yields Unsupported.
			break
		}
		rows := make([][]byte, count)
		for i := uint32(0); i < count; i++ {
			row, err := c.ReadBytes(rowSize)
			if err != nil {
				return nil, err
			}
			rows[i] = row
		}
		ts.rows[kind] = rows
	}

	return ts, nil
}

// readColumns decodes a row's raw bytes into a slice of widened uint32
// values, one per schema column, in field order.
func readColumns(ts *TablesStream, kind TableKind, raw []byte) ([]uint32, error) {
	schema := tableSchemas[kind]
	out := make([]uint32, len(schema))
	c := NewCursor(raw)
	for i, col := range schema {
		switch col.kind {
		case colU8:
			v, err := c.ReadU8()
			if err != nil {
				return nil, err
			}
			out[i] = uint32(v)
		case colU16:
			v, err := c.ReadU16()
			if err != nil {
				return nil, err
			}
			out[i] = uint32(v)
		case colU32:
			v, err := c.ReadU32()
			if err != nil {
				return nil, err
			}
			out[i] = v
		case colStr:
			v, err := c.ReadIndex(ts.strIdxSize)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case colGUID:
			v, err := c.ReadIndex(ts.guidIdxSize)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case colBlob:
			v, err := c.ReadIndex(ts.blobIdxSize)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case colSimple:
			v, err := c.ReadIndex(ts.simpleIndexSize(col.target))
			if err != nil {
				return nil, err
			}
			out[i] = v
		case colCoded:
			v, err := c.ReadIndex(ts.codedIndexSize(col.coded))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
	}
	return out, nil
}

// TableView is a borrowed random-access view over one table's rows. Get
// decodes one row into its widened column values in schema field order;
// the typed per-table getters on Reader are the named-field front of the
// same decoding.
type TableView struct {
	ts   *TablesStream
	kind TableKind
}

// Table returns a view over kind's rows. It fails with MissingTable if the
// valid mask does not mark kind present, and with Unsupported if the kind
// is present but has no registered row schema.
func (ts *TablesStream) Table(kind TableKind) (TableView, error) {
	if !ts.HasTable(kind) {
		return TableView{}, errMissingTable(kind)
	}
	if _, ok := tableSchemas[kind]; !ok {
		return TableView{}, errUnsupported(kind)
	}
	return TableView{ts: ts, kind: kind}, nil
}

// Len returns the table's row count.
func (v TableView) Len() uint32 { return v.ts.RowCount(v.kind) }

// Get decodes the 1-based row rid into its column values.
func (v TableView) Get(rid uint32) ([]uint32, error) {
	raw, err := v.ts.rawRow(v.kind, rid)
	if err != nil {
		return nil, err
	}
	return readColumns(v.ts, v.kind, raw)
}

// rawRow returns the 1-based row's undecoded bytes for kind, or an error
// if the row number is out of range or the table has no schema.
func (ts *TablesStream) rawRow(kind TableKind, rid uint32) ([]byte, error) {
	if !ts.HasTable(kind) {
		return nil, errMissingTable(kind)
	}
	if _, ok := tableSchemas[kind]; !ok {
		return nil, errUnsupported(kind)
	}
	if rid == 0 || rid > uint32(len(ts.rows[kind])) {
		return nil, errInvalidData(rid, kind.String()+" row id")
	}
	return ts.rows[kind][rid-1], nil
}
