// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

// Anomalies are reported alongside a successful parse: conditions that do
// not stop the decoder but are worth a caller's attention.
var (
	// AnoPEHeaderOverlapDOSHeader is reported when e_lfanew leaves the PE
	// header overlapping the DOS header.
	AnoPEHeaderOverlapDOSHeader = "PE header overlaps with DOS header"

	// AnoCOFFSymbolsCount is reported when the file header still carries
	// a COFF symbol table, which managed images never need.
	AnoCOFFSymbolsCount = "COFF symbol table present on a CLI image"

	// AnoNoCLIHeader is reported when the CLR data directory is empty:
	// the file parses as a well-formed PE but carries no CLI metadata.
	AnoNoCLIHeader = "no CLI header present"

	// AnoMetadataVersionPadding is reported when the metadata root's
	// version string padding is not all zero bytes.
	AnoMetadataVersionPadding = "metadata version string padding is not zero-filled"

	// AnoMetadataVersionLength is reported in lenient mode when the
	// metadata root declares a version-string length that is not a
	// multiple of 4.
	AnoMetadataVersionLength = "metadata version length is not a multiple of 4"

	// AnoUnexpectedMachine is reported in lenient mode when the file
	// header's machine is none a managed compiler is known to emit.
	AnoUnexpectedMachine = "unexpected machine in file header"

	// AnoNotILOnly is reported when the CLI header's runtime flags lack
	// the IL-only bit, the mark of a mixed-mode assembly.
	AnoNotILOnly = "CLI header flags lack the IL-only bit"
)

// addAnomaly appends anomaly unless it is already present, and reports it
// through the configured logger at warn level. Anomalies never fail a
// parse on their own; a caller without a logger set learns of them only
// by inspecting r.Anomalies.
func (r *Reader) addAnomaly(anomaly string) {
	for _, a := range r.Anomalies {
		if a == anomaly {
			return
		}
	}
	r.Anomalies = append(r.Anomalies, anomaly)
	r.logger.Warnf("%s", anomaly)
}
