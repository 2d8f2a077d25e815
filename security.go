// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package clrmeta

import (
	"crypto/x509"
	"encoding/hex"
	"reflect"

	"go.mozilla.org/pkcs7"
)

// WIN_CERTIFICATE revision values (ECMA-335's Security data directory
// borrows the plain PE authenticode layout; the CLI format itself says
// nothing further about it).
const (
	WinCertRevision1_0 = 0x0100
	WinCertRevision2_0 = 0x0200
)

// WIN_CERTIFICATE certificate-type values. Only PKCS#7 SignedData is
// parsed; the others are recognized but left as raw bytes.
const (
	WinCertTypeX509           = 0x0001
	WinCertTypePKCSSignedData = 0x0002
	WinCertTypeReserved1      = 0x0003
	WinCertTypeTSStackSigned  = 0x0004
)

// WinCertificate is the fixed-size header preceding every entry in the
// Security data directory.
type WinCertificate struct {
	Length          uint32 `json:"length"`
	Revision        uint16 `json:"revision"`
	CertificateType uint16 `json:"certificate_type"`
}

// CertInfo is a trimmed view of the leaf signer certificate's identity,
// kept separately from the full x509.Certificate so a caller inspecting
// Reader.Certificate() doesn't need to walk pkcs7.Certificates itself for
// the common case.
type CertInfo struct {
	Issuer             string                  `json:"issuer"`
	Subject            string                  `json:"subject"`
	SerialNumber       string                  `json:"serial_number"`
	SignatureAlgorithm x509.SignatureAlgorithm `json:"signature_algorithm"`
	PublicKeyAlgorithm x509.PublicKeyAlgorithm `json:"public_key_algorithm"`
}

// Certificate is the decoded Security data directory: the WIN_CERTIFICATE
// header, the parsed PKCS#7 SignedData payload (when CertificateType is
// WinCertTypePKCSSignedData) and a trimmed view of the leaf signer.
type Certificate struct {
	Header WinCertificate `json:"header"`
	Info   CertInfo       `json:"info"`
	PKCS7  *pkcs7.PKCS7   `json:"-"`
	Raw    []byte         `json:"-"`
}

// Certificate parses the first WIN_CERTIFICATE entry of the Security data
// directory (data directory index 4). If that entry is PKCS#7 SignedData,
// its payload is decoded via go.mozilla.org/pkcs7; any other type is
// returned with its raw payload only. Later entries are not examined. It returns
// (nil, nil) when the directory is absent, empty, or
// Options.DisableCertValidation was set. Unlike the other data
// directories, the Security directory's VirtualAddress is a raw file
// offset, not an RVA: the certificate table lives in the trailing,
// unmapped part of the file, so no section lookup applies.
func (r *Reader) Certificate() (*Certificate, error) {
	if r.opts.DisableCertValidation {
		return nil, nil
	}
	dir := r.NtHeader.OptionalHeader.DataDirectory[ImageDirectoryEntrySecurity]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}

	off := dir.VirtualAddress
	c := NewCursor(r.buf)
	if err := c.Seek(off); err != nil {
		return nil, err
	}

	header := WinCertificate{}
	var err error
	if header.Length, err = c.ReadU32(); err != nil {
		return nil, err
	}
	if header.Revision, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if header.CertificateType, err = c.ReadU16(); err != nil {
		return nil, err
	}
	if header.Length < 8 {
		return nil, errInvalidData(off, "WIN_CERTIFICATE length")
	}
	end := off + header.Length
	if end < off || end > c.Len() {
		return nil, errUnexpectedEOF(off, "WIN_CERTIFICATE payload")
	}
	payload := r.buf[off+8 : end]

	cert := &Certificate{Header: header, Raw: payload}
	if header.CertificateType != WinCertTypePKCSSignedData {
		return cert, nil
	}

	p7, err := pkcs7.Parse(payload)
	if err != nil {
		return cert, err
	}
	cert.PKCS7 = p7
	cert.Info = leafCertInfo(p7)
	return cert, nil
}

// leafCertInfo extracts the signer certificate whose serial number matches
// the first signer info's IssuerAndSerialNumber, mirroring how an
// authenticode verifier picks the leaf out of the embedded chain.
func leafCertInfo(p7 *pkcs7.PKCS7) CertInfo {
	if len(p7.Signers) == 0 {
		return CertInfo{}
	}
	serial := p7.Signers[0].IssuerAndSerialNumber.SerialNumber
	for _, cert := range p7.Certificates {
		if !reflect.DeepEqual(cert.SerialNumber, serial) {
			continue
		}
		info := CertInfo{
			SerialNumber:       hex.EncodeToString(cert.SerialNumber.Bytes()),
			SignatureAlgorithm: cert.SignatureAlgorithm,
			PublicKeyAlgorithm: cert.PublicKeyAlgorithm,
			Subject:            cert.Subject.CommonName,
			Issuer:             cert.Issuer.CommonName,
		}
		return info
	}
	return CertInfo{}
}
