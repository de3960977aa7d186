// Package transfer defines DICOM Transfer Syntaxes.
package transfer

import "encoding/binary"

// Syntax is a DICOM Transfer Syntax UID. It determines the element encoding
// (implicit vs explicit VR), the byte order, and the pixel data compression
// for the entire dataset. Once resolved for a dataset it never changes.
type Syntax string

// Uncompressed syntaxes.
const (
	ImplicitVRLittleEndian Syntax = "1.2.840.10008.1.2"
	ExplicitVRLittleEndian Syntax = "1.2.840.10008.1.2.1"
	DeflatedExplicitVR     Syntax = "1.2.840.10008.1.2.1.99"
	ExplicitVRBigEndian    Syntax = "1.2.840.10008.1.2.2" // Retired
)

// JPEG Lossless (ISO 10918-1 process 14) syntaxes.
const (
	JPEGLossless           Syntax = "1.2.840.10008.1.2.4.57"
	JPEGLosslessFirstOrder Syntax = "1.2.840.10008.1.2.4.70" // SV1, the common one
)

// Other encapsulated syntaxes the parser recognizes but the pixel pipeline
// does not decode.
const (
	JPEGBaseline     Syntax = "1.2.840.10008.1.2.4.50"
	JPEGExtended     Syntax = "1.2.840.10008.1.2.4.51"
	JPEGLSLossless   Syntax = "1.2.840.10008.1.2.4.80"
	JPEG2000Lossless Syntax = "1.2.840.10008.1.2.4.90"
	JPEG2000         Syntax = "1.2.840.10008.1.2.4.91"
	RLELossless      Syntax = "1.2.840.10008.1.2.5"
)

// FromUID converts a UID string to a Syntax.
func FromUID(uid string) Syntax {
	return Syntax(uid)
}

// IsKnown reports whether the UID is one this package recognizes at all.
func (s Syntax) IsKnown() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVR,
		ExplicitVRBigEndian, JPEGLossless, JPEGLosslessFirstOrder,
		JPEGBaseline, JPEGExtended, JPEGLSLossless, JPEG2000Lossless,
		JPEG2000, RLELossless:
		return true
	}
	return false
}

// IsDecodable reports whether the pixel pipeline can produce samples for
// this syntax: native encodings plus JPEG Lossless.
func (s Syntax) IsDecodable() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVR,
		ExplicitVRBigEndian, JPEGLossless, JPEGLosslessFirstOrder:
		return true
	}
	return false
}

// IsExplicitVR reports whether elements carry an explicit VR code.
func (s Syntax) IsExplicitVR() bool {
	return s != ImplicitVRLittleEndian
}

// IsLittleEndian reports the dataset byte order.
func (s Syntax) IsLittleEndian() bool {
	return s != ExplicitVRBigEndian
}

// ByteOrder returns the binary.ByteOrder for dataset values.
func (s Syntax) ByteOrder() binary.ByteOrder {
	if s.IsLittleEndian() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// IsDeflated reports whether the post-meta byte stream is raw deflate.
func (s Syntax) IsDeflated() bool {
	return s == DeflatedExplicitVR
}

// IsEncapsulated reports whether pixel data is stored as compressed
// fragments rather than native samples.
func (s Syntax) IsEncapsulated() bool {
	switch s {
	case ImplicitVRLittleEndian, ExplicitVRLittleEndian, DeflatedExplicitVR, ExplicitVRBigEndian:
		return false
	default:
		return true
	}
}

// IsJPEGLossless reports whether pixel data is a JPEG Lossless bitstream.
func (s Syntax) IsJPEGLossless() bool {
	return s == JPEGLossless || s == JPEGLosslessFirstOrder
}

// Name returns a human-readable name for the transfer syntax.
func (s Syntax) Name() string {
	switch s {
	case ImplicitVRLittleEndian:
		return "Implicit VR Little Endian"
	case ExplicitVRLittleEndian:
		return "Explicit VR Little Endian"
	case DeflatedExplicitVR:
		return "Deflated Explicit VR Little Endian"
	case ExplicitVRBigEndian:
		return "Explicit VR Big Endian (Retired)"
	case JPEGLossless:
		return "JPEG Lossless (Process 14)"
	case JPEGLosslessFirstOrder:
		return "JPEG Lossless First-Order (Process 14, SV1)"
	case JPEGBaseline:
		return "JPEG Baseline (Process 1)"
	case JPEGExtended:
		return "JPEG Extended (Process 2 & 4)"
	case JPEGLSLossless:
		return "JPEG-LS Lossless"
	case JPEG2000Lossless:
		return "JPEG 2000 Lossless"
	case JPEG2000:
		return "JPEG 2000"
	case RLELossless:
		return "RLE Lossless"
	default:
		return string(s)
	}
}
