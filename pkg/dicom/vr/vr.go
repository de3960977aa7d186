// Package vr defines DICOM Value Representations.
package vr

// VR is a two-letter DICOM Value Representation code. It declares the value
// type of an element and, under explicit VR encoding, the width of the
// length field that follows it.
type VR string

// Standard DICOM Value Representations.
const (
	AE VR = "AE" // Application Entity
	AS VR = "AS" // Age String
	AT VR = "AT" // Attribute Tag
	CS VR = "CS" // Code String
	DA VR = "DA" // Date
	DS VR = "DS" // Decimal String
	DT VR = "DT" // DateTime
	FL VR = "FL" // Floating Point Single
	FD VR = "FD" // Floating Point Double
	IS VR = "IS" // Integer String
	LO VR = "LO" // Long String
	LT VR = "LT" // Long Text
	OB VR = "OB" // Other Byte
	OD VR = "OD" // Other Double
	OF VR = "OF" // Other Float
	OL VR = "OL" // Other Long
	OW VR = "OW" // Other Word
	PN VR = "PN" // Person Name
	SH VR = "SH" // Short String
	SL VR = "SL" // Signed Long
	SQ VR = "SQ" // Sequence of Items
	SS VR = "SS" // Signed Short
	ST VR = "ST" // Short Text
	TM VR = "TM" // Time
	UC VR = "UC" // Unlimited Characters
	UI VR = "UI" // Unique Identifier
	UL VR = "UL" // Unsigned Long
	UN VR = "UN" // Unknown
	UR VR = "UR" // URI
	US VR = "US" // Unsigned Short
	UT VR = "UT" // Unlimited Text
)

// Parse validates a two-byte code read off the wire. Unrecognized codes map
// to UN so a single exotic element does not abort the parse.
func Parse(b0, b1 byte) VR {
	v := VR([]byte{b0, b1})
	switch v {
	case AE, AS, AT, CS, DA, DS, DT, FL, FD, IS, LO, LT, OB, OD, OF, OL,
		OW, PN, SH, SL, SQ, SS, ST, TM, UC, UI, UL, UN, UR, US, UT:
		return v
	}
	return UN
}

// UsesLongLength reports whether, under explicit VR, the VR is followed by
// two reserved bytes and a 4-byte length instead of a 2-byte length.
func (v VR) UsesLongLength() bool {
	switch v {
	case OB, OD, OF, OL, OW, SQ, UC, UN, UR, UT:
		return true
	default:
		return false
	}
}

// IsString reports whether the value is character data.
func (v VR) IsString() bool {
	switch v {
	case AE, AS, CS, DA, DS, DT, IS, LO, LT, PN, SH, ST, TM, UC, UI, UR, UT:
		return true
	default:
		return false
	}
}

// IsSequence reports whether this is the sequence VR.
func (v VR) IsSequence() bool {
	return v == SQ
}

// FixedSize returns the per-value size in bytes for fixed-size binary VRs,
// or 0 for variable-length ones.
func (v VR) FixedSize() int {
	switch v {
	case SS, US:
		return 2
	case AT, FL, SL, UL:
		return 4
	case FD:
		return 8
	default:
		return 0
	}
}
