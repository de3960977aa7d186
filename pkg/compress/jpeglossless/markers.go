// Package jpeglossless decodes JPEG Lossless (ITU-T T.81 process 14, SOF3)
// bitstreams, the predictive mode used by the DICOM transfer syntaxes
// 1.2.840.10008.1.2.4.57 and .70.
package jpeglossless

// JPEG marker constants. Only the subset a lossless stream can contain.
const (
	markerSOI = 0xFFD8
	markerEOI = 0xFFD9

	markerSOF0 = 0xFFC0
	markerSOF3 = 0xFFC3 // lossless sequential, the one we decode

	markerDHT = 0xFFC4
	markerDRI = 0xFFDD
	markerSOS = 0xFFDA
	markerDNL = 0xFFDC
	markerCOM = 0xFFFE

	markerAPP0  = 0xFFE0
	markerAPP15 = 0xFFEF

	markerRST0 = 0xFFD0
	markerRST7 = 0xFFD7
)

func isRST(marker uint16) bool {
	return marker >= markerRST0 && marker <= markerRST7
}

// hasLength reports whether the marker is followed by a 2-byte length field.
func hasLength(marker uint16) bool {
	switch {
	case marker == markerSOI, marker == markerEOI:
		return false
	case isRST(marker):
		return false
	default:
		return true
	}
}
