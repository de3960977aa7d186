package jpeglossless

// predict computes the predicted sample from its causal neighbors for a
// predictor selection value (T.81 table H.1).
//
//	Ra = left, Rb = above, Rc = above-left
//
// Selection value 1 is the one DICOM's first-order transfer syntax
// (1.2.840.10008.1.2.4.70) mandates. Values 2-7 are implemented for
// conformance but have only been exercised against this package's own
// encoder; verify against a reference decoder before relying on them.
// Value 0 (no prediction) is only legal in differential frames; we accept
// it and predict zero.
func predict(selection int, ra, rb, rc int32) int32 {
	switch selection {
	case 0:
		return 0
	case 1:
		return ra
	case 2:
		return rb
	case 3:
		return rc
	case 4:
		return ra + rb - rc
	case 5:
		return ra + ((rb - rc) >> 1)
	case 6:
		return rb + ((ra - rc) >> 1)
	case 7:
		return (ra + rb) >> 1
	default:
		return ra
	}
}
