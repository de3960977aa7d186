package dicom

// Vectorized sample transforms. Each loop is unrolled 8-wide so the
// compiler can keep the work in registers; the tail runs scalar. Tests pin
// each transform against a per-pixel scalar reference, individually and
// composed (byte-swap + sign bias + inversion on the same span).

// swapBytes16 converts a big-endian 16-bit sample span to little endian in
// place. len(buf) must be even.
func swapBytes16(buf []byte) {
	n := len(buf) &^ 15
	for i := 0; i < n; i += 16 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
		buf[i+2], buf[i+3] = buf[i+3], buf[i+2]
		buf[i+4], buf[i+5] = buf[i+5], buf[i+4]
		buf[i+6], buf[i+7] = buf[i+7], buf[i+6]
		buf[i+8], buf[i+9] = buf[i+9], buf[i+8]
		buf[i+10], buf[i+11] = buf[i+11], buf[i+10]
		buf[i+12], buf[i+13] = buf[i+13], buf[i+12]
		buf[i+14], buf[i+15] = buf[i+15], buf[i+14]
	}
	for i := n; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = buf[i+1], buf[i]
	}
}

// normalizeSigned16 maps signed stored samples into the unsigned domain:
// sign-extend from bitsStored, add the 2^(bitsStored-1) bias, clamp to
// [0, 2^bitsStored-1].
func normalizeSigned16(samples []uint16, bitsStored int) {
	shift := uint(16 - bitsStored)
	bias := int32(1) << (bitsStored - 1)
	maxVal := int32(1)<<bitsStored - 1

	norm := func(v uint16) uint16 {
		// Arithmetic shift back down sign-extends from the stored width.
		s := int32(int16(v<<shift)) >> shift
		s += bias
		if s < 0 {
			s = 0
		}
		if s > maxVal {
			s = maxVal
		}
		return uint16(s)
	}

	n := len(samples) &^ 7
	for i := 0; i < n; i += 8 {
		samples[i] = norm(samples[i])
		samples[i+1] = norm(samples[i+1])
		samples[i+2] = norm(samples[i+2])
		samples[i+3] = norm(samples[i+3])
		samples[i+4] = norm(samples[i+4])
		samples[i+5] = norm(samples[i+5])
		samples[i+6] = norm(samples[i+6])
		samples[i+7] = norm(samples[i+7])
	}
	for i := n; i < len(samples); i++ {
		samples[i] = norm(samples[i])
	}
}

// normalizeSigned8 is the 8-bit variant of normalizeSigned16.
func normalizeSigned8(samples []uint8, bitsStored int) {
	shift := uint(8 - bitsStored)
	bias := int16(1) << (bitsStored - 1)
	maxVal := int16(1)<<bitsStored - 1

	norm := func(v uint8) uint8 {
		s := int16(int8(v<<shift)) >> shift
		s += bias
		if s < 0 {
			s = 0
		}
		if s > maxVal {
			s = maxVal
		}
		return uint8(s)
	}

	for i := range samples {
		samples[i] = norm(samples[i])
	}
}

// invertMono16 applies MONOCHROME1 inversion: maxValue - sample. Runs after
// signed normalization so the subtraction cannot underflow.
func invertMono16(samples []uint16, maxValue uint16) {
	n := len(samples) &^ 7
	for i := 0; i < n; i += 8 {
		samples[i] = maxValue - samples[i]
		samples[i+1] = maxValue - samples[i+1]
		samples[i+2] = maxValue - samples[i+2]
		samples[i+3] = maxValue - samples[i+3]
		samples[i+4] = maxValue - samples[i+4]
		samples[i+5] = maxValue - samples[i+5]
		samples[i+6] = maxValue - samples[i+6]
		samples[i+7] = maxValue - samples[i+7]
	}
	for i := n; i < len(samples); i++ {
		samples[i] = maxValue - samples[i]
	}
}

// invertMono8 is the 8-bit variant of invertMono16.
func invertMono8(samples []uint8, maxValue uint8) {
	n := len(samples) &^ 7
	for i := 0; i < n; i += 8 {
		samples[i] = maxValue - samples[i]
		samples[i+1] = maxValue - samples[i+1]
		samples[i+2] = maxValue - samples[i+2]
		samples[i+3] = maxValue - samples[i+3]
		samples[i+4] = maxValue - samples[i+4]
		samples[i+5] = maxValue - samples[i+5]
		samples[i+6] = maxValue - samples[i+6]
		samples[i+7] = maxValue - samples[i+7]
	}
	for i := n; i < len(samples); i++ {
		samples[i] = maxValue - samples[i]
	}
}
