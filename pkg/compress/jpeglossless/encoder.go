package jpeglossless

import "fmt"

// Encode produces a single-scan SOF3 bitstream from one grayscale plane.
// It exists for fixture generation and round-trip testing, not for
// archival-grade output: it always emits one fixed Huffman table covering
// every difference category, which is valid but not optimal.
func Encode(samples []uint16, width, height, precision, predictor int) ([]byte, error) {
	if width <= 0 || height <= 0 || len(samples) != width*height {
		return nil, fmt.Errorf("jpeglossless: encode: %dx%d does not match %d samples", width, height, len(samples))
	}
	if precision < 2 || precision > 16 {
		return nil, fmt.Errorf("jpeglossless: encode: precision %d out of range", precision)
	}
	if predictor < 1 || predictor > 7 {
		return nil, fmt.Errorf("jpeglossless: encode: predictor %d out of range", predictor)
	}
	maxVal := uint16(1)<<uint(precision) - 1
	for _, v := range samples {
		if v > maxVal {
			return nil, fmt.Errorf("jpeglossless: encode: sample %d exceeds %d-bit precision", v, precision)
		}
	}

	e := &encoder{}
	e.writeMarker(markerSOI)
	e.writeSOF(width, height, precision)
	e.writeDHT()
	e.writeSOS(predictor)
	e.writeScan(samples, width, height, precision, predictor)
	e.writeMarker(markerEOI)
	return e.out, nil
}

// fixedBits/fixedValues form a canonical table with one code per difference
// category 0..16: category k gets a code of length k+1, with 15 and 16
// sharing length 16. The code space is fully saturated, so the trailing
// 1-bit padding can decode as a spurious symbol; the decoder stops after
// the expected sample count, so that is harmless here.
var (
	fixedBits   = [16]int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2}
	fixedValues = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
)

// fixedCodes holds the canonical (code, length) pair per category, derived
// from fixedBits the same way the decoder derives its bounds.
var fixedCodes = buildFixedCodes()

type huffCode struct {
	code   uint32
	length int
}

func buildFixedCodes() [17]huffCode {
	var out [17]huffCode
	code := uint32(0)
	idx := 0
	for l := 1; l <= 16; l++ {
		for i := 0; i < fixedBits[l-1]; i++ {
			out[fixedValues[idx]] = huffCode{code: code, length: l}
			code++
			idx++
		}
		code <<= 1
	}
	return out
}

type encoder struct {
	out []byte

	acc   uint32
	nBits int
}

func (e *encoder) writeMarker(m uint16) {
	e.out = append(e.out, byte(m>>8), byte(m))
}

func (e *encoder) writeSegment(m uint16, payload []byte) {
	e.writeMarker(m)
	l := len(payload) + 2
	e.out = append(e.out, byte(l>>8), byte(l))
	e.out = append(e.out, payload...)
}

func (e *encoder) writeSOF(width, height, precision int) {
	e.writeSegment(markerSOF3, []byte{
		byte(precision),
		byte(height >> 8), byte(height),
		byte(width >> 8), byte(width),
		1,          // one component
		1, 0x11, 0, // id 1, 1x1 sampling, no quant table
	})
}

func (e *encoder) writeDHT() {
	payload := make([]byte, 0, 1+16+len(fixedValues))
	payload = append(payload, 0x00) // DC class, table 0
	for _, n := range fixedBits {
		payload = append(payload, byte(n))
	}
	payload = append(payload, fixedValues...)
	e.writeSegment(markerDHT, payload)
}

func (e *encoder) writeSOS(predictor int) {
	e.writeSegment(markerSOS, []byte{
		1,       // one scan component
		1, 0x00, // component 1, DC table 0
		byte(predictor), // Ss = predictor selection
		0,               // Se
		0,               // Ah/Al: no point transform
	})
}

func (e *encoder) writeScan(samples []uint16, width, height, precision, predictor int) {
	defaultVal := int32(1) << uint(precision-1)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			idx := row*width + col

			var predicted int32
			switch {
			case row == 0 && col == 0:
				predicted = defaultVal
			case row == 0:
				predicted = int32(samples[idx-1])
			case col == 0:
				predicted = int32(samples[idx-width])
			default:
				ra := int32(samples[idx-1])
				rb := int32(samples[idx-width])
				rc := int32(samples[idx-width-1])
				predicted = predict(predictor, ra, rb, rc)
			}

			// Differences are taken modulo 2^16 and folded into the
			// signed range the categories cover.
			diff := (int32(samples[idx]) - predicted) & 0xFFFF
			if diff > 32767 {
				diff -= 65536
			}
			e.writeDiff(diff)
		}
	}
	e.flushBits()
}

// writeDiff emits the category code followed by the magnitude bits
// (T.81 figure H.2). Category 16 carries no magnitude bits.
func (e *encoder) writeDiff(diff int32) {
	ssss := category(diff)
	hc := fixedCodes[ssss]
	e.writeBits(hc.code, hc.length)

	if ssss == 0 || ssss == 16 {
		return
	}
	v := diff
	if diff < 0 {
		v = diff + (1 << uint(ssss)) - 1
	}
	e.writeBits(uint32(v)&((1<<uint(ssss))-1), ssss)
}

func category(diff int32) int {
	if diff == 32768 || diff == -32768 {
		return 16
	}
	if diff < 0 {
		diff = -diff
	}
	ssss := 0
	for diff != 0 {
		diff >>= 1
		ssss++
	}
	return ssss
}

func (e *encoder) writeBits(v uint32, n int) {
	if n == 0 {
		return
	}
	e.acc = e.acc<<uint(n) | (v & ((1 << uint(n)) - 1))
	e.nBits += n
	for e.nBits >= 8 {
		e.nBits -= 8
		b := byte(e.acc >> uint(e.nBits))
		e.out = append(e.out, b)
		if b == 0xFF {
			e.out = append(e.out, 0x00)
		}
	}
}

// flushBits pads the final partial byte with 1-bits, as the standard
// requires, and byte-stuffs the result if needed.
func (e *encoder) flushBits() {
	if e.nBits == 0 {
		return
	}
	pad := 8 - e.nBits
	e.writeBits((1<<uint(pad))-1, pad)
}
