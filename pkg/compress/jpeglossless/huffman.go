package jpeglossless

// huffTable is a canonical JPEG Huffman table with a fast 8-bit prefix
// lookup for short codes and min/max code bounds for the rest.
type huffTable struct {
	bits   [16]int // count of codes per length 1..16
	values []byte

	minCode [17]int32
	maxCode [17]int32
	valPtr  [17]int32

	// lookup[i] packs (codeLength << 8) | value for 8-bit prefixes that
	// resolve within 8 bits; -1 otherwise.
	lookup [256]int16
}

func buildHuffTable(bits [16]int, values []byte) (*huffTable, error) {
	total := 0
	for _, n := range bits {
		total += n
	}
	if total == 0 || total > len(values) || total > 256 {
		return nil, ErrInvalidDHT
	}

	t := &huffTable{bits: bits, values: values[:total]}

	code := int32(0)
	p := int32(0)
	for l := 1; l <= 16; l++ {
		n := int32(bits[l-1])
		if n == 0 {
			t.maxCode[l] = -1
			code <<= 1
			continue
		}
		t.valPtr[l] = p
		t.minCode[l] = code
		code += n
		p += n
		t.maxCode[l] = code - 1
		code <<= 1
	}

	for i := range t.lookup {
		t.lookup[i] = -1
	}
	p = 0
	prefix := 0
	for l := 1; l <= 8; l++ {
		for i := 0; i < bits[l-1]; i++ {
			span := 1 << (8 - l)
			base := prefix << (8 - l)
			for j := 0; j < span; j++ {
				t.lookup[base+j] = int16(l<<8) | int16(t.values[p])
			}
			prefix++
			p++
		}
		prefix <<= 1
	}

	return t, nil
}

// bitReader feeds entropy-coded scan bytes bit by bit, unstuffing the
// 0xFF 0x00 escape. A bare marker inside the scan is an error except for
// restart markers, which callers consume via readRestart.
type bitReader struct {
	data []byte
	pos  int

	acc   uint32
	nBits int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// fill loads one more byte into the accumulator.
func (r *bitReader) fill() error {
	if r.pos >= len(r.data) {
		return ErrTruncated
	}
	b := r.data[r.pos]
	r.pos++
	if b == 0xFF {
		if r.pos >= len(r.data) {
			return ErrTruncated
		}
		next := r.data[r.pos]
		if next == 0x00 {
			r.pos++ // stuffed byte
		} else {
			r.pos-- // leave the marker for readRestart / caller
			return ErrUnexpectedMarker
		}
	}
	r.acc = r.acc<<8 | uint32(b)
	r.nBits += 8
	return nil
}

func (r *bitReader) readBits(n int) (uint32, error) {
	if n == 0 {
		return 0, nil
	}
	for r.nBits < n {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}
	r.nBits -= n
	return (r.acc >> uint(r.nBits)) & ((1 << uint(n)) - 1), nil
}

// decode reads the next Huffman symbol.
func (r *bitReader) decode(t *huffTable) (byte, error) {
	// Fast path: resolve short codes from an 8-bit peek.
	for r.nBits < 8 {
		if err := r.fill(); err != nil {
			if err == ErrUnexpectedMarker || err == ErrTruncated {
				break // fall through to the bitwise path for the tail
			}
			return 0, err
		}
	}
	if r.nBits >= 8 {
		peek := (r.acc >> uint(r.nBits-8)) & 0xFF
		if entry := t.lookup[peek]; entry >= 0 {
			r.nBits -= int(entry >> 8)
			return byte(entry), nil
		}
	}

	code := int32(0)
	length := 0
	// Replay any bits already buffered before pulling fresh ones.
	for length < 16 {
		bit, err := r.readBits(1)
		if err != nil {
			return 0, err
		}
		code = code<<1 | int32(bit)
		length++
		if t.maxCode[length] >= 0 && code <= t.maxCode[length] && code >= t.minCode[length] {
			idx := t.valPtr[length] + code - t.minCode[length]
			if idx < 0 || int(idx) >= len(t.values) {
				return 0, ErrHuffmanDecode
			}
			return t.values[idx], nil
		}
	}
	return 0, ErrHuffmanDecode
}

// receiveExtend reads ssss magnitude bits and sign-extends them into a
// difference value (T.81 RECEIVE + EXTEND). Category 16 encodes the fixed
// difference 32768 with no magnitude bits.
func (r *bitReader) receiveExtend(ssss int) (int32, error) {
	if ssss == 0 {
		return 0, nil
	}
	if ssss == 16 {
		return 32768, nil
	}
	v, err := r.readBits(ssss)
	if err != nil {
		return 0, err
	}
	val := int32(v)
	if val < 1<<uint(ssss-1) {
		val += -(1 << uint(ssss)) + 1
	}
	return val, nil
}

// align discards buffered bits down to the next byte boundary.
func (r *bitReader) align() {
	r.nBits = 0
	r.acc = 0
}

// readRestart consumes an RSTn marker at the current byte position.
func (r *bitReader) readRestart() bool {
	r.align()
	if r.pos+2 > len(r.data) {
		return false
	}
	m := uint16(r.data[r.pos])<<8 | uint16(r.data[r.pos+1])
	if !isRST(m) {
		return false
	}
	r.pos += 2
	return true
}
