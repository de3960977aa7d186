package jpeglossless

import "fmt"

// Image is the result of decoding one lossless scan. Samples are stored as
// per-component planes in row-major order, already shifted up by the point
// transform. Decoding is deterministic: the same bytes always produce the
// same planes.
type Image struct {
	Width      int
	Height     int
	Components int
	Precision  int
	Predictor  int

	Planes [][]uint16
}

type component struct {
	id      byte
	dcTable int
}

type decoder struct {
	width      int
	height     int
	precision  int
	predictor  int
	pointShift int

	components []component
	tables     [4]*huffTable

	restartInterval int
}

// Decode decodes a complete JPEG Lossless (SOF3) bitstream. Truncated or
// adversarial input returns an error; it never panics.
func Decode(data []byte) (img *Image, err error) {
	// Huffman tables with inconsistent counts can drive index math off the
	// rails on hostile input; a panic must not cross the package boundary.
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: %v", ErrTruncated, r)
		}
	}()

	if len(data) < 4 {
		return nil, ErrInvalidSOI
	}
	if markerAt(data, 0) != markerSOI {
		return nil, ErrInvalidSOI
	}

	d := &decoder{}
	pos := 2
	sawSOF := false

	for pos+4 <= len(data) {
		marker := markerAt(data, pos)
		pos += 2

		if marker>>8 != 0xFF {
			return nil, fmt.Errorf("%w: bad marker %#04x", ErrInvalidFrame, marker)
		}

		if !hasLength(marker) {
			if marker == markerEOI {
				break
			}
			continue
		}

		segLen := int(data[pos])<<8 | int(data[pos+1])
		if segLen < 2 || pos+segLen > len(data) {
			return nil, ErrTruncated
		}
		seg := data[pos+2 : pos+segLen]
		pos += segLen

		switch marker {
		case markerSOF3:
			if err := d.parseSOF(seg); err != nil {
				return nil, err
			}
			sawSOF = true
		case markerSOF0:
			return nil, ErrNotLossless
		case markerDHT:
			if err := d.parseDHT(seg); err != nil {
				return nil, err
			}
		case markerDRI:
			if len(seg) < 2 {
				return nil, ErrInvalidFrame
			}
			d.restartInterval = int(seg[0])<<8 | int(seg[1])
		case markerSOS:
			if !sawSOF {
				return nil, ErrMissingSOF
			}
			if err := d.parseSOS(seg); err != nil {
				return nil, err
			}
			planes, err := d.decodeScan(data[pos:])
			if err != nil {
				return nil, err
			}
			return &Image{
				Width:      d.width,
				Height:     d.height,
				Components: len(d.components),
				Precision:  d.precision,
				Predictor:  d.predictor,
				Planes:     planes,
			}, nil
		}
	}

	if !sawSOF {
		return nil, ErrMissingSOF
	}
	return nil, ErrMissingSOS
}

func markerAt(data []byte, pos int) uint16 {
	return uint16(data[pos])<<8 | uint16(data[pos+1])
}

func (d *decoder) parseSOF(seg []byte) error {
	if len(seg) < 6 {
		return ErrInvalidFrame
	}
	d.precision = int(seg[0])
	if d.precision < 2 || d.precision > 16 {
		return fmt.Errorf("%w: precision %d", ErrInvalidFrame, d.precision)
	}
	d.height = int(seg[1])<<8 | int(seg[2])
	d.width = int(seg[3])<<8 | int(seg[4])
	n := int(seg[5])
	if d.width <= 0 || d.height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, d.width, d.height)
	}
	if n != 1 && n != 3 {
		return fmt.Errorf("%w: %d components", ErrInvalidFrame, n)
	}
	if len(seg) < 6+3*n {
		return ErrInvalidFrame
	}
	d.components = make([]component, n)
	for i := 0; i < n; i++ {
		d.components[i] = component{id: seg[6+3*i]}
		// Sampling factors (seg[7+3*i]) must be 1x1 for lossless; ignored.
	}
	return nil
}

func (d *decoder) parseDHT(seg []byte) error {
	off := 0
	for off < len(seg) {
		if off+17 > len(seg) {
			return ErrInvalidDHT
		}
		tcTh := seg[off]
		off++
		tc := tcTh >> 4
		th := tcTh & 0x0F
		if th >= 4 {
			return ErrInvalidDHT
		}

		var bits [16]int
		total := 0
		for i := 0; i < 16; i++ {
			bits[i] = int(seg[off+i])
			total += bits[i]
		}
		off += 16

		if off+total > len(seg) {
			return ErrInvalidDHT
		}
		values := make([]byte, total)
		copy(values, seg[off:off+total])
		off += total

		table, err := buildHuffTable(bits, values)
		if err != nil {
			return err
		}
		// Lossless scans use DC-class tables only.
		if tc == 0 {
			d.tables[th] = table
		}
	}
	return nil
}

func (d *decoder) parseSOS(seg []byte) error {
	if len(seg) < 1 {
		return ErrInvalidScan
	}
	n := int(seg[0])
	if n != len(d.components) {
		return fmt.Errorf("%w: scan has %d components, frame has %d", ErrInvalidScan, n, len(d.components))
	}
	if len(seg) < 1+2*n+3 {
		return ErrInvalidScan
	}
	for i := 0; i < n; i++ {
		id := seg[1+2*i]
		tbl := int(seg[2+2*i] >> 4)
		found := false
		for j := range d.components {
			if d.components[j].id == id {
				d.components[j].dcTable = tbl
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: unknown component id %d", ErrInvalidScan, id)
		}
	}

	// In a lossless scan, Ss carries the predictor selection and Ah/Al's
	// low nibble the point transform.
	d.predictor = int(seg[1+2*n])
	if d.predictor < 0 || d.predictor > 7 {
		return fmt.Errorf("%w: predictor selection %d", ErrInvalidScan, d.predictor)
	}
	d.pointShift = int(seg[3+2*n] & 0x0F)
	if d.pointShift >= d.precision {
		return fmt.Errorf("%w: point transform %d for %d-bit samples", ErrInvalidScan, d.pointShift, d.precision)
	}
	return nil
}

// decodeScan decodes the entropy-coded segment sample by sample. Components
// are interleaved one sample per MCU.
func (d *decoder) decodeScan(data []byte) ([][]uint16, error) {
	nComp := len(d.components)

	// Every sample costs at least one scan bit, so frame dimensions that
	// outsize the entropy-coded segment are rejected before the planes are
	// allocated. Keeps a tiny hostile header from forcing a giant alloc.
	if int64(d.width)*int64(d.height)*int64(nComp) > int64(len(data))*8 {
		return nil, ErrTruncated
	}

	planes := make([][]uint16, nComp)
	for i := range planes {
		planes[i] = make([]uint16, d.width*d.height)
	}

	tables := make([]*huffTable, nComp)
	for i, c := range d.components {
		t := d.tables[c.dcTable]
		if t == nil {
			return nil, fmt.Errorf("%w: table %d undefined", ErrInvalidDHT, c.dcTable)
		}
		tables[i] = t
	}

	br := newBitReader(data)
	defaultVal := int32(1) << uint(d.precision-1-d.pointShift)
	maxVal := int32(1)<<uint(d.precision) - 1

	mcu := 0
	restartPending := false

	for row := 0; row < d.height; row++ {
		for col := 0; col < d.width; col++ {
			if d.restartInterval > 0 && mcu > 0 && mcu%d.restartInterval == 0 {
				if !br.readRestart() {
					return nil, ErrUnexpectedMarker
				}
				restartPending = true
			}
			for comp := 0; comp < nComp; comp++ {
				ssss, err := br.decode(tables[comp])
				if err != nil {
					return nil, err
				}
				if ssss > 16 {
					return nil, ErrHuffmanDecode
				}
				diff, err := br.receiveExtend(int(ssss))
				if err != nil {
					return nil, err
				}

				plane := planes[comp]
				idx := row*d.width + col

				var predicted int32
				switch {
				case restartPending || (row == 0 && col == 0):
					// Prediction restarts from the neutral mid-level.
					predicted = defaultVal
				case row == 0:
					// First line always predicts from the left neighbor.
					predicted = int32(plane[idx-1])
				case col == 0:
					// First column always predicts from above.
					predicted = int32(plane[idx-d.width])
				default:
					ra := int32(plane[idx-1])
					rb := int32(plane[idx-d.width])
					rc := int32(plane[idx-d.width-1])
					predicted = predict(d.predictor, ra, rb, rc)
				}

				// Reconstruction is modulo 2^16 (T.81 H.2.1); the clamp
				// only matters for damaged streams.
				sample := (predicted + diff) & 0xFFFF
				if sample > maxVal {
					sample = maxVal
				}
				plane[idx] = uint16(sample)
			}
			restartPending = false
			mcu++
		}
	}

	if d.pointShift > 0 {
		shift := uint(d.pointShift)
		for _, plane := range planes {
			for i, v := range plane {
				plane[i] = v << shift
			}
		}
	}

	return planes, nil
}
