package dicom

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/klauspost/compress/flate"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/vr"
)

const (
	// Smallest structurally viable Part 10 file: 128-byte preamble plus
	// the 4-byte DICM magic.
	minFileSize = 132

	// Values above this are skipped rather than copied into the dataset.
	// Pixel data is handled separately and is never subject to this cap.
	maxInlineValue = 1 << 20
)

// Reader decodes the binary element stream of one DICOM file.
type Reader struct {
	cur        *cursor
	syntax     transfer.Syntax
	order      binary.ByteOrder
	explicitVR bool
}

// cursor tracks a position within a Source.
type cursor struct {
	src  Source
	pos  int64
	size int64
}

func newCursor(src Source) *cursor {
	return &cursor{src: src, size: src.Size()}
}

func (c *cursor) remaining() int64 {
	return c.size - c.pos
}

func (c *cursor) read(n int) ([]byte, error) {
	if int64(n) > c.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := c.src.ReadAt(buf, c.pos); err != nil && err != io.EOF {
		return nil, err
	}
	c.pos += int64(n)
	return buf, nil
}

func (c *cursor) skip(n int64) error {
	if n > c.remaining() {
		return io.ErrUnexpectedEOF
	}
	c.pos += n
	return nil
}

func (c *cursor) uint16(order binary.ByteOrder) (uint16, error) {
	b, err := c.read(2)
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (c *cursor) uint32(order binary.ByteOrder) (uint32, error) {
	b, err := c.read(4)
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

// Parse decodes a complete dataset from a byte source. It resolves the
// transfer syntax from the file meta group and locates the pixel data
// element without materializing it.
func Parse(src Source) (*Dataset, error) {
	r := &Reader{
		cur:        newCursor(src),
		order:      binary.LittleEndian,
		explicitVR: true,
	}
	return r.readDataset(src)
}

// ParseBytes decodes a dataset from an in-memory buffer.
func ParseBytes(b []byte) (*Dataset, error) {
	return Parse(NewBytesSource(b))
}

func (r *Reader) readDataset(src Source) (*Dataset, error) {
	ds := NewDataset()

	if r.cur.size < minFileSize {
		return nil, newError(KindFileCorrupted, "file too small: %d bytes (minimum %d)", r.cur.size, minFileSize)
	}

	// The 128-byte preamble and "DICM" magic are optional per the standard.
	// Absence is a warning, not a failure: parsing restarts at offset 0.
	magic := make([]byte, 4)
	if _, err := src.ReadAt(magic, 128); err == nil && string(magic) == "DICM" {
		r.cur.pos = minFileSize
	} else {
		ds.Warnings = append(ds.Warnings, "missing DICM magic at offset 128; assuming headerless stream")
		r.sniffEncoding()
	}

	// File Meta Information (group 0002) is always Explicit VR Little Endian.
	if err := r.readFileMeta(ds); err != nil {
		return nil, err
	}

	uid := ds.String(tag.TransferSyntaxUID)
	if uid == "" {
		ds.Warnings = append(ds.Warnings, "no TransferSyntaxUID; defaulting to Implicit VR Little Endian")
		r.syntax = transfer.ImplicitVRLittleEndian
	} else {
		r.syntax = transfer.FromUID(uid)
		if !r.syntax.IsKnown() {
			return nil, newError(KindUnsupportedTransferSyntax, "transfer syntax %q", uid)
		}
	}
	ds.Syntax = r.syntax
	r.explicitVR = r.syntax.IsExplicitVR()
	r.order = r.syntax.ByteOrder()

	body := src
	if r.syntax.IsDeflated() {
		inflated, err := r.inflateBody()
		if err != nil {
			return nil, wrapError(KindFileCorrupted, err, "inflating deflated dataset")
		}
		body = NewBytesSource(inflated)
		r.cur = newCursor(body)
		// The inflated body is Explicit VR Little Endian.
		r.order = binary.LittleEndian
		r.explicitVR = true
	}

	if err := r.readBody(ds, body); err != nil {
		return nil, err
	}
	return ds, nil
}

// sniffEncoding guesses explicit vs implicit VR for headerless streams by
// checking whether bytes 4..6 of the first element form a valid VR code.
func (r *Reader) sniffEncoding() {
	probe := make([]byte, 6)
	if _, err := r.cur.src.ReadAt(probe, 0); err != nil {
		return
	}
	v := vr.Parse(probe[4], probe[5])
	if v == vr.UN && (probe[4] < 'A' || probe[4] > 'Z' || probe[5] < 'A' || probe[5] > 'Z') {
		r.explicitVR = false
	}
}

func (r *Reader) readFileMeta(ds *Dataset) error {
	for r.cur.remaining() >= 8 {
		start := r.cur.pos
		group, err := r.cur.uint16(binary.LittleEndian)
		if err != nil {
			return wrapError(KindFileCorrupted, err, "reading file meta tag")
		}
		if group != 0x0002 {
			r.cur.pos = start
			return nil
		}
		element, err := r.cur.uint16(binary.LittleEndian)
		if err != nil {
			return wrapError(KindFileCorrupted, err, "reading file meta tag")
		}
		t := tag.New(group, element)
		elem, err := r.readElementBody(t, binary.LittleEndian, true)
		if err != nil {
			return wrapError(KindFileCorrupted, err, "reading file meta element %s", t)
		}
		if elem != nil {
			ds.Add(elem)
		}
	}
	return nil
}

// inflateBody inflates the raw deflate stream that follows the file meta
// group of a Deflated Explicit VR LE file.
func (r *Reader) inflateBody() ([]byte, error) {
	compressed, err := r.cur.read(int(r.cur.remaining()))
	if err != nil {
		return nil, err
	}
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()
	return io.ReadAll(fr)
}

func (r *Reader) readBody(ds *Dataset, body Source) error {
	for r.cur.remaining() >= 8 {
		t, err := r.readTag()
		if err != nil {
			return wrapError(KindFileCorrupted, err, "reading tag")
		}

		// Stray item delimiters at the top level are skipped.
		if t.Group == 0xFFFE {
			if _, err := r.cur.uint32(r.order); err != nil {
				return wrapError(KindFileCorrupted, err, "reading delimiter length")
			}
			continue
		}

		if t == tag.PixelData {
			if err := r.readPixelDataElement(ds, body); err != nil {
				return err
			}
			continue
		}

		elem, err := r.readElementBody(t, r.order, r.explicitVR)
		if err != nil {
			return wrapError(KindFileCorrupted, err, "reading element %s", t)
		}
		if elem != nil {
			ds.Add(elem)
		}
	}
	return nil
}

func (r *Reader) readTag() (tag.Tag, error) {
	group, err := r.cur.uint16(r.order)
	if err != nil {
		return tag.Tag{}, err
	}
	element, err := r.cur.uint16(r.order)
	if err != nil {
		return tag.Tag{}, err
	}
	return tag.New(group, element), nil
}

// readElementBody reads VR, length and value for a tag whose 4 tag bytes
// have already been consumed. Oversized values are skipped, not copied;
// the element then carries its declared length but no data.
func (r *Reader) readElementBody(t tag.Tag, order binary.ByteOrder, explicit bool) (*Element, error) {
	v, vl, err := r.readVRLength(t, order, explicit)
	if err != nil {
		return nil, err
	}

	elem := &Element{Tag: t, VR: v, Length: vl, order: order}

	if vl == UndefinedLength {
		// Undefined-length sequences are structural only: skip to the
		// sequence delimiter and keep an empty element as a placeholder.
		if err := r.skipUndefinedLength(order, explicit); err != nil {
			return nil, err
		}
		return elem, nil
	}

	if int64(vl) > r.cur.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	if vl > maxInlineValue {
		slog.Debug("skipping oversized element value", "tag", t.String(), "length", vl)
		if err := r.cur.skip(int64(vl)); err != nil {
			return nil, err
		}
		return elem, nil
	}

	data, err := r.cur.read(int(vl))
	if err != nil {
		return nil, err
	}
	elem.Data = data
	return elem, nil
}

func (r *Reader) readVRLength(t tag.Tag, order binary.ByteOrder, explicit bool) (vr.VR, uint32, error) {
	if !explicit {
		vl, err := r.cur.uint32(order)
		if err != nil {
			return vr.UN, 0, err
		}
		return implicitVRFor(t), vl, nil
	}

	vrb, err := r.cur.read(2)
	if err != nil {
		return vr.UN, 0, err
	}
	v := vr.Parse(vrb[0], vrb[1])

	if v.UsesLongLength() {
		if err := r.cur.skip(2); err != nil { // reserved
			return v, 0, err
		}
		vl, err := r.cur.uint32(order)
		return v, vl, err
	}
	vl16, err := r.cur.uint16(order)
	return v, uint32(vl16), err
}

// skipUndefinedLength consumes elements until the matching sequence
// delimitation item, recursing into nested undefined-length values.
func (r *Reader) skipUndefinedLength(order binary.ByteOrder, explicit bool) error {
	for r.cur.remaining() >= 8 {
		t, err := r.readTag()
		if err != nil {
			return err
		}

		if t.Group == 0xFFFE {
			vl, err := r.cur.uint32(order)
			if err != nil {
				return err
			}
			switch t.Element {
			case 0xE0DD: // sequence delimitation
				return nil
			case 0xE00D: // item delimitation
				continue
			case 0xE000: // item start
				if vl != UndefinedLength {
					if err := r.cur.skip(int64(vl)); err != nil {
						return err
					}
				}
				continue
			}
			continue
		}

		_, vl, err := r.readVRLength(t, order, explicit)
		if err != nil {
			return err
		}
		if vl == UndefinedLength {
			if err := r.skipUndefinedLength(order, explicit); err != nil {
				return err
			}
			continue
		}
		if err := r.cur.skip(int64(vl)); err != nil {
			return err
		}
	}
	return io.ErrUnexpectedEOF
}

// readPixelDataElement handles (7FE0,0010). Native pixel data is recorded
// as an offset+length span against the source; encapsulated pixel data is
// collected fragment by fragment.
func (r *Reader) readPixelDataElement(ds *Dataset, body Source) error {
	v, vl, err := r.readVRLength(tag.PixelData, r.order, r.explicitVR)
	if err != nil {
		return wrapError(KindFileCorrupted, err, "reading pixel data header")
	}

	ds.Add(&Element{Tag: tag.PixelData, VR: v, Length: vl, order: r.order})

	if vl != UndefinedLength {
		if int64(vl) > r.cur.remaining() {
			return newError(KindInvalidPixelData, "pixel data length %d exceeds remaining %d bytes", vl, r.cur.remaining())
		}
		ds.PixelInfo = PixelInfo{
			Present: true,
			Source:  body,
			Offset:  r.cur.pos,
			Length:  int64(vl),
		}
		return r.cur.skip(int64(vl))
	}

	info := PixelInfo{Present: true, IsEncapsulated: true, Source: body}

	// Basic Offset Table item comes first.
	botTag, err := r.readTag()
	if err != nil {
		return wrapError(KindInvalidPixelData, err, "reading basic offset table")
	}
	if botTag != tag.Item {
		return newError(KindInvalidPixelData, "expected basic offset table item, got %s", botTag)
	}
	botLen, err := r.cur.uint32(r.order)
	if err != nil {
		return wrapError(KindInvalidPixelData, err, "reading basic offset table length")
	}
	if botLen > 0 {
		raw, err := r.cur.read(int(botLen))
		if err != nil {
			return wrapError(KindInvalidPixelData, err, "reading basic offset table entries")
		}
		info.BasicOffsets = make([]uint32, botLen/4)
		for i := range info.BasicOffsets {
			info.BasicOffsets[i] = r.order.Uint32(raw[i*4:])
		}
	}

	// Fragments until the sequence delimitation item.
	for {
		itemTag, err := r.readTag()
		if err != nil {
			return wrapError(KindInvalidPixelData, err, "reading pixel fragment tag")
		}
		if itemTag == tag.SequenceDelimitationItem {
			if _, err := r.cur.uint32(r.order); err != nil {
				return wrapError(KindInvalidPixelData, err, "reading sequence delimiter")
			}
			break
		}
		if itemTag != tag.Item {
			return newError(KindInvalidPixelData, "expected pixel fragment item, got %s", itemTag)
		}
		itemLen, err := r.cur.uint32(r.order)
		if err != nil {
			return wrapError(KindInvalidPixelData, err, "reading fragment length")
		}
		frag, err := r.cur.read(int(itemLen))
		if err != nil {
			return wrapError(KindInvalidPixelData, err, "reading fragment data")
		}
		info.Fragments = append(info.Fragments, frag)
	}

	ds.PixelInfo = info
	return nil
}

// implicitVRFor resolves the VR for Implicit VR streams. This is the small
// working set the pixel pipeline needs, not a full data dictionary.
func implicitVRFor(t tag.Tag) vr.VR {
	switch {
	case t == tag.PixelData:
		return vr.OW
	case t.Group == 0x0002:
		return vr.UL
	case t.Group == 0x0028:
		switch t.Element {
		case 0x0002, 0x0010, 0x0011, 0x0100, 0x0101, 0x0102, 0x0103, 0x0106, 0x0107, 0x0120:
			return vr.US
		case 0x0008:
			return vr.IS
		case 0x0004:
			return vr.CS
		case 0x0006:
			return vr.US
		case 0x0030, 0x1050, 0x1051, 0x1052, 0x1053:
			return vr.DS
		}
	case t.Group == 0x0008:
		switch t.Element {
		case 0x0016, 0x0018:
			return vr.UI
		case 0x0005, 0x0008, 0x0060:
			return vr.CS
		case 0x0020, 0x0021, 0x0023:
			return vr.DA
		}
	case t.Group == 0x0020:
		switch t.Element {
		case 0x000D, 0x000E:
			return vr.UI
		case 0x0011, 0x0013:
			return vr.IS
		}
	case t.Group == 0x0010:
		switch t.Element {
		case 0x0010:
			return vr.PN
		case 0x0020:
			return vr.LO
		}
	}
	return vr.UN
}
