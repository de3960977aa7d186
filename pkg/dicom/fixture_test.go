package dicom

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/flate"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/vr"
)

// fileBuilder assembles synthetic Part 10 streams for tests.
type fileBuilder struct {
	buf bytes.Buffer
}

func newFileBuilder() *fileBuilder {
	b := &fileBuilder{}
	b.buf.Write(make([]byte, 128))
	b.buf.WriteString("DICM")
	return b
}

// newBodyBuilder builds a bare element stream with no preamble, for
// deflated bodies and headerless streams.
func newBodyBuilder() *fileBuilder {
	return &fileBuilder{}
}

// element writes one explicit VR element.
func (b *fileBuilder) element(order binary.ByteOrder, t tag.Tag, v vr.VR, data []byte) *fileBuilder {
	binary.Write(&b.buf, order, t.Group)
	binary.Write(&b.buf, order, t.Element)
	b.buf.WriteString(string(v))
	if v.UsesLongLength() {
		b.buf.Write([]byte{0, 0})
		binary.Write(&b.buf, order, uint32(len(data)))
	} else {
		binary.Write(&b.buf, order, uint16(len(data)))
	}
	b.buf.Write(data)
	return b
}

// implicitElement writes one implicit VR element (tag + 4-byte length).
func (b *fileBuilder) implicitElement(t tag.Tag, data []byte) *fileBuilder {
	binary.Write(&b.buf, binary.LittleEndian, t.Group)
	binary.Write(&b.buf, binary.LittleEndian, t.Element)
	binary.Write(&b.buf, binary.LittleEndian, uint32(len(data)))
	b.buf.Write(data)
	return b
}

// str pads to even length with a space, as string VRs require.
func (b *fileBuilder) str(order binary.ByteOrder, t tag.Tag, v vr.VR, s string) *fileBuilder {
	if len(s)%2 == 1 {
		pad := " "
		if v == vr.UI {
			pad = "\x00"
		}
		s += pad
	}
	return b.element(order, t, v, []byte(s))
}

func (b *fileBuilder) us(order binary.ByteOrder, t tag.Tag, val uint16) *fileBuilder {
	data := make([]byte, 2)
	order.PutUint16(data, val)
	return b.element(order, t, vr.US, data)
}

// fileMeta writes the group 0002 header, always Explicit VR Little Endian.
func (b *fileBuilder) fileMeta(syntax transfer.Syntax) *fileBuilder {
	le := binary.LittleEndian
	b.str(le, tag.MediaStorageSOPClassUID, vr.UI, "1.2.840.10008.5.1.4.1.1.7")
	b.str(le, tag.TransferSyntaxUID, vr.UI, string(syntax))
	return b
}

func (b *fileBuilder) bytes() []byte {
	return b.buf.Bytes()
}

// imagePixelModule writes the descriptor tags for a grayscale image.
func (b *fileBuilder) imagePixelModule(order binary.ByteOrder, width, height, bits int, signed bool, photometric string) *fileBuilder {
	rep := uint16(0)
	if signed {
		rep = 1
	}
	b.str(order, tag.PhotometricInterpretation, vr.CS, photometric)
	b.us(order, tag.Rows, uint16(height))
	b.us(order, tag.Columns, uint16(width))
	b.us(order, tag.BitsAllocated, uint16(bits))
	b.us(order, tag.BitsStored, uint16(bits))
	b.us(order, tag.HighBit, uint16(bits-1))
	b.us(order, tag.SamplesPerPixel, 1)
	b.us(order, tag.PixelRepresentation, rep)
	return b
}

// nativePixelData writes (7FE0,0010) with a concrete length.
func (b *fileBuilder) nativePixelData(order binary.ByteOrder, data []byte) *fileBuilder {
	return b.element(order, tag.PixelData, vr.OW, data)
}

// encapsulatedPixelData writes undefined-length pixel data: an empty Basic
// Offset Table followed by the fragments and the sequence delimiter.
func (b *fileBuilder) encapsulatedPixelData(fragments ...[]byte) *fileBuilder {
	le := binary.LittleEndian
	binary.Write(&b.buf, le, tag.PixelData.Group)
	binary.Write(&b.buf, le, tag.PixelData.Element)
	b.buf.WriteString("OB")
	b.buf.Write([]byte{0, 0})
	binary.Write(&b.buf, le, UndefinedLength)

	binary.Write(&b.buf, le, tag.Item.Group)
	binary.Write(&b.buf, le, tag.Item.Element)
	binary.Write(&b.buf, le, uint32(0)) // empty BOT

	for _, frag := range fragments {
		if len(frag)%2 == 1 {
			frag = append(append([]byte{}, frag...), 0)
		}
		binary.Write(&b.buf, le, tag.Item.Group)
		binary.Write(&b.buf, le, tag.Item.Element)
		binary.Write(&b.buf, le, uint32(len(frag)))
		b.buf.Write(frag)
	}

	binary.Write(&b.buf, le, tag.SequenceDelimitationItem.Group)
	binary.Write(&b.buf, le, tag.SequenceDelimitationItem.Element)
	binary.Write(&b.buf, le, uint32(0))
	return b
}

// samples16LE serializes 16-bit samples little endian.
func samples16LE(samples []uint16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func samples16BE(samples []uint16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.BigEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// grayFile16 builds a complete Explicit VR LE file around the given samples.
func grayFile16(width, height int, samples []uint16) []byte {
	le := binary.LittleEndian
	return newFileBuilder().
		fileMeta(transfer.ExplicitVRLittleEndian).
		str(le, tag.Modality, vr.CS, "CT").
		imagePixelModule(le, width, height, 16, false, Monochrome2).
		nativePixelData(le, samples16LE(samples)).
		bytes()
}

// deflate compresses a body stream the way Deflated Explicit VR LE does.
func deflateBody(body []byte) []byte {
	var out bytes.Buffer
	w, _ := flate.NewWriter(&out, flate.DefaultCompression)
	w.Write(body)
	w.Close()
	return out.Bytes()
}
