package dicom

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/vr"
)

// UndefinedLength is the sentinel value length marking encapsulated pixel
// data or undefined-length sequences.
const UndefinedLength uint32 = 0xFFFFFFFF

// Element is a single parsed data element: the tag, its resolved VR, the
// declared byte length, and the raw value bytes. Large native pixel data is
// the one exception: its bytes stay in the source and are described by the
// dataset's PixelInfo instead.
type Element struct {
	Tag    tag.Tag
	VR     vr.VR
	Length uint32
	Data   []byte

	order binary.ByteOrder
}

// PixelInfo locates the pixel data element without materializing it.
type PixelInfo struct {
	Present        bool
	IsEncapsulated bool

	// Source resolves Offset/Length. It is the parsed file itself except
	// for deflated transfer syntaxes, where it is the inflated body.
	Source Source

	// Native encoding: byte span within the source.
	Offset int64
	Length int64

	// Encapsulated encoding: compressed fragments and the Basic Offset Table.
	Fragments    [][]byte
	BasicOffsets []uint32
}

// Dataset is an ordered mapping from tag to element. Traversal order follows
// stream order. At most one element exists per tag.
type Dataset struct {
	Syntax    transfer.Syntax
	PixelInfo PixelInfo
	Warnings  []string

	elements map[tag.Tag]*Element
	order    []tag.Tag
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{elements: make(map[tag.Tag]*Element)}
}

// Add inserts an element, replacing any prior element with the same tag in
// its original stream position.
func (ds *Dataset) Add(e *Element) {
	if _, exists := ds.elements[e.Tag]; !exists {
		ds.order = append(ds.order, e.Tag)
	}
	ds.elements[e.Tag] = e
}

// Get returns the element for a tag.
func (ds *Dataset) Get(t tag.Tag) (*Element, bool) {
	e, ok := ds.elements[t]
	return e, ok
}

// Has reports whether the dataset contains the tag.
func (ds *Dataset) Has(t tag.Tag) bool {
	_, ok := ds.elements[t]
	return ok
}

// Len returns the number of elements.
func (ds *Dataset) Len() int {
	return len(ds.order)
}

// Tags returns the tags in stream order.
func (ds *Dataset) Tags() []tag.Tag {
	out := make([]tag.Tag, len(ds.order))
	copy(out, ds.order)
	return out
}

// String returns the element value rendered as a string, or "" when the tag
// is absent. It never fails for unknown tags.
func (ds *Dataset) String(t tag.Tag) string {
	e, ok := ds.elements[t]
	if !ok {
		return ""
	}
	return e.String()
}

// Int returns the element value coerced to int. ok is false when the tag is
// absent or the value is non-numeric.
func (ds *Dataset) Int(t tag.Tag) (int, bool) {
	e, ok := ds.elements[t]
	if !ok {
		return 0, false
	}
	return e.Int()
}

// IntOr returns the coerced int value or def.
func (ds *Dataset) IntOr(t tag.Tag, def int) int {
	if v, ok := ds.Int(t); ok {
		return v
	}
	return def
}

// Float returns the element value coerced to float64. ok is false when the
// tag is absent or the value is non-numeric.
func (ds *Dataset) Float(t tag.Tag) (float64, bool) {
	e, ok := ds.elements[t]
	if !ok {
		return 0, false
	}
	return e.Float()
}

// FloatOr returns the coerced float value or def.
func (ds *Dataset) FloatOr(t tag.Tag, def float64) float64 {
	if v, ok := ds.Float(t); ok {
		return v
	}
	return def
}

// byteOrder defaults to little endian for elements built outside the reader.
func (e *Element) byteOrder() binary.ByteOrder {
	if e.order != nil {
		return e.order
	}
	return binary.LittleEndian
}

// String renders the element value as text. Binary multi-values join with
// "\" the way DICOM multiplicity does.
func (e *Element) String() string {
	if e.VR.IsString() {
		return trimPadding(string(e.Data))
	}
	bo := e.byteOrder()
	switch e.VR {
	case vr.US:
		return joinUints(e.Data, 2, func(b []byte) uint64 { return uint64(bo.Uint16(b)) })
	case vr.UL:
		return joinUints(e.Data, 4, func(b []byte) uint64 { return uint64(bo.Uint32(b)) })
	case vr.SS:
		return joinInts(e.Data, 2, func(b []byte) int64 { return int64(int16(bo.Uint16(b))) })
	case vr.SL:
		return joinInts(e.Data, 4, func(b []byte) int64 { return int64(int32(bo.Uint32(b))) })
	case vr.FL:
		if len(e.Data) >= 4 {
			return strconv.FormatFloat(float64(math.Float32frombits(bo.Uint32(e.Data))), 'g', -1, 32)
		}
	case vr.FD:
		if len(e.Data) >= 8 {
			return strconv.FormatFloat(math.Float64frombits(bo.Uint64(e.Data)), 'g', -1, 64)
		}
	}
	return ""
}

// Int coerces the element value to an int. String VRs parse the first
// multiplicity component.
func (e *Element) Int() (int, bool) {
	bo := e.byteOrder()
	switch e.VR {
	case vr.US:
		if len(e.Data) >= 2 {
			return int(bo.Uint16(e.Data)), true
		}
	case vr.SS:
		if len(e.Data) >= 2 {
			return int(int16(bo.Uint16(e.Data))), true
		}
	case vr.UL:
		if len(e.Data) >= 4 {
			return int(bo.Uint32(e.Data)), true
		}
	case vr.SL:
		if len(e.Data) >= 4 {
			return int(int32(bo.Uint32(e.Data))), true
		}
	case vr.IS, vr.DS, vr.CS, vr.LO, vr.SH:
		s := firstComponent(trimPadding(string(e.Data)))
		if s == "" {
			return 0, false
		}
		if v, err := strconv.Atoi(s); err == nil {
			return v, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), true
		}
	}
	return 0, false
}

// Float coerces the element value to a float64.
func (e *Element) Float() (float64, bool) {
	bo := e.byteOrder()
	switch e.VR {
	case vr.FL:
		if len(e.Data) >= 4 {
			return float64(math.Float32frombits(bo.Uint32(e.Data))), true
		}
	case vr.FD:
		if len(e.Data) >= 8 {
			return math.Float64frombits(bo.Uint64(e.Data)), true
		}
	case vr.DS, vr.IS, vr.CS, vr.LO, vr.SH:
		s := firstComponent(trimPadding(string(e.Data)))
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	default:
		if v, ok := e.Int(); ok {
			return float64(v), true
		}
	}
	return 0, false
}

// Uint16s decodes the value as a run of unsigned shorts.
func (e *Element) Uint16s() []uint16 {
	bo := e.byteOrder()
	out := make([]uint16, 0, len(e.Data)/2)
	for i := 0; i+2 <= len(e.Data); i += 2 {
		out = append(out, bo.Uint16(e.Data[i:]))
	}
	return out
}

// Floats decodes the value as DICOM multiplicity floats ("1.5\2.0\...").
func (e *Element) Floats() []float64 {
	s := trimPadding(string(e.Data))
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "\\")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

// trimPadding strips DICOM trailing null/space padding.
func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00 ")
}

// firstComponent returns the first "\"-separated multiplicity component.
func firstComponent(s string) string {
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func joinUints(data []byte, width int, read func([]byte) uint64) string {
	var sb strings.Builder
	for i := 0; i+width <= len(data); i += width {
		if i > 0 {
			sb.WriteByte('\\')
		}
		sb.WriteString(strconv.FormatUint(read(data[i:]), 10))
	}
	return sb.String()
}

func joinInts(data []byte, width int, read func([]byte) int64) string {
	var sb strings.Builder
	for i := 0; i+width <= len(data); i += width {
		if i > 0 {
			sb.WriteByte('\\')
		}
		sb.WriteString(strconv.FormatInt(read(data[i:]), 10))
	}
	return sb.String()
}
