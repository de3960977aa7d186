package dicom

import (
	"encoding/binary"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

// PixelBuffer holds decoded samples. Exactly one field is non-nil, selected
// by the descriptor: 8-bit grayscale, 16-bit grayscale, or interleaved
// 8-bit RGB triplets. A pool-backed buffer must not be read after Release.
type PixelBuffer struct {
	Gray8  []uint8
	Gray16 []uint16
	RGB8   []uint8

	pool *pool.Pool
}

// IsEmpty reports whether the buffer carries no samples.
func (b *PixelBuffer) IsEmpty() bool {
	return b == nil || (len(b.Gray8) == 0 && len(b.Gray16) == 0 && len(b.RGB8) == 0)
}

// Release returns pool-backed storage for reuse. Safe on nil and on
// buffers that were allocated fresh.
func (b *PixelBuffer) Release() {
	if b == nil || b.pool == nil {
		return
	}
	// Restore the full bucket length before returning storage, otherwise
	// the pool files the buffer under the sliced-down size and a future
	// acquire of the same bucket misses.
	if b.Gray8 != nil {
		b.pool.PutUint8(b.Gray8[:cap(b.Gray8)])
		b.Gray8 = nil
	}
	if b.Gray16 != nil {
		b.pool.PutUint16(b.Gray16[:cap(b.Gray16)])
		b.Gray16 = nil
	}
	if b.RGB8 != nil {
		b.pool.PutUint8(b.RGB8[:cap(b.RGB8)])
		b.RGB8 = nil
	}
	b.pool = nil
}

// PixelRange is a contiguous run [Start, End) of linear pixel indices.
type PixelRange struct {
	Start int
	End   int
}

func (r PixelRange) count() int {
	return r.End - r.Start
}

// ReadPixels extracts typed samples from a native-encoded pixel span.
//
// src is the byte source, offset the start of the pixel element within it
// and length the element's declared byte length. Reads never cross
// offset+length, so trailing elements after a short pixel element can
// never masquerade as samples. When rng is non-nil only the corresponding
// byte span is touched, which is what makes tiled access over
// memory-mapped files cheap. p may be nil to bypass buffer recycling.
//
// Returns nil (not a partial buffer) when the source or element is empty
// or shorter than the requested pixel run.
func ReadPixels(src Source, desc PixelDescriptor, syntax transfer.Syntax, offset, length int64, rng *PixelRange, p *pool.Pool) *PixelBuffer {
	if src == nil || src.Size() == 0 || length <= 0 {
		return nil
	}
	if desc.Validate() != nil {
		return nil
	}

	full := PixelRange{Start: 0, End: desc.PixelCount()}
	if rng == nil {
		rng = &full
	}
	if rng.Start < 0 || rng.End <= rng.Start || rng.End > desc.PixelCount() {
		return nil
	}

	stride := int64(desc.SamplesPerPixel) * int64(desc.BytesPerSample())
	byteStart := offset + int64(rng.Start)*stride
	byteLen := int64(rng.count()) * stride
	if byteStart+byteLen > offset+length || byteStart+byteLen > src.Size() {
		return nil
	}

	raw := make([]byte, byteLen)
	if n, err := src.ReadAt(raw, byteStart); err != nil && n < len(raw) {
		return nil
	}

	if desc.IsColor() {
		if desc.PlanarConfig == 1 {
			// Plane-ordered color only makes sense over the whole image.
			if rng.count() != desc.PixelCount() {
				return nil
			}
			raw = deinterleavePlanar(raw, rng.count())
		}
		return readRGB(raw, rng.count(), p)
	}
	if desc.BitsAllocated == 8 {
		return readGray8(raw, desc, p)
	}
	return readGray16(raw, desc, syntax, p)
}

func readGray16(raw []byte, desc PixelDescriptor, syntax transfer.Syntax, p *pool.Pool) *PixelBuffer {
	if !syntax.IsLittleEndian() {
		swapBytes16(raw)
	}

	count := len(raw) / 2
	samples := getUint16(p, count)
	for i := 0; i < count; i++ {
		samples[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}

	applyGray16Transforms(samples[:count], desc)
	return &PixelBuffer{Gray16: samples[:count], pool: p}
}

// applyGray16Transforms runs the post-extraction transforms in their fixed
// order: signed normalization first, then MONOCHROME1 inversion.
func applyGray16Transforms(samples []uint16, desc PixelDescriptor) {
	if desc.Signed {
		normalizeSigned16(samples, desc.BitsStored)
	}
	if desc.Photometric == Monochrome1 {
		invertMono16(samples, uint16(desc.MaxValue()))
	}
}

func readGray8(raw []byte, desc PixelDescriptor, p *pool.Pool) *PixelBuffer {
	samples := getUint8(p, len(raw))
	copy(samples, raw)
	out := samples[:len(raw)]

	if desc.Signed {
		normalizeSigned8(out, desc.BitsStored)
	}
	if desc.Photometric == Monochrome1 {
		invertMono8(out, uint8(desc.MaxValue()))
	}
	return &PixelBuffer{Gray8: out, pool: p}
}

func readRGB(raw []byte, pixels int, p *pool.Pool) *PixelBuffer {
	out := getUint8(p, pixels*3)
	copy(out, raw)
	return &PixelBuffer{RGB8: out[:pixels*3], pool: p}
}

// deinterleavePlanar converts plane-ordered RGB (RRR..GGG..BBB) to
// interleaved triplets. Used for full-buffer color extraction when
// PlanarConfiguration is 1.
func deinterleavePlanar(raw []byte, pixels int) []byte {
	out := make([]byte, pixels*3)
	for i := 0; i < pixels; i++ {
		out[i*3] = raw[i]
		out[i*3+1] = raw[pixels+i]
		out[i*3+2] = raw[2*pixels+i]
	}
	return out
}

// FromSamples16 wraps already-decoded samples (the JPEG Lossless path) in a
// PixelBuffer and applies the same transform chain as the native path.
func FromSamples16(samples []uint16, desc PixelDescriptor, p *pool.Pool) *PixelBuffer {
	applyGray16Transforms(samples, desc)
	return &PixelBuffer{Gray16: samples, pool: p}
}

// FromSamples8 is the 8-bit counterpart of FromSamples16.
func FromSamples8(samples []uint8, desc PixelDescriptor, p *pool.Pool) *PixelBuffer {
	if desc.Signed {
		normalizeSigned8(samples, desc.BitsStored)
	}
	if desc.Photometric == Monochrome1 {
		invertMono8(samples, uint8(desc.MaxValue()))
	}
	return &PixelBuffer{Gray8: samples, pool: p}
}

func getUint16(p *pool.Pool, n int) []uint16 {
	if p != nil {
		return p.GetUint16(n)
	}
	return make([]uint16, n)
}

func getUint8(p *pool.Pool, n int) []uint8 {
	if p != nil {
		return p.GetUint8(n)
	}
	return make([]uint8, n)
}
