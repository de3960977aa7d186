package dicom

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

func grayDesc16(width, height int) PixelDescriptor {
	return PixelDescriptor{
		Width: width, Height: height, Frames: 1,
		BitsAllocated: 16, BitsStored: 16, HighBit: 15,
		SamplesPerPixel: 1, Photometric: Monochrome2,
	}
}

func TestReadPixelsFullBuffer16(t *testing.T) {
	samples := []uint16{1, 2, 3, 4, 5, 6}
	src := NewBytesSource(samples16LE(samples))

	buf := ReadPixels(src, grayDesc16(3, 2), transfer.ExplicitVRLittleEndian, 0, src.Size(), nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, samples, buf.Gray16)
	assert.Nil(t, buf.Gray8)
	assert.Nil(t, buf.RGB8)
}

func TestReadPixelsWithOffset(t *testing.T) {
	samples := []uint16{9, 8, 7, 6}
	raw := append([]byte{0xAA, 0xBB, 0xCC, 0xDD}, samples16LE(samples)...)

	buf := ReadPixels(NewBytesSource(raw), grayDesc16(2, 2), transfer.ExplicitVRLittleEndian, 4, 8, nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, samples, buf.Gray16)
}

func TestReadPixelsRangeEqualsFullSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const w, h = 64, 48
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16(rng.Intn(1 << 16))
	}
	src := NewBytesSource(samples16LE(samples))
	desc := grayDesc16(w, h)

	full := ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, src.Size(), nil, nil)
	require.NotNil(t, full)

	part := ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, src.Size(), &PixelRange{Start: 1000, End: 1010}, nil)
	require.NotNil(t, part)
	assert.Equal(t, full.Gray16[1000:1010], part.Gray16)
}

func TestReadPixelsRejectsBadInput(t *testing.T) {
	desc := grayDesc16(4, 4)
	src := NewBytesSource(samples16LE(make([]uint16, 16)))

	assert.Nil(t, ReadPixels(nil, desc, transfer.ExplicitVRLittleEndian, 0, 32, nil, nil))
	assert.Nil(t, ReadPixels(NewBytesSource(nil), desc, transfer.ExplicitVRLittleEndian, 0, 32, nil, nil))

	// Shorter than the pixel run.
	short := NewBytesSource(make([]byte, 10))
	assert.Nil(t, ReadPixels(short, desc, transfer.ExplicitVRLittleEndian, 0, 32, nil, nil))

	// Invalid ranges.
	assert.Nil(t, ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 32, &PixelRange{Start: -1, End: 4}, nil))
	assert.Nil(t, ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 32, &PixelRange{Start: 4, End: 4}, nil))
	assert.Nil(t, ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 32, &PixelRange{Start: 0, End: 17}, nil))

	// Invalid descriptor.
	bad := desc
	bad.SamplesPerPixel = 2
	assert.Nil(t, ReadPixels(src, bad, transfer.ExplicitVRLittleEndian, 0, 32, nil, nil))
}

func TestReadPixelsHonorsElementLength(t *testing.T) {
	desc := grayDesc16(4, 4)

	// The source holds 8 pixel bytes followed by unrelated stream bytes.
	// Only the declared element length may be read as samples, even though
	// the source itself is long enough for all 16 pixels.
	raw := append(samples16LE([]uint16{1, 2, 3, 4}), make([]byte, 24)...)
	src := NewBytesSource(raw)

	assert.Nil(t, ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 8, nil, nil))
	assert.Nil(t, ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 8, &PixelRange{Start: 8, End: 16}, nil))

	// A range inside the element still works.
	buf := ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, 8, &PixelRange{Start: 0, End: 4}, nil)
	require.NotNil(t, buf)
	assert.Equal(t, []uint16{1, 2, 3, 4}, buf.Gray16)
}

func TestReadPixelsGray8(t *testing.T) {
	desc := PixelDescriptor{
		Width: 4, Height: 2, Frames: 1,
		BitsAllocated: 8, BitsStored: 8, HighBit: 7,
		SamplesPerPixel: 1, Photometric: Monochrome2,
	}
	raw := []byte{10, 20, 30, 40, 50, 60, 70, 80}

	buf := ReadPixels(NewBytesSource(raw), desc, transfer.ExplicitVRLittleEndian, 0, 8, nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, raw, buf.Gray8)
	assert.Nil(t, buf.Gray16)
}

func TestReadPixelsInterleavedRGB(t *testing.T) {
	desc := PixelDescriptor{
		Width: 2, Height: 1, Frames: 1,
		BitsAllocated: 8, BitsStored: 8, HighBit: 7,
		SamplesPerPixel: 3, Photometric: RGB,
	}
	raw := []byte{255, 0, 0, 0, 255, 0}

	buf := ReadPixels(NewBytesSource(raw), desc, transfer.ExplicitVRLittleEndian, 0, 6, nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, raw, buf.RGB8)
}

func TestReadPixelsPlanarRGB(t *testing.T) {
	desc := PixelDescriptor{
		Width: 2, Height: 1, Frames: 1,
		BitsAllocated: 8, BitsStored: 8, HighBit: 7,
		SamplesPerPixel: 3, Photometric: RGB, PlanarConfig: 1,
	}
	// RRGGBB planes for pixels (1,3,5) and (2,4,6).
	raw := []byte{1, 2, 3, 4, 5, 6}

	buf := ReadPixels(NewBytesSource(raw), desc, transfer.ExplicitVRLittleEndian, 0, 6, nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, []byte{1, 3, 5, 2, 4, 6}, buf.RGB8)

	// Plane-ordered color cannot be range-read.
	assert.Nil(t, ReadPixels(NewBytesSource(raw), desc, transfer.ExplicitVRLittleEndian, 0, 6, &PixelRange{Start: 0, End: 1}, nil))
}

func TestReadPixelsMonochrome1Inverts(t *testing.T) {
	desc := grayDesc16(2, 1)
	desc.Photometric = Monochrome1
	desc.BitsStored = 12
	samples := []uint16{0, 4095}

	buf := ReadPixels(NewBytesSource(samples16LE(samples)), desc, transfer.ExplicitVRLittleEndian, 0, 4, nil, nil)
	require.NotNil(t, buf)
	assert.Equal(t, []uint16{4095, 0}, buf.Gray16)
}

func TestPixelBufferPoolRoundTrip(t *testing.T) {
	p := pool.New()
	desc := grayDesc16(16, 16)
	src := NewBytesSource(samples16LE(make([]uint16, 256)))

	buf := ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, src.Size(), nil, p)
	require.NotNil(t, buf)
	assert.Equal(t, uint64(1), p.Stats().Misses)

	buf.Release()
	assert.Equal(t, 1, p.Stats().CurrentSize)
	assert.Nil(t, buf.Gray16)

	// Same shape again: must reuse the released bucket.
	again := ReadPixels(src, desc, transfer.ExplicitVRLittleEndian, 0, src.Size(), nil, p)
	require.NotNil(t, again)
	assert.Equal(t, uint64(1), p.Stats().Hits)
}

func TestPixelBufferReleaseNilSafe(t *testing.T) {
	var buf *PixelBuffer
	buf.Release()
	assert.True(t, buf.IsEmpty())

	fresh := &PixelBuffer{Gray16: []uint16{1}}
	fresh.Release() // no pool attached
	assert.NotNil(t, fresh.Gray16)
}
