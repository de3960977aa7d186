package dicom

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThalesMMS/dicom-decoder/pkg/compress/jpeglossless"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/transfer"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/vr"
	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

func TestDecoderUnloadedDefaults(t *testing.T) {
	dec := NewDecoder(pool.New())

	for i := 0; i < 3; i++ {
		assert.Equal(t, StateUnloaded, dec.State())
		assert.Equal(t, 1, dec.Width())
		assert.Equal(t, 1, dec.Height())
		assert.Nil(t, dec.Pixels8())
		assert.Nil(t, dec.Pixels16())
		assert.Nil(t, dec.PixelsRGB8())
		assert.NoError(t, dec.Err())
		assert.False(t, dec.Validation().IsValid)
	}
}

func TestDecoderFailedDefaults(t *testing.T) {
	dec := NewDecoder(pool.New())
	err := dec.LoadBytes([]byte("not a dicom file, nowhere near long enough either"))
	require.Error(t, err)

	assert.Equal(t, StateFailed, dec.State())
	assert.Equal(t, 1, dec.Width())
	assert.Equal(t, 1, dec.Height())
	assert.Nil(t, dec.Pixels16())
	assert.ErrorIs(t, dec.Err(), err)
}

func TestDecoderLoad16Bit(t *testing.T) {
	samples := []uint16{100, 200, 300, 400, 500, 600}
	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(grayFile16(3, 2, samples)))
	defer dec.Close()

	assert.Equal(t, StateLoaded, dec.State())
	assert.Equal(t, 3, dec.Width())
	assert.Equal(t, 2, dec.Height())
	assert.Equal(t, 16, dec.BitsAllocated())
	assert.Equal(t, 1, dec.SamplesPerPixel())

	// Exactly one pixel accessor yields data.
	assert.Equal(t, samples, dec.Pixels16())
	assert.Nil(t, dec.Pixels8())
	assert.Nil(t, dec.PixelsRGB8())

	vs := dec.Validation()
	assert.True(t, vs.IsValid)
	assert.True(t, vs.HasPixels)
	assert.False(t, vs.IsCompressed)
	assert.Equal(t, 3, vs.Width)
}

func TestDecoderLoad8Bit(t *testing.T) {
	le := binary.LittleEndian
	raw := []byte{1, 2, 3, 4}
	data := newFileBuilder().
		fileMeta(transfer.ExplicitVRLittleEndian).
		imagePixelModule(le, 2, 2, 8, false, Monochrome2).
		nativePixelData(le, raw).
		bytes()

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(data))
	defer dec.Close()

	assert.Equal(t, raw, dec.Pixels8())
	assert.Nil(t, dec.Pixels16())
	assert.Nil(t, dec.PixelsRGB8())
}

func TestDecoderLoadRGB(t *testing.T) {
	le := binary.LittleEndian
	raw := []byte{255, 0, 0, 0, 0, 255}

	b := newFileBuilder().fileMeta(transfer.ExplicitVRLittleEndian)
	b.str(le, tag.PhotometricInterpretation, vr.CS, RGB)
	b.us(le, tag.Rows, 1)
	b.us(le, tag.Columns, 2)
	b.us(le, tag.BitsAllocated, 8)
	b.us(le, tag.BitsStored, 8)
	b.us(le, tag.HighBit, 7)
	b.us(le, tag.SamplesPerPixel, 3)
	b.nativePixelData(le, raw)

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(b.bytes()))
	defer dec.Close()

	assert.Equal(t, raw, dec.PixelsRGB8())
	assert.Nil(t, dec.Pixels8())
	assert.Nil(t, dec.Pixels16())
	assert.Equal(t, 3, dec.SamplesPerPixel())
}

func TestDecoderJPEGLosslessEndToEnd(t *testing.T) {
	const w, h = 17, 13
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16((i * 37) % 4096)
	}
	stream, err := jpeglossless.Encode(samples, w, h, 12, 1)
	require.NoError(t, err)

	le := binary.LittleEndian
	b := newFileBuilder().fileMeta(transfer.JPEGLosslessFirstOrder)
	b.imagePixelModule(le, w, h, 16, false, Monochrome2)
	b.encapsulatedPixelData(stream)

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(b.bytes()))
	defer dec.Close()

	assert.Equal(t, StateLoaded, dec.State())
	assert.Equal(t, samples, dec.Pixels16())

	vs := dec.Validation()
	assert.True(t, vs.IsCompressed)
	assert.True(t, vs.HasPixels)
}

func TestDecoderRejectsShortPixelElement(t *testing.T) {
	// A 4x4 16-bit image needs 32 pixel bytes; the element carries only 8,
	// and another element follows it in the stream. Its bytes must not be
	// decoded as the missing samples.
	le := binary.LittleEndian
	b := newFileBuilder().fileMeta(transfer.ExplicitVRLittleEndian)
	b.imagePixelModule(le, 4, 4, 16, false, Monochrome2)
	b.nativePixelData(le, samples16LE([]uint16{1, 2, 3, 4}))
	b.str(le, tag.StudyDescription, vr.LO, "follow-up study")

	dec := NewDecoder(pool.New())
	err := dec.LoadBytes(b.bytes())
	require.Error(t, err)
	assert.Equal(t, KindInvalidPixelData, KindOf(err))
	assert.Equal(t, StateFailed, dec.State())
	assert.Nil(t, dec.Pixels16())
}

func TestDecoderRejectsUndecodableCompression(t *testing.T) {
	le := binary.LittleEndian
	b := newFileBuilder().fileMeta(transfer.JPEGBaseline)
	b.imagePixelModule(le, 2, 2, 16, false, Monochrome2)
	b.encapsulatedPixelData([]byte{0xFF, 0xD8, 0xFF, 0xD9})

	dec := NewDecoder(pool.New())
	err := dec.LoadBytes(b.bytes())
	require.Error(t, err)
	assert.Equal(t, KindUnsupportedTransferSyntax, KindOf(err))
	assert.Equal(t, StateFailed, dec.State())
}

func TestDecoderReloadSupersedes(t *testing.T) {
	p := pool.New()
	dec := NewDecoder(p)

	require.NoError(t, dec.LoadBytes(grayFile16(4, 4, make([]uint16, 16))))
	first := dec.Pixels16()
	require.NotNil(t, first)

	require.NoError(t, dec.LoadBytes(grayFile16(8, 2, make([]uint16, 16))))
	assert.Equal(t, 8, dec.Width())
	assert.Equal(t, 2, dec.Height())

	// The superseded buffer went back to the pool and was reused for the
	// second decode: one release, one hit.
	assert.Equal(t, uint64(1), p.Stats().Hits)
}

func TestDecoderMetadataLookup(t *testing.T) {
	le := binary.LittleEndian
	b := newFileBuilder().fileMeta(transfer.ExplicitVRLittleEndian)
	b.str(le, tag.Modality, vr.CS, "CT")
	b.str(le, tag.RescaleIntercept, vr.DS, "-1024")
	b.str(le, tag.RescaleSlope, vr.DS, "1.0")
	b.us(le, tag.Rows, 2)
	b.us(le, tag.Columns, 2)
	b.us(le, tag.BitsAllocated, 16)
	b.nativePixelData(le, samples16LE(make([]uint16, 4)))

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(b.bytes()))
	defer dec.Close()

	assert.Equal(t, "CT", dec.StringValue(0x0008, 0x0060))
	assert.Equal(t, "", dec.StringValue(0x0008, 0x9999))

	rows, ok := dec.IntValue(0x0028, 0x0010)
	require.True(t, ok)
	assert.Equal(t, 2, rows)

	intercept, ok := dec.FloatValue(0x0028, 0x1052)
	require.True(t, ok)
	assert.Equal(t, -1024.0, intercept)

	_, ok = dec.FloatValue(0x0008, 0x0060) // "CT" is not numeric
	assert.False(t, ok)
}

func TestDecoderPixelSpacing(t *testing.T) {
	le := binary.LittleEndian
	b := newFileBuilder().fileMeta(transfer.ExplicitVRLittleEndian)
	b.str(le, tag.PixelSpacing, vr.DS, "0.5\\0.75")
	b.imagePixelModule(le, 2, 2, 16, false, Monochrome2)
	b.nativePixelData(le, samples16LE(make([]uint16, 4)))

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(b.bytes()))
	defer dec.Close()

	row, col, ok := dec.PixelSpacing()
	require.True(t, ok)
	assert.Equal(t, 0.5, row)
	assert.Equal(t, 0.75, col)

	plain := NewDecoder(pool.New())
	require.NoError(t, plain.LoadBytes(grayFile16(2, 2, make([]uint16, 4))))
	defer plain.Close()
	_, _, ok = plain.PixelSpacing()
	assert.False(t, ok)
}

func TestDecoderPixelRange(t *testing.T) {
	samples := make([]uint16, 64*64)
	for i := range samples {
		samples[i] = uint16(i)
	}
	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(grayFile16(64, 64, samples)))
	defer dec.Close()

	full := dec.Pixels16()
	part := dec.PixelRange(1000, 1010)
	require.NotNil(t, part)
	assert.Equal(t, full[1000:1010], part)

	assert.Nil(t, dec.PixelRange(-1, 5))
	assert.Nil(t, dec.PixelRange(10, 10))
	assert.Nil(t, dec.PixelRange(0, 64*64+1))
}

func TestDecoderDownsampled(t *testing.T) {
	const w, h = 16, 8
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16(i)
	}
	dec := NewDecoder(pool.New())
	require.NoError(t, dec.LoadBytes(grayFile16(w, h, samples)))
	defer dec.Close()

	out, ow, oh := dec.Downsampled16(4)
	require.NotNil(t, out)
	assert.Equal(t, 4, ow)
	assert.Equal(t, 2, oh)
	assert.Len(t, out, 8)
	// Top-left pixel survives nearest-neighbor reduction.
	assert.Equal(t, samples[0], out[0])

	// maxDim larger than the image returns a copy at native size.
	out, ow, oh = dec.Downsampled16(100)
	assert.Equal(t, w, ow)
	assert.Equal(t, h, oh)
	assert.Equal(t, samples, out)
}

func TestDecoderLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ct.dcm")
	samples := []uint16{11, 22, 33, 44}
	require.NoError(t, os.WriteFile(path, grayFile16(2, 2, samples), 0644))

	dec := NewDecoder(pool.New())
	require.NoError(t, dec.Load(path))
	defer dec.Close()
	assert.Equal(t, samples, dec.Pixels16())
}

func TestDecoderLoadMissingFile(t *testing.T) {
	dec := NewDecoder(pool.New())
	err := dec.Load(filepath.Join(t.TempDir(), "absent.dcm"))
	require.Error(t, err)
	assert.Equal(t, KindFileNotFound, KindOf(err))
	assert.Equal(t, StateFailed, dec.State())
}

func TestDecoderLoadAsync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "async.dcm")
	require.NoError(t, os.WriteFile(path, grayFile16(2, 2, []uint16{1, 2, 3, 4}), 0644))

	dec := NewDecoder(pool.New())
	require.NoError(t, <-dec.LoadAsync(context.Background(), path))
	assert.Equal(t, StateLoaded, dec.State())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, <-dec.LoadAsync(cancelled, path))
}

func TestDecodersConcurrentIndependentLoads(t *testing.T) {
	p := pool.New()
	data := grayFile16(32, 32, make([]uint16, 1024))

	const n = 16
	var wg sync.WaitGroup
	results := make([]*Decoder, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dec := NewDecoder(p)
			if err := dec.LoadBytes(data); err == nil {
				results[i] = dec
			}
		}(i)
	}
	wg.Wait()

	for i, dec := range results {
		require.NotNil(t, dec, "decoder %d failed", i)
		assert.Equal(t, 32, dec.Width())
		assert.Len(t, dec.Pixels16(), 1024)
		dec.Close()
	}
	assert.Equal(t, n, p.Stats().CurrentSize)
}

// stubDecoder documents the dependency-injection seam: services take a
// DicomDecoder and tests hand them this.
type stubDecoder struct {
	width, height int
	pixels        []uint16
}

func (s *stubDecoder) Load(string) error                  { return nil }
func (s *stubDecoder) LoadBytes([]byte) error             { return nil }
func (s *stubDecoder) State() State                       { return StateLoaded }
func (s *stubDecoder) Err() error                         { return nil }
func (s *stubDecoder) Width() int                         { return s.width }
func (s *stubDecoder) Height() int                        { return s.height }
func (s *stubDecoder) BitsAllocated() int                 { return 16 }
func (s *stubDecoder) SamplesPerPixel() int               { return 1 }
func (s *stubDecoder) Pixels8() []uint8                   { return nil }
func (s *stubDecoder) Pixels16() []uint16                 { return s.pixels }
func (s *stubDecoder) PixelsRGB8() []uint8                { return nil }
func (s *stubDecoder) StringValue(uint16, uint16) string  { return "" }
func (s *stubDecoder) IntValue(uint16, uint16) (int, bool) { return 0, false }
func (s *stubDecoder) FloatValue(uint16, uint16) (float64, bool) {
	return 0, false
}
func (s *stubDecoder) Validation() ValidationStatus {
	return ValidationStatus{IsValid: true, Width: s.width, Height: s.height}
}

func TestDicomDecoderInterfaceSubstitution(t *testing.T) {
	var dec DicomDecoder = &stubDecoder{width: 10, height: 20, pixels: []uint16{5}}
	assert.Equal(t, 10, dec.Width())
	assert.Equal(t, []uint16{5}, dec.Pixels16())

	dec = NewDecoder(pool.New())
	assert.Equal(t, 1, dec.Width())
}
