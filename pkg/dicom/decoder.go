package dicom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ThalesMMS/dicom-decoder/pkg/compress/jpeglossless"
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
	"github.com/ThalesMMS/dicom-decoder/pkg/locking"
	"github.com/ThalesMMS/dicom-decoder/pkg/pool"
)

// State is the decoder lifecycle phase.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ValidationStatus is a read-only snapshot of the loaded file's shape.
// Recomputing it has no side effects.
type ValidationStatus struct {
	IsValid      bool
	HasPixels    bool
	IsCompressed bool
	Width        int
	Height       int
}

// DicomDecoder is the consumer-facing surface of a decoder. Services that
// only read pixels and metadata should depend on this interface so tests
// can substitute a double.
type DicomDecoder interface {
	Load(path string) error
	LoadBytes(data []byte) error

	State() State
	Err() error

	Width() int
	Height() int
	BitsAllocated() int
	SamplesPerPixel() int

	Pixels8() []uint8
	Pixels16() []uint16
	PixelsRGB8() []uint8

	StringValue(group, element uint16) string
	IntValue(group, element uint16) (int, bool)
	FloatValue(group, element uint16) (float64, bool)

	Validation() ValidationStatus
}

// Decoder orchestrates parse, decompression and pixel extraction for a
// single file and caches the result for repeat queries. All methods are
// safe for concurrent use; a Load in flight never exposes a half-updated
// descriptor to concurrent readers.
type Decoder struct {
	lock locking.Scoped
	pool *pool.Pool

	state   State
	err     error
	ds      *Dataset
	desc    PixelDescriptor
	hasDesc bool
	buf     *PixelBuffer
	close   func() error
}

var _ DicomDecoder = (*Decoder)(nil)

// NewDecoder creates an unloaded decoder. A nil pool means the process-wide
// pool.Default; pass an explicit pool to isolate recycling.
func NewDecoder(p *pool.Pool) *Decoder {
	if p == nil {
		p = pool.Default
	}
	return &Decoder{pool: p}
}

// Load parses and decodes the file at path. Files at or above MmapThreshold
// are memory-mapped instead of read whole; callers see no difference beyond
// I/O strategy.
func (d *Decoder) Load(path string) error {
	d.begin()
	src, closer, err := Open(path)
	if err != nil {
		return d.fail(err, nil)
	}
	return d.decode(src, closer)
}

// LoadBytes decodes an in-memory file image.
func (d *Decoder) LoadBytes(data []byte) error {
	d.begin()
	return d.decode(NewBytesSource(data), nil)
}

// LoadURL fetches the file over HTTP and decodes it.
func (d *Decoder) LoadURL(ctx context.Context, url string) error {
	d.begin()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return d.fail(wrapError(KindFileReadError, err, "building request for %s", url), nil)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return d.fail(wrapError(KindFileReadError, err, "fetching %s", url), nil)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return d.fail(newError(KindFileReadError, "fetching %s: status %s", url, resp.Status), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return d.fail(wrapError(KindFileReadError, err, "reading body of %s", url), nil)
	}
	return d.decode(NewBytesSource(data), nil)
}

// LoadAsync runs Load on its own goroutine and delivers the result on the
// returned channel. A context already cancelled at call time short-circuits
// without touching the file.
func (d *Decoder) LoadAsync(ctx context.Context, path string) <-chan error {
	out := make(chan error, 1)
	go func() {
		if err := ctx.Err(); err != nil {
			out <- d.fail(wrapError(KindUnknown, err, "load of %s cancelled", path), nil)
			return
		}
		out <- d.Load(path)
	}()
	return out
}

// begin enters the Loading state, superseding any prior result. The
// previous pixel buffer, when pool-backed, goes back for reuse.
func (d *Decoder) begin() {
	d.lock.Do(func() {
		d.state = StateLoading
		d.err = nil
		d.ds = nil
		d.hasDesc = false
		if d.buf != nil {
			d.buf.Release()
			d.buf = nil
		}
		if d.close != nil {
			if err := d.close(); err != nil {
				slog.Debug("closing superseded source", "error", err)
			}
			d.close = nil
		}
	})
}

// decode runs the parse, decompress and extract pipeline and commits the
// outcome. Heavy work happens outside the lock; only the commit is guarded.
func (d *Decoder) decode(src Source, closer func() error) error {
	ds, err := Parse(src)
	if err != nil {
		return d.fail(err, closer)
	}

	desc, descErr := DescriptorFrom(ds)

	var buf *PixelBuffer
	if descErr == nil && ds.PixelInfo.Present {
		buf, err = d.extractPixels(ds, desc)
		if err != nil {
			return d.fail(err, closer)
		}
	}

	d.lock.Do(func() {
		d.state = StateLoaded
		d.ds = ds
		d.desc = desc
		d.hasDesc = descErr == nil
		d.buf = buf
		d.close = closer
		if descErr != nil {
			ds.Warnings = append(ds.Warnings, fmt.Sprintf("pixel descriptor unusable: %v", descErr))
		}
	})
	return nil
}

func (d *Decoder) fail(err error, closer func() error) error {
	if closer != nil {
		closer()
	}
	d.lock.Do(func() {
		d.state = StateFailed
		d.err = err
	})
	return err
}

// extractPixels produces the typed buffer for the dataset's pixel element.
func (d *Decoder) extractPixels(ds *Dataset, desc PixelDescriptor) (*PixelBuffer, error) {
	pi := ds.PixelInfo

	if pi.IsEncapsulated {
		if !ds.Syntax.IsJPEGLossless() {
			return nil, newError(KindUnsupportedTransferSyntax, "cannot decode %s pixel data", ds.Syntax.Name())
		}
		return d.decodeLossless(pi, desc)
	}

	if pi.Length < desc.ExpectedBytes() {
		return nil, newError(KindInvalidPixelData, "pixel data holds %d bytes, descriptor expects %d", pi.Length, desc.ExpectedBytes())
	}
	buf := ReadPixels(pi.Source, desc, ds.Syntax, pi.Offset, pi.Length, nil, d.pool)
	if buf == nil {
		return nil, newError(KindInvalidPixelData, "pixel data shorter than %d expected bytes", desc.ExpectedBytes())
	}
	return buf, nil
}

// decodeLossless runs the encapsulated fragments through the JPEG Lossless
// decompressor and re-enters the shared transform chain.
func (d *Decoder) decodeLossless(pi PixelInfo, desc PixelDescriptor) (*PixelBuffer, error) {
	if len(pi.Fragments) == 0 {
		return nil, newError(KindInvalidPixelData, "encapsulated pixel data has no fragments")
	}

	// Single-frame streams usually arrive as one fragment; multi-fragment
	// frames are one bitstream split at arbitrary boundaries.
	stream := pi.Fragments[0]
	if len(pi.Fragments) > 1 {
		total := 0
		for _, f := range pi.Fragments {
			total += len(f)
		}
		joined := make([]byte, 0, total)
		for _, f := range pi.Fragments {
			joined = append(joined, f...)
		}
		stream = joined
	}

	img, err := jpeglossless.Decode(stream)
	if err != nil {
		return nil, wrapError(KindInvalidPixelData, err, "decompressing lossless pixel data")
	}
	if img.Width != desc.Width || img.Height != desc.Height {
		return nil, newError(KindInvalidPixelData, "decompressed %dx%d, descriptor says %dx%d",
			img.Width, img.Height, desc.Width, desc.Height)
	}
	if img.Components != desc.SamplesPerPixel {
		return nil, newError(KindInvalidPixelData, "decompressed %d components, descriptor says %d",
			img.Components, desc.SamplesPerPixel)
	}

	count := img.Width * img.Height
	switch {
	case img.Components == 3:
		out := d.pool.GetUint8(count * 3)
		for i := 0; i < count; i++ {
			out[i*3] = uint8(img.Planes[0][i])
			out[i*3+1] = uint8(img.Planes[1][i])
			out[i*3+2] = uint8(img.Planes[2][i])
		}
		return &PixelBuffer{RGB8: out[:count*3], pool: d.pool}, nil

	case desc.BitsAllocated == 8:
		out := d.pool.GetUint8(count)
		for i, v := range img.Planes[0] {
			out[i] = uint8(v)
		}
		return FromSamples8(out[:count], desc, d.pool), nil

	default:
		out := d.pool.GetUint16(count)
		copy(out, img.Planes[0])
		return FromSamples16(out[:count], desc, d.pool), nil
	}
}

// Close releases the pixel buffer and any memory-mapped source. The decoder
// returns to Unloaded and can be reused.
func (d *Decoder) Close() error {
	var err error
	d.lock.Do(func() {
		if d.buf != nil {
			d.buf.Release()
			d.buf = nil
		}
		if d.close != nil {
			err = d.close()
			d.close = nil
		}
		d.state = StateUnloaded
		d.err = nil
		d.ds = nil
		d.hasDesc = false
	})
	return err
}

// State returns the current lifecycle phase.
func (d *Decoder) State() State {
	var s State
	d.lock.Do(func() { s = d.state })
	return s
}

// Err returns the failure from the most recent load, or nil.
func (d *Decoder) Err() error {
	var err error
	d.lock.Do(func() { err = d.err })
	return err
}

// Dataset returns the parsed dataset, or nil outside the Loaded state.
func (d *Decoder) Dataset() *Dataset {
	var ds *Dataset
	d.lock.Do(func() {
		if d.state == StateLoaded {
			ds = d.ds
		}
	})
	return ds
}

// Width returns the image width, or 1 when no image is loaded.
func (d *Decoder) Width() int {
	w := 1
	d.lock.Do(func() {
		if d.state == StateLoaded && d.hasDesc {
			w = d.desc.Width
		}
	})
	return w
}

// Height returns the image height, or 1 when no image is loaded.
func (d *Decoder) Height() int {
	h := 1
	d.lock.Do(func() {
		if d.state == StateLoaded && d.hasDesc {
			h = d.desc.Height
		}
	})
	return h
}

// BitsAllocated returns the storage bit depth, or 0 when no image is loaded.
func (d *Decoder) BitsAllocated() int {
	n := 0
	d.lock.Do(func() {
		if d.state == StateLoaded && d.hasDesc {
			n = d.desc.BitsAllocated
		}
	})
	return n
}

// SamplesPerPixel returns 1 for grayscale, 3 for RGB, 0 when unloaded.
func (d *Decoder) SamplesPerPixel() int {
	n := 0
	d.lock.Do(func() {
		if d.state == StateLoaded && d.hasDesc {
			n = d.desc.SamplesPerPixel
		}
	})
	return n
}

// Pixels8 returns the 8-bit grayscale samples. Nil unless the loaded image
// is 8-bit single-sample; exactly one of the three pixel accessors returns
// data for any loaded image.
func (d *Decoder) Pixels8() []uint8 {
	var out []uint8
	d.lock.Do(func() {
		if d.state == StateLoaded && d.buf != nil {
			out = d.buf.Gray8
		}
	})
	return out
}

// Pixels16 returns the 16-bit grayscale samples, or nil.
func (d *Decoder) Pixels16() []uint16 {
	var out []uint16
	d.lock.Do(func() {
		if d.state == StateLoaded && d.buf != nil {
			out = d.buf.Gray16
		}
	})
	return out
}

// PixelsRGB8 returns interleaved RGB triplets, or nil.
func (d *Decoder) PixelsRGB8() []uint8 {
	var out []uint8
	d.lock.Do(func() {
		if d.state == StateLoaded && d.buf != nil {
			out = d.buf.RGB8
		}
	})
	return out
}

// PixelRange returns 16-bit samples for the linear index run [start, end).
// For native little-endian-compatible sources this touches only the
// requested byte span, which keeps tiled access over memory-mapped files
// cheap; otherwise it slices the cached full decode. Nil when out of range
// or when the loaded image is not 16-bit grayscale.
func (d *Decoder) PixelRange(start, end int) []uint16 {
	var out []uint16
	d.lock.Do(func() {
		if d.state != StateLoaded || !d.hasDesc {
			return
		}
		if d.desc.BitsAllocated != 16 || d.desc.IsColor() {
			return
		}
		if start < 0 || end <= start || end > d.desc.PixelCount() {
			return
		}

		pi := d.ds.PixelInfo
		if pi.Present && !pi.IsEncapsulated && !d.desc.Signed && d.desc.Photometric != Monochrome1 {
			rng := PixelRange{Start: start, End: end}
			if buf := ReadPixels(pi.Source, d.desc, d.ds.Syntax, pi.Offset, pi.Length, &rng, d.pool); buf != nil {
				out = buf.Gray16
				return
			}
		}
		if d.buf != nil && d.buf.Gray16 != nil {
			out = d.buf.Gray16[start:end]
		}
	})
	return out
}

// Downsampled16 returns a nearest-neighbor reduction of a 16-bit grayscale
// image such that neither dimension exceeds maxDim, along with the output
// dimensions. Aspect ratio is preserved. Nil for color or 8-bit sources.
func (d *Decoder) Downsampled16(maxDim int) ([]uint16, int, int) {
	var out []uint16
	var w, h int
	d.lock.Do(func() {
		if d.state != StateLoaded || !d.hasDesc || d.buf == nil || d.buf.Gray16 == nil {
			return
		}
		out, w, h = downsample(d.buf.Gray16, d.desc.Width, d.desc.Height, maxDim)
	})
	return out, w, h
}

// Downsampled8 is the 8-bit counterpart of Downsampled16.
func (d *Decoder) Downsampled8(maxDim int) ([]uint8, int, int) {
	var out []uint8
	var w, h int
	d.lock.Do(func() {
		if d.state != StateLoaded || !d.hasDesc || d.buf == nil || d.buf.Gray8 == nil {
			return
		}
		out, w, h = downsample(d.buf.Gray8, d.desc.Width, d.desc.Height, maxDim)
	})
	return out, w, h
}

func downsample[T uint8 | uint16](src []T, width, height, maxDim int) ([]T, int, int) {
	if maxDim <= 0 || width <= 0 || height <= 0 || len(src) < width*height {
		return nil, 0, 0
	}
	if width <= maxDim && height <= maxDim {
		out := make([]T, width*height)
		copy(out, src[:width*height])
		return out, width, height
	}

	outW, outH := width, height
	if width >= height {
		outW = maxDim
		outH = height * maxDim / width
	} else {
		outH = maxDim
		outW = width * maxDim / height
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	out := make([]T, outW*outH)
	for y := 0; y < outH; y++ {
		srcY := y * height / outH
		for x := 0; x < outW; x++ {
			srcX := x * width / outW
			out[y*outW+x] = src[srcY*width+srcX]
		}
	}
	return out, outW, outH
}

// StringValue looks up a tag by (group, element) and renders its value.
// Absent tags yield "", never an error.
func (d *Decoder) StringValue(group, element uint16) string {
	var s string
	d.lock.Do(func() {
		if d.ds != nil {
			s = d.ds.String(tag.New(group, element))
		}
	})
	return s
}

// IntValue looks up a tag and coerces its value to an integer.
func (d *Decoder) IntValue(group, element uint16) (int, bool) {
	var v int
	var ok bool
	d.lock.Do(func() {
		if d.ds != nil {
			v, ok = d.ds.Int(tag.New(group, element))
		}
	})
	return v, ok
}

// FloatValue looks up a tag and coerces its value to a float.
func (d *Decoder) FloatValue(group, element uint16) (float64, bool) {
	var v float64
	var ok bool
	d.lock.Do(func() {
		if d.ds != nil {
			v, ok = d.ds.Float(tag.New(group, element))
		}
	})
	return v, ok
}

// PixelSpacing returns the physical row and column spacing in millimeters
// from PixelSpacing (0028,0030). ok is false when the tag is absent or
// malformed.
func (d *Decoder) PixelSpacing() (row, col float64, ok bool) {
	d.lock.Do(func() {
		if d.ds == nil {
			return
		}
		e, found := d.ds.Get(tag.PixelSpacing)
		if !found {
			return
		}
		vals := e.Floats()
		if len(vals) != 2 {
			return
		}
		row, col, ok = vals[0], vals[1], true
	})
	return row, col, ok
}

// Validation derives the status snapshot from the cached state.
func (d *Decoder) Validation() ValidationStatus {
	var vs ValidationStatus
	d.lock.Do(func() {
		if d.state != StateLoaded {
			return
		}
		vs.IsValid = d.hasDesc
		vs.HasPixels = d.buf != nil && !d.buf.IsEmpty()
		vs.IsCompressed = d.ds.PixelInfo.IsEncapsulated
		if d.hasDesc {
			vs.Width = d.desc.Width
			vs.Height = d.desc.Height
		}
	})
	return vs
}
