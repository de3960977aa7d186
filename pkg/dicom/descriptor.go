package dicom

import (
	"github.com/ThalesMMS/dicom-decoder/pkg/dicom/tag"
)

// Photometric interpretation values the pixel pipeline understands.
const (
	Monochrome1 = "MONOCHROME1" // min sample is white; inverted for display
	Monochrome2 = "MONOCHROME2" // min sample is black
	RGB         = "RGB"
)

// PixelDescriptor is the immutable shape of the pixel data, derived once
// per decode from the Image Pixel module tags.
type PixelDescriptor struct {
	Width           int
	Height          int
	BitsAllocated   int
	BitsStored      int
	HighBit         int
	SamplesPerPixel int
	Signed          bool // PixelRepresentation == 1
	Photometric     string
	PlanarConfig    int
	Frames          int
}

// DescriptorFrom derives a PixelDescriptor from the dataset. Missing
// required tags fail with KindMissingRequiredTag; an implausible
// combination fails with KindInvalidFormat. Neither is fatal to the
// surrounding parse: the dataset itself stays usable for metadata.
func DescriptorFrom(ds *Dataset) (PixelDescriptor, error) {
	var d PixelDescriptor

	rows, okRows := ds.Int(tag.Rows)
	cols, okCols := ds.Int(tag.Columns)
	if !okRows || !okCols {
		return d, newError(KindMissingRequiredTag, "Rows/Columns missing")
	}

	d.Width = cols
	d.Height = rows
	d.BitsAllocated = ds.IntOr(tag.BitsAllocated, 16)
	d.BitsStored = ds.IntOr(tag.BitsStored, d.BitsAllocated)
	d.HighBit = ds.IntOr(tag.HighBit, d.BitsStored-1)
	d.SamplesPerPixel = ds.IntOr(tag.SamplesPerPixel, 1)
	d.Signed = ds.IntOr(tag.PixelRepresentation, 0) == 1
	d.Photometric = ds.String(tag.PhotometricInterpretation)
	d.PlanarConfig = ds.IntOr(tag.PlanarConfiguration, 0)
	d.Frames = ds.IntOr(tag.NumberOfFrames, 1)
	if d.Frames < 1 {
		d.Frames = 1
	}
	if d.Photometric == "" {
		if d.SamplesPerPixel == 3 {
			d.Photometric = RGB
		} else {
			d.Photometric = Monochrome2
		}
	}

	return d, d.Validate()
}

// Validate checks the descriptor against what the extraction paths support.
func (d PixelDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return newError(KindInvalidFormat, "invalid dimensions %dx%d", d.Width, d.Height)
	}
	if d.SamplesPerPixel != 1 && d.SamplesPerPixel != 3 {
		return newError(KindInvalidFormat, "unsupported samples per pixel %d", d.SamplesPerPixel)
	}
	if d.BitsAllocated != 8 && d.BitsAllocated != 16 {
		return newError(KindInvalidFormat, "unsupported bits allocated %d", d.BitsAllocated)
	}
	if d.SamplesPerPixel == 3 && d.BitsAllocated != 8 {
		return newError(KindInvalidFormat, "%d-bit color is not supported", d.BitsAllocated)
	}
	if d.BitsStored > d.BitsAllocated || d.BitsStored <= 0 {
		return newError(KindInvalidFormat, "bits stored %d incompatible with bits allocated %d", d.BitsStored, d.BitsAllocated)
	}
	return nil
}

// PixelCount is samples per frame times frames, not counting color channels.
func (d PixelDescriptor) PixelCount() int {
	return d.Width * d.Height * d.Frames
}

// BytesPerSample is the storage width of one sample.
func (d PixelDescriptor) BytesPerSample() int {
	return d.BitsAllocated / 8
}

// ExpectedBytes is the native byte length of the whole pixel element.
func (d PixelDescriptor) ExpectedBytes() int64 {
	return int64(d.PixelCount()) * int64(d.SamplesPerPixel) * int64(d.BytesPerSample())
}

// MaxValue is the largest representable stored sample value.
func (d PixelDescriptor) MaxValue() int {
	return (1 << d.BitsStored) - 1
}

// IsColor reports whether extraction routes to the interleaved RGB path.
func (d PixelDescriptor) IsColor() bool {
	return d.SamplesPerPixel == 3
}
