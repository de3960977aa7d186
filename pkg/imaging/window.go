// Package imaging maps native-domain samples to the 8-bit display domain:
// window/level contrast mapping, histogram statistics, anatomical presets
// and Hounsfield unit conversion.
package imaging

import (
	"runtime"
	"sync"
)

// Backend selects the contrast-mapping implementation.
type Backend int

const (
	// BackendVector is the chunk-unrolled single-goroutine path and the
	// default.
	BackendVector Backend = iota

	// BackendParallel stripes the sample slice across worker goroutines.
	BackendParallel

	// BackendAuto picks Parallel for large images and Vector otherwise.
	BackendAuto
)

// parallelCutoff is the pixel count (800x800) at which Auto switches to the
// parallel backend.
const parallelCutoff = 640_000

// ApplyWindowLevel maps 16-bit samples to display bytes with a linear
// window: display = clamp(((v - (center - width/2)) / width) * 255, 0, 255).
// Returns nil for empty input or width <= 0. Both backends agree within
// one display level on identical input.
func ApplyWindowLevel(samples []uint16, center, width float64, backend Backend) []uint8 {
	if len(samples) == 0 || width <= 0 {
		return nil
	}

	out := make([]uint8, len(samples))
	lower := center - width/2
	scale := 255.0 / width

	switch backend {
	case BackendParallel:
		windowParallel(out, samples, lower, scale)
	case BackendAuto:
		if len(samples) >= parallelCutoff && runtime.GOMAXPROCS(0) > 1 {
			windowParallel(out, samples, lower, scale)
		} else {
			windowVector(out, samples, lower, scale)
		}
	default:
		windowVector(out, samples, lower, scale)
	}
	return out
}

// windowVector is the unrolled CPU path. The 8-wide body keeps the loop
// free of per-element bounds checks on the hot span.
func windowVector(out []uint8, samples []uint16, lower, scale float64) {
	n := len(samples)
	i := 0
	for ; i+8 <= n; i += 8 {
		s := samples[i : i+8 : i+8]
		d := out[i : i+8 : i+8]
		d[0] = windowOne(s[0], lower, scale)
		d[1] = windowOne(s[1], lower, scale)
		d[2] = windowOne(s[2], lower, scale)
		d[3] = windowOne(s[3], lower, scale)
		d[4] = windowOne(s[4], lower, scale)
		d[5] = windowOne(s[5], lower, scale)
		d[6] = windowOne(s[6], lower, scale)
		d[7] = windowOne(s[7], lower, scale)
	}
	for ; i < n; i++ {
		out[i] = windowOne(samples[i], lower, scale)
	}
}

// windowParallel stripes the slice across GOMAXPROCS workers. Each stripe
// runs the same vector kernel, so the two backends differ only in
// scheduling, never in arithmetic.
func windowParallel(out []uint8, samples []uint16, lower, scale float64) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(samples) {
		workers = len(samples)
	}
	stripe := (len(samples) + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < len(samples); start += stripe {
		end := start + stripe
		if end > len(samples) {
			end = len(samples)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			windowVector(out[lo:hi], samples[lo:hi], lower, scale)
		}(start, end)
	}
	wg.Wait()
}

func windowOne(v uint16, lower, scale float64) uint8 {
	d := (float64(v) - lower) * scale
	if d <= 0 {
		return 0
	}
	if d >= 255 {
		return 255
	}
	return uint8(d)
}
