package imaging

// Histogram holds single-pass statistics over a 16-bit sample population.
// Bins cover the full 16-bit domain, 256 values per bin.
type Histogram struct {
	Bins  [256]int
	Min   uint16
	Max   uint16
	Mean  float64
	Count int
}

// ComputeHistogram traverses the samples exactly once, accumulating bins,
// extrema and the mean together.
func ComputeHistogram(samples []uint16) *Histogram {
	if len(samples) == 0 {
		return nil
	}

	h := &Histogram{Min: samples[0], Max: samples[0], Count: len(samples)}
	var sum uint64
	for _, v := range samples {
		h.Bins[v>>8]++
		if v < h.Min {
			h.Min = v
		}
		if v > h.Max {
			h.Max = v
		}
		sum += uint64(v)
	}
	h.Mean = float64(sum) / float64(len(samples))
	return h
}

// OptimalWindow derives a window from the sample population by trimming 1%
// off each histogram tail, which keeps hot pixels and padding from blowing
// out the contrast range.
func OptimalWindow(samples []uint16) (center, width float64) {
	h := ComputeHistogram(samples)
	if h == nil {
		return 0, 0
	}

	trim := h.Count / 100

	lowBin := 0
	acc := 0
	for i, n := range h.Bins {
		acc += n
		if acc > trim {
			lowBin = i
			break
		}
	}

	highBin := 255
	acc = 0
	for i := 255; i >= 0; i-- {
		acc += h.Bins[i]
		if acc > trim {
			highBin = i
			break
		}
	}

	low := float64(lowBin) * 256
	high := float64(highBin)*256 + 255
	width = high - low
	if width < 1 {
		width = 1
	}
	return low + width/2, width
}
