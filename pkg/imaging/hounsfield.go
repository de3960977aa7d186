package imaging

// PixelToHU converts a stored pixel value to Hounsfield units using the
// dataset's rescale slope and intercept (0028,1053 / 0028,1052).
func PixelToHU(pixel, slope, intercept float64) float64 {
	return pixel*slope + intercept
}

// HUToPixel inverts PixelToHU. A zero slope cannot be inverted and reports
// false.
func HUToPixel(hu, slope, intercept float64) (float64, bool) {
	if slope == 0 {
		return 0, false
	}
	return (hu - intercept) / slope, true
}
