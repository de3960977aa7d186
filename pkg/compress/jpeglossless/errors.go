package jpeglossless

import "errors"

// Decode failures. All map to the decoder façade's invalid-pixel-data
// class; none of them may surface as a panic, however damaged the input.
var (
	ErrInvalidSOI       = errors.New("jpeglossless: missing SOI marker")
	ErrMissingSOF       = errors.New("jpeglossless: missing SOF3 frame header")
	ErrMissingSOS       = errors.New("jpeglossless: missing start-of-scan marker")
	ErrInvalidFrame     = errors.New("jpeglossless: malformed frame header")
	ErrInvalidDHT       = errors.New("jpeglossless: malformed Huffman table segment")
	ErrInvalidScan      = errors.New("jpeglossless: malformed scan header")
	ErrHuffmanDecode    = errors.New("jpeglossless: no Huffman code matches input")
	ErrTruncated        = errors.New("jpeglossless: truncated bitstream")
	ErrUnexpectedMarker = errors.New("jpeglossless: marker inside entropy-coded data")
	ErrNotLossless      = errors.New("jpeglossless: stream is not a lossless (SOF3) JPEG")
)
