package dicom

import (
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

// Source is a random-access byte source for a DICOM file. Both in-memory
// buffers and memory-mapped files satisfy it, which lets the pixel reader
// touch only the byte span it needs on large files.
type Source interface {
	io.ReaderAt
	Size() int64
}

// MmapThreshold is the file size at or above which Open memory-maps the
// file instead of reading it fully. Callers see identical data either way.
// A variable so embedders and tests can move the cutoff.
var MmapThreshold int64 = 64 << 20

type bytesSource struct {
	data []byte
}

// NewBytesSource wraps an in-memory buffer as a Source.
func NewBytesSource(b []byte) Source {
	return &bytesSource{data: b}
}

func (s *bytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *bytesSource) Size() int64 {
	return int64(len(s.data))
}

type mmapSource struct {
	r *mmap.ReaderAt
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	return s.r.ReadAt(p, off)
}

func (s *mmapSource) Size() int64 {
	return int64(s.r.Len())
}

func (s *mmapSource) Close() error {
	return s.r.Close()
}

// Open returns a Source for path. Files of MmapThreshold bytes or more are
// memory-mapped; smaller ones are read whole. The returned closer releases
// the mapping and is a no-op for in-memory sources.
func Open(path string) (Source, func() error, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, wrapError(KindFileNotFound, err, "open %s", path)
		}
		return nil, nil, wrapError(KindFileReadError, err, "stat %s", path)
	}

	if fi.Size() >= MmapThreshold {
		r, err := mmap.Open(path)
		if err != nil {
			return nil, nil, wrapError(KindFileReadError, err, "mmap %s", path)
		}
		src := &mmapSource{r: r}
		return src, src.Close, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, wrapError(KindFileReadError, err, "read %s", path)
	}
	return NewBytesSource(data), func() error { return nil }, nil
}
