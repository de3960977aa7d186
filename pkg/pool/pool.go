// Package pool provides a bucketed, type-keyed allocator for pixel buffers.
//
// Decoding medical images churns through large, similarly sized slices.
// The pool rounds each request up to a fixed bucket so a 510x510 decode can
// reuse the buffer released by a 512x512 one. Buckets are LIFO: the most
// recently released buffer is the most likely to still be cache-warm.
package pool

import (
	"github.com/ThalesMMS/dicom-decoder/pkg/locking"
)

// Bucket ladder, in elements. Requests above the largest rung get an
// overflow bucket sized exactly to the request.
var bucketLadder = [...]int{
	256 * 256,
	512 * 512,
	1024 * 1024,
	2048 * 2048,
}

// bucketFor rounds n up to the smallest ladder rung that fits, or returns
// n itself for oversized requests.
func bucketFor(n int) int {
	for _, b := range bucketLadder {
		if n <= b {
			return b
		}
	}
	return n
}

// Stats is a snapshot of pool counters. Hits and Misses are monotonic until
// ResetStatistics. PeakSize never decreases except on reset.
type Stats struct {
	Hits        uint64
	Misses      uint64
	CurrentSize int
	PeakSize    int
}

// stack is a LIFO of released buffers for one (type, bucket) pair.
type stack[T any] struct {
	bufs [][]T
}

func (s *stack[T]) push(b []T) {
	s.bufs = append(s.bufs, b)
}

func (s *stack[T]) pop() ([]T, bool) {
	n := len(s.bufs)
	if n == 0 {
		return nil, false
	}
	b := s.bufs[n-1]
	s.bufs[n-1] = nil
	s.bufs = s.bufs[:n-1]
	return b, true
}

// class holds all buckets for one element type.
type class[T any] struct {
	buckets map[int]*stack[T]
}

func newClass[T any]() *class[T] {
	return &class[T]{buckets: make(map[int]*stack[T])}
}

func (c *class[T]) get(bucket int) ([]T, bool) {
	st, ok := c.buckets[bucket]
	if !ok {
		return nil, false
	}
	return st.pop()
}

func (c *class[T]) put(b []T) {
	bucket := len(b)
	st, ok := c.buckets[bucket]
	if !ok {
		st = &stack[T]{}
		c.buckets[bucket] = st
	}
	st.push(b)
}

func (c *class[T]) size() int {
	n := 0
	for _, st := range c.buckets {
		n += len(st.bufs)
	}
	return n
}

func (c *class[T]) clear() int {
	n := c.size()
	c.buckets = make(map[int]*stack[T])
	return n
}

// dropUpTo discards at most want buffers from this class, newest first,
// and returns how many it dropped.
func (c *class[T]) dropUpTo(want int) int {
	dropped := 0
	for _, st := range c.buckets {
		for dropped < want {
			if _, ok := st.pop(); !ok {
				break
			}
			dropped++
		}
		if dropped == want {
			break
		}
	}
	return dropped
}

// Pool recycles pixel buffers across decodes. All methods are safe for
// concurrent use. The zero value is not usable; call New.
type Pool struct {
	lock locking.Scoped

	u8    *class[uint8]
	u16   *class[uint16]
	s16   *class[int16]
	f32   *class[float32]
	bytes *class[byte]

	stats Stats
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{
		u8:    newClass[uint8](),
		u16:   newClass[uint16](),
		s16:   newClass[int16](),
		f32:   newClass[float32](),
		bytes: newClass[byte](),
	}
}

// Default is the process-wide pool used by decoders that are not handed an
// explicit one. Host applications own its lifetime.
var Default = New()

func acquire[T any](p *Pool, c *class[T], count int) []T {
	if count <= 0 {
		return nil
	}
	bucket := bucketFor(count)
	var buf []T
	p.lock.Do(func() {
		if b, ok := c.get(bucket); ok {
			p.stats.Hits++
			p.stats.CurrentSize--
			buf = b
			return
		}
		p.stats.Misses++
	})
	if buf == nil {
		buf = make([]T, bucket)
	}
	return buf
}

func release[T any](p *Pool, c *class[T], buf []T) {
	if len(buf) == 0 {
		return
	}
	p.lock.Do(func() {
		c.put(buf)
		p.stats.CurrentSize++
		if p.stats.CurrentSize > p.stats.PeakSize {
			p.stats.PeakSize = p.stats.CurrentSize
		}
	})
}

// GetUint8 returns a buffer of at least count elements. The returned length
// is the bucket size, never less than count.
func (p *Pool) GetUint8(count int) []uint8 { return acquire(p, p.u8, count) }

// PutUint8 returns a buffer to the pool. The caller must not touch it again.
func (p *Pool) PutUint8(buf []uint8) { release(p, p.u8, buf) }

// GetUint16 returns a 16-bit grayscale buffer of at least count elements.
func (p *Pool) GetUint16(count int) []uint16 { return acquire(p, p.u16, count) }

// PutUint16 returns a buffer to the pool.
func (p *Pool) PutUint16(buf []uint16) { release(p, p.u16, buf) }

// GetInt16 returns a signed 16-bit buffer of at least count elements.
func (p *Pool) GetInt16(count int) []int16 { return acquire(p, p.s16, count) }

// PutInt16 returns a buffer to the pool.
func (p *Pool) PutInt16(buf []int16) { release(p, p.s16, buf) }

// GetFloat32 returns a float buffer of at least count elements.
func (p *Pool) GetFloat32(count int) []float32 { return acquire(p, p.f32, count) }

// PutFloat32 returns a buffer to the pool.
func (p *Pool) PutFloat32(buf []float32) { release(p, p.f32, buf) }

// GetBytes returns a raw byte buffer of at least count bytes.
func (p *Pool) GetBytes(count int) []byte { return acquire(p, p.bytes, count) }

// PutBytes returns a buffer to the pool.
func (p *Pool) PutBytes(buf []byte) { release(p, p.bytes, buf) }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	var s Stats
	p.lock.Do(func() { s = p.stats })
	return s
}

// Clear discards every pooled buffer. Hit and miss counters are untouched.
func (p *Pool) Clear() {
	p.lock.Do(func() {
		p.u8.clear()
		p.u16.clear()
		p.s16.clear()
		p.f32.clear()
		p.bytes.clear()
		p.stats.CurrentSize = 0
	})
}

// ResetStatistics zeroes the hit and miss counters without discarding
// buffers, and collapses the peak to the current size.
func (p *Pool) ResetStatistics() {
	p.lock.Do(func() {
		p.stats.Hits = 0
		p.stats.Misses = 0
		p.stats.PeakSize = p.stats.CurrentSize
	})
}

// ReleaseHalf discards floor(n/2) pooled buffers. Intended for memory
// pressure callbacks.
func (p *Pool) ReleaseHalf() {
	p.lock.Do(func() {
		want := p.stats.CurrentSize / 2
		dropped := 0
		for _, c := range []interface{ dropUpTo(int) int }{p.u8, p.u16, p.s16, p.f32, p.bytes} {
			if dropped >= want {
				break
			}
			dropped += c.dropUpTo(want - dropped)
		}
		p.stats.CurrentSize -= dropped
	})
}
