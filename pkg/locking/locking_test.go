package locking

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoped_Do(t *testing.T) {
	var s Scoped
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Do(func() { count++ })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6400, count, "no lost updates under contention")
}

func TestScoped_DoErr(t *testing.T) {
	var s Scoped

	err := s.DoErr(func() error { return assert.AnError })
	require.ErrorIs(t, err, assert.AnError)

	// Lock must have been released despite the error return.
	ran := s.TryDo(func() {})
	assert.True(t, ran)
}

func TestScoped_ReleasesOnPanic(t *testing.T) {
	var s Scoped

	func() {
		defer func() { _ = recover() }()
		s.Do(func() { panic("boom") })
	}()

	// If the panic leaked the lock, this would block forever.
	ran := s.TryDo(func() {})
	assert.True(t, ran, "lock released after panic in guarded closure")
}

func TestScoped_TryDoContended(t *testing.T) {
	var s Scoped

	hold := make(chan struct{})
	release := make(chan struct{})
	go s.Do(func() {
		close(hold)
		<-release
	})
	<-hold

	assert.False(t, s.TryDo(func() {}), "TryDo must not block on a held lock")
	close(release)
}
