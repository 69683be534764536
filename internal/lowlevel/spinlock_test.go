package lowlevel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpinLock_MutualExclusion(t *testing.T) {
	var (
		lock    SpinLock
		counter int
		wg      sync.WaitGroup
	)
	const goroutines, iterations = 16, 2000
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				lock.Lock()
				counter++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*iterations, counter)
}

func TestSpinLock_TryLock(t *testing.T) {
	var lock SpinLock
	require.True(t, lock.TryLock())
	assert.False(t, lock.TryLock())
	lock.Unlock()
	assert.True(t, lock.TryLock())
	lock.Unlock()
}

func TestSpinLock_UnlockUnlockedPanics(t *testing.T) {
	var lock SpinLock
	assert.Panics(t, func() { lock.Unlock() })
}

func TestRWSpinLock_ReadersShareWritersExclude(t *testing.T) {
	var (
		lock  RWSpinLock
		value int
		wg    sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				lock.Lock()
				value++
				lock.Unlock()
			}
		}()
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				lock.RLock()
				_ = value
				lock.RUnlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4000, value)

	lock.RLock()
	lock.RLock()
	lock.RUnlock()
	lock.RUnlock()
	lock.Lock()
	lock.Unlock()
}
