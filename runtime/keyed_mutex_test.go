package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_Serializes_Same_Key(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex[int64]()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(1)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	req.Equal(100, counter)
	// Entries are released once idle
	req.Equal(0, locks.Len())
}

func TestKeyedMutex_Different_Keys_Do_Not_Block(t *testing.T) {
	req := require.New(t)
	locks := NewKeyedMutex[int64]()

	// Given key 1 is held
	unlock := locks.Lock(1)
	defer unlock()

	// When another goroutine locks key 2
	done := make(chan struct{})
	go func() {
		release := locks.Lock(2)
		release()
		close(done)
	}()

	// Then it is not blocked by key 1
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("lock on a different key should not wait")
	}
}
