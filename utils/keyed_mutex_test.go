package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("event:1")
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max holders of one key = %d, want 1", maxInside)
	}
	if len(km.locks) != 0 {
		t.Errorf("lock table has %d entries after release, want 0", len(km.locks))
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	unlockA := km.Lock("guest:1")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("guest:2")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Lock(guest:2) blocked while guest:1 was held")
	}
}

func TestKeyedMutex_ZeroValue(t *testing.T) {
	var km KeyedMutex
	unlock := km.Lock("guest:1")
	unlock()
	if len(km.locks) != 0 {
		t.Errorf("entries after unlock = %d, want 0", len(km.locks))
	}
}
