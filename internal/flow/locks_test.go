package flow

import (
	"sync"
	"testing"
)

func TestIdentityLocksSerializeSameKey(t *testing.T) {
	locks := newIdentityLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.acquire("acc:owner:flow")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}
}

func TestIdentityLocksIndependentKeys(t *testing.T) {
	locks := newIdentityLocks()

	unlockA := locks.acquire("a:1:f")
	defer unlockA()

	// A different identity must not block behind the first.
	done := make(chan struct{})
	go func() {
		unlockB := locks.acquire("b:2:f")
		unlockB()
		close(done)
	}()
	<-done
}
