package keyedmutex

import (
	"sync"
	"testing"
)

func TestSameKeySerialises(t *testing.T) {
	km := New()
	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("user-1/prod-1")
			defer km.Unlock("user-1/prod-1")
			counter++
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("counter = %d, want %d", counter, workers)
	}
}

func TestDistinctKeysDoNotBlock(t *testing.T) {
	km := New()
	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}

func TestEntriesReleased(t *testing.T) {
	km := New()
	km.Lock("a")
	km.Unlock("a")
	if len(km.entries) != 0 {
		t.Fatalf("entries not released: %d remain", len(km.entries))
	}
}
