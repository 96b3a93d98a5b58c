package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[int](10)

	for i := 0; i < 5; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	for i := 0; i < 5; i++ {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() returned false for item %d", i)
		}
		if got != i {
			t.Errorf("popped %d, want %d", got, i)
		}
	}

	if _, ok := q.TryPop(); ok {
		t.Error("TryPop() on empty queue returned true")
	}
}

func TestQueue_GrowsAndKeepsOrder(t *testing.T) {
	q := New[int](4)

	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	stats := q.Stats()
	if stats.Len != 100 {
		t.Errorf("Len = %d, want 100", stats.Len)
	}
	if stats.Resizes == 0 {
		t.Error("expected at least one resize")
	}

	for i := 0; i < 100; i++ {
		got, _ := q.TryPop()
		if got != i {
			t.Fatalf("popped %d, want %d", got, i)
		}
	}
}

func TestQueue_WrapAroundBeforeGrow(t *testing.T) {
	q := New[int](10)

	// Move head forward so the next grow has to unwrap the ring.
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		q.TryPop()
	}
	for i := 10; i < 20; i++ {
		q.Push(i)
	}

	for want := 10; want < 20; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Fatalf("TryPop() = %d, %v; want %d, true", got, ok, want)
		}
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New[string](1)

	done := make(chan string)
	go func() {
		v, _ := q.Pop()
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("hello")

	select {
	case v := <-done:
		if v != "hello" {
			t.Errorf("Pop() = %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up")
	}
}

func TestQueue_CloseUnblocksPop(t *testing.T) {
	q := New[int](1)

	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("Pop() after Close returned ok=true on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Pop")
	}
}

func TestQueue_CloseKeepsQueuedItems(t *testing.T) {
	q := New[int](4)
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push after Close returned true")
	}

	for _, want := range []int{1, 2} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Errorf("Pop() = %d, %v; want %d, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned true")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New[int](8)
	for i := 0; i < 6; i++ {
		q.Push(i)
	}

	first := q.Drain(4)
	if len(first) != 4 || first[0] != 0 || first[3] != 3 {
		t.Errorf("Drain(4) = %v", first)
	}

	rest := q.Drain(0)
	if len(rest) != 2 || rest[0] != 4 || rest[1] != 5 {
		t.Errorf("Drain(0) = %v", rest)
	}

	if got := q.Drain(0); got != nil {
		t.Errorf("Drain on empty queue = %v, want nil", got)
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int](2)

	const producers = 8
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	stats := q.Stats()
	if stats.Pushed != producers*perProducer {
		t.Errorf("Pushed = %d, want %d", stats.Pushed, producers*perProducer)
	}
	if got := len(q.Drain(0)); got != producers*perProducer {
		t.Errorf("drained %d items, want %d", got, producers*perProducer)
	}
	if q.Stats().Popped != producers*perProducer {
		t.Errorf("Popped = %d", q.Stats().Popped)
	}
}

func TestNew_MinCapacity(t *testing.T) {
	q := New[int](0)
	if q.Stats().Capacity != 1 {
		t.Errorf("Capacity = %d, want 1", q.Stats().Capacity)
	}
	q.Push(1)
	q.Push(2)
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}
