package workpool

import (
	"sync/atomic"
	"testing"
)

func TestSubmitWaitRunsAllTasks(t *testing.T) {
	p := New(8)
	defer p.Close()

	var count int64
	const n = 500
	for i := 0; i < n; i++ {
		p.Submit(func() {
			atomic.AddInt64(&count, 1)
		})
	}
	p.Wait()

	if got := atomic.LoadInt64(&count); got != n {
		t.Fatalf("got %d completed tasks, want %d", got, n)
	}
}

func TestResultsFullyVisibleAfterWait(t *testing.T) {
	p := New(4)
	defer p.Close()

	const n = 200
	results := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		p.Submit(func() {
			results[i] = i * i
		})
	}
	p.Wait()

	for i, v := range results {
		if v != i*i {
			t.Fatalf("results[%d] = %d, want %d (lost write across goroutines)", i, v, i*i)
		}
	}
}

func TestWaitCanBeCalledMultipleTimes(t *testing.T) {
	p := New(4)
	defer p.Close()

	var count int64
	p.Submit(func() { atomic.AddInt64(&count, 1) })
	p.Wait()
	p.Submit(func() { atomic.AddInt64(&count, 1) })
	p.Wait()

	if got := atomic.LoadInt64(&count); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestWorkersSizedToCPUs(t *testing.T) {
	p := New(1)
	defer p.Close()

	if p.Workers() <= 0 {
		t.Fatal("expected at least one worker")
	}
}
