package ring

import (
	"testing"
	"testing/quick"
)

func TestPropertyCapacityBound(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		r := New[int](capacity)
		for _, item := range items {
			r.Push(item)
		}
		return r.Len() <= r.Cap()
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestPropertyDroppedEqualsPushedMinusHeld(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		r := New[int](capacity)
		for _, item := range items {
			r.Push(item)
		}
		pushed := int64(len(items))
		return r.Dropped() == pushed-int64(r.Len())
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestPushEviction(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}
	if got, want := r.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
	if got, want := r.Dropped(), int64(3); got != want {
		t.Fatalf("Dropped() = %d, want %d", got, want)
	}
	if got, want := r.Snapshot(), []int{4, 5, 6}; !equalSlice(got, want) {
		t.Fatalf("Snapshot() = %v, want %v", got, want)
	}
	tail, ok := r.Tail()
	if !ok || tail != 6 {
		t.Fatalf("Tail() = (%v, %v), want (6, true)", tail, ok)
	}
}

func TestLastClampsToAvailable(t *testing.T) {
	r := New[int](5)
	r.Push(1)
	r.Push(2)
	got := r.Last(10)
	if !equalSlice(got, []int{1, 2}) {
		t.Fatalf("Last(10) = %v, want [1 2]", got)
	}
}

func TestEmptyRing(t *testing.T) {
	r := New[int](4)
	if r.Snapshot() != nil {
		t.Fatalf("Snapshot() on empty ring should be nil")
	}
	if _, ok := r.Tail(); ok {
		t.Fatalf("Tail() on empty ring should report ok=false")
	}
	if r.Dropped() != 0 {
		t.Fatalf("Dropped() on empty ring should be 0")
	}
}

func TestTrimToKeepsMostRecent(t *testing.T) {
	r := New[int](10)
	for i := 1; i <= 8; i++ {
		r.Push(i)
	}
	r.TrimTo(3)
	if got, want := r.Snapshot(), []int{6, 7, 8}; !equalSlice(got, want) {
		t.Fatalf("Snapshot() after TrimTo(3) = %v, want %v", got, want)
	}
	if got, want := r.Len(), 3; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}

func TestTrimToNoopWhenUnderBound(t *testing.T) {
	r := New[int](10)
	r.Push(1)
	r.Push(2)
	r.TrimTo(5)
	if got, want := r.Snapshot(), []int{1, 2}; !equalSlice(got, want) {
		t.Fatalf("Snapshot() after no-op TrimTo = %v, want %v", got, want)
	}
}

func TestTrimToThenPushStaysWithinCapacity(t *testing.T) {
	r := New[int](5)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	r.TrimTo(2)
	r.Push(6)
	r.Push(7)
	r.Push(8)
	if got, want := r.Len(), 5; got > want {
		t.Fatalf("Len() = %d, want <= %d", got, want)
	}
	if got, want := r.Snapshot(), []int{4, 5, 6, 7, 8}; !equalSlice(got, want) {
		t.Fatalf("Snapshot() after TrimTo then refill = %v, want %v", got, want)
	}
}

func equalSlice(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
