package pools

import (
	"errors"
	"sync/atomic"
)

// ErrSlotsExhausted is returned when every slot is in use
var ErrSlotsExhausted = errors.New("no free slot")

// Slot is the interface for per-slot state held by a SlotPool
type Slot interface {
	// Reset returns the slot to its idle state
	Reset()
}

// SlotPool is a fixed-capacity table of reusable slots with stable indices.
// Acquire and Release are O(1). It is not safe for concurrent use; the
// counters may be read from any goroutine.
type SlotPool[T Slot] struct {
	slots []T
	inUse []bool
	free  []int

	acquires atomic.Uint64
	releases atomic.Uint64
	rejects  atomic.Uint64
	active   atomic.Int64
}

// NewSlotPool creates a pool of capacity slots built by newFunc
func NewSlotPool[T Slot](capacity int, newFunc func(idx int) T) *SlotPool[T] {
	sp := &SlotPool[T]{
		slots: make([]T, capacity),
		inUse: make([]bool, capacity),
		free:  make([]int, capacity),
	}
	for i := range sp.slots {
		sp.slots[i] = newFunc(i)
		// lowest index is handed out first
		sp.free[i] = capacity - 1 - i
	}
	return sp
}

// Acquire takes a free slot
func (sp *SlotPool[T]) Acquire() (int, T, error) {
	n := len(sp.free)
	if n == 0 {
		sp.rejects.Add(1)
		var zero T
		return -1, zero, ErrSlotsExhausted
	}
	idx := sp.free[n-1]
	sp.free = sp.free[:n-1]
	sp.inUse[idx] = true

	sp.acquires.Add(1)
	sp.active.Add(1)
	return idx, sp.slots[idx], nil
}

// Release resets the slot and returns it to the free list.
// Releasing an idle slot is a no-op.
func (sp *SlotPool[T]) Release(idx int) {
	if idx < 0 || idx >= len(sp.slots) || !sp.inUse[idx] {
		return
	}
	sp.slots[idx].Reset()
	sp.inUse[idx] = false
	sp.free = append(sp.free, idx)

	sp.releases.Add(1)
	sp.active.Add(-1)
}

// Range calls fn for every slot in use. fn may release the slot it is given.
func (sp *SlotPool[T]) Range(fn func(idx int, slot T)) {
	for i, used := range sp.inUse {
		if used {
			fn(i, sp.slots[i])
		}
	}
}

// Cap returns the capacity
func (sp *SlotPool[T]) Cap() int {
	return len(sp.slots)
}

// Active returns the number of slots in use
func (sp *SlotPool[T]) Active() int {
	return int(sp.active.Load())
}

// SlotPoolStats reports pool usage
type SlotPoolStats struct {
	Acquires uint64
	Releases uint64
	Rejects  uint64
}

// Stats returns pool statistics
func (sp *SlotPool[T]) Stats() SlotPoolStats {
	return SlotPoolStats{
		Acquires: sp.acquires.Load(),
		Releases: sp.releases.Load(),
		Rejects:  sp.rejects.Load(),
	}
}
