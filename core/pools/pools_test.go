package pools

import (
	"errors"
	"runtime/debug"
	"testing"
)

type testSlot struct {
	fd     int
	resets int
}

func (s *testSlot) Reset() {
	s.fd = -1
	s.resets++
}

func TestSlotPoolAcquireRelease(t *testing.T) {
	sp := NewSlotPool(3, func(int) *testSlot { return &testSlot{fd: -1} })

	if sp.Cap() != 3 {
		t.Fatalf("Expected capacity 3, got %d", sp.Cap())
	}

	seen := make(map[int]bool)
	for i := 0; i < 3; i++ {
		idx, slot, err := sp.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
		if seen[idx] {
			t.Fatalf("Slot %d handed out twice", idx)
		}
		seen[idx] = true
		slot.fd = 100 + idx
	}

	if _, _, err := sp.Acquire(); !errors.Is(err, ErrSlotsExhausted) {
		t.Fatalf("Expected ErrSlotsExhausted, got %v", err)
	}
	if sp.Active() != 3 {
		t.Errorf("Expected 3 active, got %d", sp.Active())
	}

	var slot *testSlot
	sp.Range(func(i int, s *testSlot) {
		if i == 1 {
			slot = s
		}
	})
	if slot == nil || slot.fd != 101 {
		t.Fatalf("Expected slot 1 with fd 101, got %+v", slot)
	}

	sp.Release(1)
	if slot.fd != -1 || slot.resets != 1 {
		t.Errorf("Expected slot reset on release, got %+v", slot)
	}

	// double release is ignored
	sp.Release(1)
	if slot.resets != 1 {
		t.Errorf("Expected a single reset, got %d", slot.resets)
	}

	idx, _, err := sp.Acquire()
	if err != nil || idx != 1 {
		t.Errorf("Expected freed slot 1 to be reused, got %d %v", idx, err)
	}

	stats := sp.Stats()
	if stats.Acquires != 4 || stats.Releases != 1 || stats.Rejects != 1 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSlotPoolRange(t *testing.T) {
	sp := NewSlotPool(4, func(int) *testSlot { return &testSlot{} })
	sp.Acquire()
	idx, _, _ := sp.Acquire()
	sp.Acquire()
	sp.Release(idx)

	count := 0
	sp.Range(func(i int, _ *testSlot) {
		if i == idx {
			t.Errorf("Range visited released slot %d", i)
		}
		count++
	})
	if count != 2 {
		t.Errorf("Expected 2 slots in use, got %d", count)
	}

	// releasing from inside Range empties the table
	sp.Range(func(i int, _ *testSlot) { sp.Release(i) })
	if sp.Active() != 0 {
		t.Errorf("Expected no active slots, got %d", sp.Active())
	}
}

func TestSlotPoolOutOfRange(t *testing.T) {
	sp := NewSlotPool(1, func(int) *testSlot { return &testSlot{} })
	sp.Release(-1)
	sp.Release(5)
	if s := sp.Stats(); s.Releases != 0 {
		t.Errorf("Expected out-of-range releases to be ignored, got %d", s.Releases)
	}
}

func TestBytePoolTiers(t *testing.T) {
	bp := NewBytePool()

	tests := []struct {
		size, wantCap int
	}{
		{100, 2048},
		{2048, 2048},
		{2049, 8192},
		{8192, 8192},
		{16384, 16384},
		{20000, 20000},
	}
	for _, tt := range tests {
		buf := bp.Get(tt.size)
		if len(buf) != tt.size {
			t.Errorf("Get(%d): expected len %d, got %d", tt.size, tt.size, len(buf))
		}
		if cap(buf) != tt.wantCap {
			t.Errorf("Get(%d): expected cap %d, got %d", tt.size, tt.wantCap, cap(buf))
		}
		bp.Put(buf)
	}

	stats := bp.Stats()
	if stats.Gets != uint64(len(tests)) {
		t.Errorf("Expected %d gets, got %d", len(tests), stats.Gets)
	}
	// the oversized buffer is not pooled
	if stats.Puts != uint64(len(tests)-1) {
		t.Errorf("Expected %d puts, got %d", len(tests)-1, stats.Puts)
	}
	bp.Put(nil)
}

func TestApplyGCConfig(t *testing.T) {
	before := debug.SetGCPercent(-1)
	debug.SetGCPercent(before)

	prev := ApplyGCConfig(GCConfig{GOGC: 250, MemoryLimit: 1 << 30})
	if got := debug.SetGCPercent(250); got != 250 {
		t.Errorf("Expected GOGC 250, got %d", got)
	}
	if got := debug.SetMemoryLimit(-1); got != 1<<30 {
		t.Errorf("Expected memory limit %d, got %d", 1<<30, got)
	}

	prev.Restore()
	if got := debug.SetGCPercent(before); got != before {
		t.Errorf("Expected GOGC restored to %d, got %d", before, got)
	}
}

func BenchmarkSlotPool(b *testing.B) {
	sp := NewSlotPool(1024, func(int) *testSlot { return &testSlot{} })
	for i := 0; i < b.N; i++ {
		idx, _, _ := sp.Acquire()
		sp.Release(idx)
	}
}
