package slots

import "testing"

func entry(id int) Slot {
	return Slot{BlockID: id, Count: id * 10, Status: StatusLoaded}
}

func TestLRUEvictionOrder(t *testing.T) {
	c := NewSubslotsCache(3)
	c.Put(entry(1)) // a
	c.Put(entry(2)) // b
	c.Put(entry(3)) // c
	if !c.Touch(1) {
		t.Fatal("touch of resident entry failed")
	}

	evicted, ok := c.Put(entry(4)) // d
	if !ok {
		t.Fatal("put over capacity evicted nothing")
	}
	if evicted.BlockID != 2 {
		t.Fatalf("evicted block %d, want 2 (the LRU after touch)", evicted.BlockID)
	}

	want := []int{4, 1, 3} // MRU to LRU: d, a, c
	got := c.Keys()
	if len(got) != len(want) {
		t.Fatalf("cache holds %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestPutReplacesInPlace(t *testing.T) {
	c := NewSubslotsCache(2)
	c.Put(entry(1))
	c.Put(entry(2))

	updated := entry(1)
	updated.Count = 999
	if _, ok := c.Put(updated); ok {
		t.Fatal("replacing a resident entry evicted something")
	}
	if c.Len() != 2 {
		t.Fatalf("len %d", c.Len())
	}
	s, ok := c.Extract(1)
	if !ok || s.Count != 999 {
		t.Fatalf("payload not replaced: %+v", s)
	}
}

func TestExtractRemoves(t *testing.T) {
	c := NewSubslotsCache(2)
	c.Put(entry(5))

	s, ok := c.Extract(5)
	if !ok || s.BlockID != 5 {
		t.Fatalf("extract returned %+v %v", s, ok)
	}
	if c.Contains(5) || c.Len() != 0 {
		t.Fatal("entry still resident after extract")
	}
	if _, ok := c.Extract(5); ok {
		t.Fatal("second extract succeeded")
	}
}

func TestTouchMissing(t *testing.T) {
	c := NewSubslotsCache(2)
	if c.Touch(404) {
		t.Fatal("touch of absent entry reported true")
	}
}

func TestClear(t *testing.T) {
	c := NewSubslotsCache(4)
	for i := 0; i < 4; i++ {
		c.Put(entry(i))
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("len %d after clear", c.Len())
	}
	if _, ok := c.Extract(0); ok {
		t.Fatal("entry survived clear")
	}
	// The cache stays usable.
	c.Put(entry(9))
	if c.Len() != 1 {
		t.Fatal("cache unusable after clear")
	}
}
