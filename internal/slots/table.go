package slots

import (
	"pcview/internal/graphics"
	"pcview/internal/loader"
	"pcview/internal/points"
)

// Table is the fixed array of GPU-backed slots. Each frame PlanAndLoad
// rebinds slot i to the i-th most important block, consulting the subslot
// tier before falling back to a disk load, and DrawFrame draws residents
// then drains exactly as many results as jobs were issued.
type Table struct {
	dev      graphics.Device
	pool     *loader.Pool
	cache    *SubslotsCache // nil when the subslot tier is disabled
	slots    []Slot
	pointCap int

	warmedUp  bool
	planK     int
	missCount int
	scratch   []byte

	// Frame stats for the overlay, rebuilt by DrawFrame.
	Stats FrameStats
}

// FrameStats summarizes one frame of slot activity.
type FrameStats struct {
	Hits   int
	Misses int
	Loaded int
	Cached int
}

// NewTable allocates numSlots GPU buffers of pointCap points each.
func NewTable(dev graphics.Device, pool *loader.Pool, cache *SubslotsCache, numSlots, pointCap int) (*Table, error) {
	t := &Table{
		dev:      dev,
		pool:     pool,
		cache:    cache,
		slots:    make([]Slot, numSlots),
		pointCap: pointCap,
	}
	for i := range t.slots {
		buf, err := dev.CreateVertexBuffer(pointCap * points.PointSize)
		if err != nil {
			return nil, err
		}
		t.slots[i] = emptySlot(buf)
	}
	return t, nil
}

// NumSlots returns the size of the slot table.
func (t *Table) NumSlots() int {
	return len(t.slots)
}

// Slot returns a copy of the slot at index i.
func (t *Table) Slot(i int) Slot {
	return t.slots[i]
}

// PlanAndLoad walks the top-K of the priority-sorted block list and makes
// slot i the rendering target for blocks[i]: an in-slot swap when some
// slot already holds the block, a promotion from the subslot tier when it
// is cached there, otherwise an async load job. Returns the number of jobs
// issued; DrawFrame will drain exactly that many results.
func (t *Table) PlanAndLoad(sorted []points.Block) int {
	visible := 0
	for i := range sorted {
		if !sorted[i].Visible {
			break
		}
		visible++
	}

	k := len(t.slots)
	if visible < k {
		k = visible
	}
	t.planK = k
	t.missCount = 0

	for i := 0; i < k; i++ {
		b := &sorted[i]

		// In-slot hit: the block is resident somewhere, swap it into place.
		// The GPU buffer travels with its contents, so nothing re-uploads.
		if j := t.findSlot(b.ID); j >= 0 {
			t.slots[i], t.slots[j] = t.slots[j], t.slots[i]
			continue
		}

		// Subslot hit: promote the cached entry into this slot and demote
		// the current occupant. The slot's buffer stays put; the promoted
		// points upload into it.
		if t.cache != nil {
			if cached, ok := t.cache.Extract(b.ID); ok {
				demoted := t.slots[i]
				buf := demoted.Buffer
				if demoted.BlockID != NoBlock && demoted.Status == StatusLoaded {
					demoted.Buffer = 0
					t.cache.Put(demoted) // evicted entry, if any, is discarded
				}
				cached.Buffer = buf
				cached.Status = StatusLoaded
				t.upload(&cached)
				t.slots[i] = cached
				continue
			}
		}

		// Miss: overwrite this slot asynchronously, demoting whatever
		// loaded block it held into the subslot tier first. The disk file
		// stays authoritative, so anything the tier evicts is just dropped.
		if t.cache != nil {
			demoted := t.slots[i]
			if demoted.BlockID != NoBlock && demoted.Status == StatusLoaded {
				demoted.Buffer = 0
				t.cache.Put(demoted)
			}
		}
		count := b.Count
		if count > t.pointCap {
			count = t.pointCap
		}
		t.pool.Enqueue(loader.Job{
			BlockID: b.ID,
			SlotIdx: i,
			Count:   count,
			Dest:    loader.DestSlot,
			Path:    b.Path,
		})
		t.slots[i].BlockID = b.ID
		t.slots[i].Count = 0
		t.slots[i].Status = StatusLoading
		t.missCount++
	}

	// One-time warmup: prime the subslot tier with the next-ranked blocks
	// so camera motion right after startup has a hit surface.
	if t.cache != nil && !t.warmedUp && visible > 0 {
		t.warmedUp = true
		queued := 0
		for i := k; i < len(sorted) && queued < t.cache.Cap(); i++ {
			b := &sorted[i]
			count := b.Count
			if count > t.pointCap {
				count = t.pointCap
			}
			t.pool.Enqueue(loader.Job{
				BlockID: b.ID,
				SlotIdx: -1,
				Count:   count,
				Dest:    loader.DestSubslot,
				Path:    b.Path,
			})
			t.missCount++
			queued++
		}
	}

	return t.missCount
}

// DrawFrame draws every slot already bound and loaded for this frame's
// plan, then drains exactly the results PlanAndLoad asked for, uploading
// and drawing slot results as they land and filing subslot results into
// the cache.
func (t *Table) DrawFrame(sorted []points.Block) {
	stats := FrameStats{}

	for i := 0; i < t.planK; i++ {
		s := &t.slots[i]
		if s.Status == StatusLoaded && s.BlockID == sorted[i].ID {
			t.dev.DrawPoints(s.Buffer, s.Count)
			stats.Hits++
		}
	}

	for n := 0; n < t.missCount; n++ {
		r, ok := t.pool.NextResult()
		if !ok {
			break
		}
		switch r.Dest {
		case loader.DestSlot:
			// Late results win: install at the recorded index even if a
			// newer plan rebound the slot since the job was issued.
			s := &t.slots[r.SlotIdx]
			s.BlockID = r.BlockID
			s.Points = r.Points
			s.Count = len(r.Points)
			s.Status = StatusLoaded
			t.upload(s)
			t.dev.DrawPoints(s.Buffer, s.Count)
			stats.Misses++
		case loader.DestSubslot:
			if t.cache == nil {
				break
			}
			t.cache.Put(Slot{
				BlockID: r.BlockID,
				Count:   len(r.Points),
				Status:  StatusLoaded,
				Points:  r.Points,
			})
		}
	}
	t.missCount = 0

	for i := range t.slots {
		if t.slots[i].Status == StatusLoaded {
			stats.Loaded++
		}
	}
	if t.cache != nil {
		stats.Cached = t.cache.Len()
	}
	t.Stats = stats
}

// findSlot returns the index of the slot bound to blockID, or -1.
func (t *Table) findSlot(blockID int) int {
	for i := range t.slots {
		if t.slots[i].BlockID == blockID {
			return i
		}
	}
	return -1
}

func (t *Table) upload(s *Slot) {
	if s.Count == 0 {
		return
	}
	t.scratch = points.AppendPoints(t.scratch[:0], s.Points[:s.Count])
	t.dev.UpdateVertexBufferSub(s.Buffer, 0, t.scratch)
}
