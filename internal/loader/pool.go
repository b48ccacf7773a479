// Package loader turns cache misses into asynchronous disk reads.
package loader

import (
	"log"
	"sync"

	"pcview/internal/points"
	"pcview/internal/queue"
)

// Destination says where a loaded block is headed: a GPU-backed slot or
// the host-side subslot cache.
type Destination int

const (
	DestSlot Destination = iota
	DestSubslot
)

// Job asks a worker to read count points of one block from disk.
type Job struct {
	BlockID int
	SlotIdx int
	Count   int
	Dest    Destination
	Path    string
}

// Result carries the loaded points back to the render thread. Points is
// nil when the read failed or came up short; the render thread draws such
// a block as zero points and retries on a later miss.
type Result struct {
	BlockID int
	SlotIdx int
	Count   int
	Dest    Destination
	Points  []points.Point
}

// Pool runs N workers that consume Jobs and produce Results. Workers never
// fail a job: every popped Job yields exactly one Result.
type Pool struct {
	jobs    *queue.Queue[Job]
	results *queue.Queue[Result]
	wg      sync.WaitGroup
}

// NewPool starts workers goroutines draining the job queue.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs:    queue.New[Job](),
		results: queue.New[Result](),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Enqueue hands a load job to the workers.
func (p *Pool) Enqueue(j Job) {
	p.jobs.Push(j)
}

// NextResult blocks until a worker delivers a result. It reports false
// only after Shutdown once the result queue has drained.
func (p *Pool) NextResult() (Result, bool) {
	return p.results.Pop()
}

// Pending returns the number of undelivered results.
func (p *Pool) Pending() int {
	return p.results.Len()
}

// Shutdown stops the job queue, joins every worker, then stops the result
// queue. Undrained results are dropped by the final consumer.
func (p *Pool) Shutdown() {
	p.jobs.Stop()
	p.wg.Wait()
	p.results.Stop()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		j, ok := p.jobs.Pop()
		if !ok {
			return
		}
		pts, err := points.ReadBlockFile(j.Path, j.Count)
		if err != nil {
			log.Printf("loader: block %d: %v", j.BlockID, err)
			pts = nil
		}
		p.results.Push(Result{
			BlockID: j.BlockID,
			SlotIdx: j.SlotIdx,
			Count:   j.Count,
			Dest:    j.Dest,
			Points:  pts,
		})
	}
}
