package ingest

import (
	"fmt"
	"log"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// FileStreamCache keeps a bounded pool of append-mode block file writers.
// Opening all grid cells at once can hit the OS descriptor limit, so the
// least recently used writer is closed when the pool is full; a later Get
// for an evicted id reopens the file in append mode and no data is lost.
type FileStreamCache struct {
	files   *lru.Cache[int, *os.File]
	lastErr error
}

// NewFileStreamCache returns a cache holding at most cap open writers.
func NewFileStreamCache(cap int) (*FileStreamCache, error) {
	c := &FileStreamCache{}
	files, err := lru.NewWithEvict[int, *os.File](cap, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.files = files
	return c, nil
}

// Get returns the open writer for id, marking it most recently used. A
// missing entry opens path in create/append mode and is then added to the
// pool; when that add takes the pool over capacity, the LRU writer is
// evicted and closed. Eviction happens after the open, so while Get runs
// one descriptor beyond capacity can be open.
func (c *FileStreamCache) Get(id int, path string) (*os.File, error) {
	if f, ok := c.files.Get(id); ok {
		return f, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open block writer %s: %w", path, err)
	}
	c.files.Add(id, f)
	return f, nil
}

// CloseAll flushes and closes every resident writer and clears the pool.
// It returns the first close error seen, including ones from earlier
// evictions.
func (c *FileStreamCache) CloseAll() error {
	c.files.Purge()
	err := c.lastErr
	c.lastErr = nil
	return err
}

func (c *FileStreamCache) onEvict(id int, f *os.File) {
	if err := f.Close(); err != nil {
		log.Printf("ingest: close block writer %d: %v", id, err)
		if c.lastErr == nil {
			c.lastErr = fmt.Errorf("close block writer %d: %w", id, err)
		}
	}
}
