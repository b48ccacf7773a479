package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestStreamCacheEvictionKeepsData(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileStreamCache(2)
	if err != nil {
		t.Fatal(err)
	}

	path := func(id int) string {
		return filepath.Join(dir, fmt.Sprintf("block_%04d.bin", id))
	}

	// Rotate through more writers than the pool holds, twice. Every write
	// after an eviction must append, never truncate.
	for round := 0; round < 2; round++ {
		for id := 0; id < 5; id++ {
			w, err := cache.Get(id, path(id))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := fmt.Fprintf(w, "r%d;", round); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := cache.CloseAll(); err != nil {
		t.Fatal(err)
	}

	for id := 0; id < 5; id++ {
		data, err := os.ReadFile(path(id))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "r0;r1;" {
			t.Errorf("block %d contents %q, data lost across eviction", id, data)
		}
	}
}

func TestStreamCacheReusesOpenWriter(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileStreamCache(4)
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, "block_0000.bin")

	w1, err := cache.Get(0, p)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := cache.Get(0, p)
	if err != nil {
		t.Fatal(err)
	}
	if w1 != w2 {
		t.Fatal("second Get reopened an already-cached writer")
	}
	if err := cache.CloseAll(); err != nil {
		t.Fatal(err)
	}
}

func TestStreamCacheCloseAllThenReopen(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileStreamCache(2)
	if err != nil {
		t.Fatal(err)
	}
	p := filepath.Join(dir, "block_0001.bin")

	w, err := cache.Get(1, p)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(w, "a")
	if err := cache.CloseAll(); err != nil {
		t.Fatal(err)
	}

	w, err = cache.Get(1, p)
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprint(w, "b")
	if err := cache.CloseAll(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "ab" {
		t.Fatalf("contents %q", data)
	}
}
