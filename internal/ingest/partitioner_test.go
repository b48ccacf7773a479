package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"pcview/internal/points"
)

type plyVertex struct {
	x, y, z float64
	r, g, b uint8
}

func writePLY(t *testing.T, dir string, verts []plyVertex) string {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ply\nformat binary_little_endian 1.0\nelement vertex %d\n", len(verts))
	buf.WriteString("property double x\nproperty double y\nproperty double z\n")
	buf.WriteString("property uchar red\nproperty uchar green\nproperty uchar blue\n")
	buf.WriteString("end_header\n")
	for _, v := range verts {
		binary.Write(&buf, binary.LittleEndian, v.x)
		binary.Write(&buf, binary.LittleEndian, v.y)
		binary.Write(&buf, binary.LittleEndian, v.z)
		buf.Write([]byte{v.r, v.g, v.b})
	}
	path := filepath.Join(dir, "cloud.ply")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// gridVerts puts one vertex at the center of every grid cell of [0,10]^3.
func gridVerts() []plyVertex {
	verts := make([]plyVertex, 0, points.NumBlocks)
	for iz := 0; iz < points.Grid; iz++ {
		for iy := 0; iy < points.Grid; iy++ {
			for ix := 0; ix < points.Grid; ix++ {
				verts = append(verts, plyVertex{
					x: float64(ix) + 0.5,
					y: float64(iy) + 0.5,
					z: float64(iz) + 0.5,
					r: uint8(ix * 25), g: uint8(iy * 25), b: uint8(iz * 25),
				})
			}
		}
	}
	return verts
}

func TestPartitionGridRoundtrip(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "blocks")
	verts := gridVerts()
	ply := writePLY(t, dir, verts)

	res, err := Partition(ply, outDir)
	if err != nil {
		t.Fatal(err)
	}
	if res.VertexCount != uint64(len(verts)) {
		t.Fatalf("vertex count %d, want %d", res.VertexCount, len(verts))
	}

	// Every point lands in exactly one block, and the counts sum to N.
	sum := 0
	for id := range res.Blocks {
		b := &res.Blocks[id]
		sum += b.Count
		if b.Count != 1 {
			t.Fatalf("block %d holds %d points, want 1", id, b.Count)
		}
		pts, err := points.ReadBlockFile(b.Path, b.Count)
		if err != nil {
			t.Fatalf("block %d: %v", id, err)
		}
		p := pts[0]
		if points.IndexFor(p.Pos, res.BBMin, points.CellSize(res.BBMin, res.BBMax)) != id {
			t.Fatalf("block %d holds a foreign point %v", id, p.Pos)
		}
	}
	if sum != len(verts) {
		t.Fatalf("counts sum to %d, want %d", sum, len(verts))
	}

	// Coordinates survive the double-to-float narrowing.
	first, err := points.ReadBlockFile(res.Blocks[0].Path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d := math.Abs(float64(first[0].Pos[0]) - 0.5); d > 1e-6 {
		t.Errorf("x drifted by %g", d)
	}
}

func TestPartitionAllPointsOneSpot(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "blocks")

	const n = 500
	verts := make([]plyVertex, n)
	for i := range verts {
		verts[i] = plyVertex{x: 3, y: 4, z: 5, r: 10, g: 20, b: 30}
	}
	ply := writePLY(t, dir, verts)

	res, err := Partition(ply, outDir)
	if err != nil {
		t.Fatal(err)
	}

	nonEmpty := 0
	for id := range res.Blocks {
		if res.Blocks[id].Count > 0 {
			nonEmpty++
			if res.Blocks[id].Count != n {
				t.Fatalf("block %d count %d, want %d", id, res.Blocks[id].Count, n)
			}
		} else {
			// Empty cells still exist on disk, zero length.
			fi, err := os.Stat(res.Blocks[id].Path)
			if err != nil {
				t.Fatalf("block %d file missing: %v", id, err)
			}
			if fi.Size() != 0 {
				t.Fatalf("empty block %d has %d bytes", id, fi.Size())
			}
		}
	}
	if nonEmpty != 1 {
		t.Fatalf("%d non-empty blocks, want 1", nonEmpty)
	}
	if kept := points.Filter(res.Blocks); len(kept) != 1 {
		t.Fatalf("filter kept %d, want 1", len(kept))
	}
}

func TestPartitionRejectsASCIIFormat(t *testing.T) {
	dir := t.TempDir()
	ply := filepath.Join(dir, "ascii.ply")
	header := "ply\nformat ascii 1.0\nelement vertex 1\n" +
		"property double x\nproperty double y\nproperty double z\n" +
		"property uchar red\nproperty uchar green\nproperty uchar blue\nend_header\n"
	if err := os.WriteFile(ply, []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Partition(ply, filepath.Join(dir, "blocks"))
	if !errors.Is(err, ErrFormatUnsupported) {
		t.Fatalf("got %v, want ErrFormatUnsupported", err)
	}
}

func TestPartitionRejectsWrongProperties(t *testing.T) {
	dir := t.TempDir()
	ply := filepath.Join(dir, "f32.ply")
	header := "ply\nformat binary_little_endian 1.0\nelement vertex 1\n" +
		"property float x\nproperty float y\nproperty float z\nend_header\n"
	if err := os.WriteFile(ply, []byte(header), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Partition(ply, filepath.Join(dir, "blocks"))
	if !errors.Is(err, ErrFormatUnsupported) {
		t.Fatalf("got %v, want ErrFormatUnsupported", err)
	}
}

func TestPartitionRejectsBrokenHeader(t *testing.T) {
	dir := t.TempDir()
	ply := filepath.Join(dir, "broken.ply")
	if err := os.WriteFile(ply, []byte("not a ply at all\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Partition(ply, filepath.Join(dir, "blocks"))
	if !errors.Is(err, ErrHeaderInvalid) {
		t.Fatalf("got %v, want ErrHeaderInvalid", err)
	}
}

func TestPartitionTruncatedVertexData(t *testing.T) {
	dir := t.TempDir()
	ply := writePLY(t, dir, gridVerts())

	// Chop the last vertex short.
	data, err := os.ReadFile(ply)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ply, data[:len(data)-10], 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Partition(ply, filepath.Join(dir, "blocks"))
	if !errors.Is(err, points.ErrShortRead) {
		t.Fatalf("got %v, want ErrShortRead", err)
	}
}

func TestCleanBlockFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"block_0000.bin", "block_0999.bin", points.ManifestName} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	keep := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(keep, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CleanBlockFiles(dir); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		t.Fatalf("leftover entries: %v", entries)
	}
}
