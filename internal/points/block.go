package points

import (
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
)

// Grid is the number of cells per axis of the uniform partition.
const Grid = 10

// NumBlocks is the total number of spatial cells.
const NumBlocks = Grid * Grid * Grid

// Block is one spatial cell of the partitioned scene. The AABB, count and
// path are fixed at ingest; the remaining fields are per-frame scalars
// owned by the render thread.
type Block struct {
	ID    int
	BBMin mgl32.Vec3
	BBMax mgl32.Vec3
	Count int
	Path  string

	Visible       bool
	DistToCamera  float32
	DistToFrustum float32
	MinPlaneDist  float32
}

// FileName returns the block file name for id, zero-padded.
func FileName(id int) string {
	return fmt.Sprintf("block_%04d.bin", id)
}

// CellSize returns the per-axis extent of one grid cell.
func CellSize(bbMin, bbMax mgl32.Vec3) mgl32.Vec3 {
	return bbMax.Sub(bbMin).Mul(1.0 / float32(Grid))
}

// IndexFor bins a world position into its block id. Each axis index is
// clamped to [0, Grid-1] so boundary points on the max faces stay inside.
func IndexFor(p mgl32.Vec3, bbMin, cell mgl32.Vec3) int {
	ix := clampi(int((p[0]-bbMin[0])/cell[0]), 0, Grid-1)
	iy := clampi(int((p[1]-bbMin[1])/cell[1]), 0, Grid-1)
	iz := clampi(int((p[2]-bbMin[2])/cell[2]), 0, Grid-1)
	return ix + Grid*iy + Grid*Grid*iz
}

// BuildBlocks lays out all NumBlocks cells over [bbMin, bbMax] with their
// AABBs, file paths under dir, and the given per-block counts (nil means
// all zero). Max-index cells snap to the scene bound so the union of cell
// AABBs is exactly the scene AABB.
func BuildBlocks(bbMin, bbMax mgl32.Vec3, counts []int, dir string) []Block {
	cell := CellSize(bbMin, bbMax)
	blocks := make([]Block, NumBlocks)
	for z := 0; z < Grid; z++ {
		for y := 0; y < Grid; y++ {
			for x := 0; x < Grid; x++ {
				id := x + Grid*y + Grid*Grid*z
				mn := bbMin.Add(mgl32.Vec3{float32(x) * cell[0], float32(y) * cell[1], float32(z) * cell[2]})
				mx := mn.Add(cell)
				if x == Grid-1 {
					mx[0] = bbMax[0]
				}
				if y == Grid-1 {
					mx[1] = bbMax[1]
				}
				if z == Grid-1 {
					mx[2] = bbMax[2]
				}
				b := Block{ID: id, BBMin: mn, BBMax: mx, Path: filepath.Join(dir, FileName(id))}
				if counts != nil {
					b.Count = counts[id]
				}
				blocks[id] = b
			}
		}
	}
	return blocks
}

// Filter returns the blocks that actually hold points. Empty cells stay on
// disk as zero-length files but are dropped from the working set.
func Filter(blocks []Block) []Block {
	kept := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Count > 0 {
			kept = append(kept, b)
		}
	}
	return kept
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
