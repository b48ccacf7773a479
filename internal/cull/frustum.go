// Package cull marks blocks visible against the view frustum and computes
// the per-frame priority scalars the slot table sorts by.
package cull

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"pcview/internal/points"
)

// Plane is a half-space in Hessian form: dot(N, x) + D >= 0 is inside.
type Plane struct {
	N mgl32.Vec3
	D float32
}

// normalizePlane scales p so the normal has unit length.
func normalizePlane(p mgl32.Vec4) Plane {
	n := mgl32.Vec3{p[0], p[1], p[2]}
	inv := 1.0 / n.Len()
	return Plane{N: n.Mul(inv), D: p[3] * inv}
}

// ExtractPlanes derives the six frustum planes from a projection matrix
// using the Gribb-Hartmann row combinations. The planes live in view space
// and are returned as left, right, bottom, top, near, far.
func ExtractPlanes(proj mgl32.Mat4) [6]Plane {
	r0 := proj.Row(0)
	r1 := proj.Row(1)
	r2 := proj.Row(2)
	r3 := proj.Row(3)
	return [6]Plane{
		normalizePlane(r3.Add(r0)), // left
		normalizePlane(r3.Sub(r0)), // right
		normalizePlane(r3.Add(r1)), // bottom
		normalizePlane(r3.Sub(r1)), // top
		normalizePlane(r3.Add(r2)), // near
		normalizePlane(r3.Sub(r2)), // far
	}
}

// Culler tests block AABBs against the frustum each frame.
type Culler struct {
	planes        [6]Plane
	frustumCenter mgl32.Vec3
}

// New builds a culler for a fixed projection and clip range.
func New(proj mgl32.Mat4, zNear, zFar float32) *Culler {
	return &Culler{
		planes:        ExtractPlanes(proj),
		frustumCenter: mgl32.Vec3{0, 0, -(zNear + zFar) / 2},
	}
}

// Update recomputes visibility and priority scalars for every block. The
// eight world-space AABB corners are taken through the view matrix; a block
// is visible when its view-space AABB's positive vertex is inside all six
// planes. Only per-frame scalars are written, never geometry.
func (c *Culler) Update(view mgl32.Mat4, blocks []points.Block) {
	for i := range blocks {
		b := &blocks[i]
		mn, mx := viewAABB(view, b.BBMin, b.BBMax)

		minDist := float32(floatMax)
		for _, pl := range c.planes {
			d := pl.N.Dot(positiveVertex(pl.N, mn, mx)) + pl.D
			if d < minDist {
				minDist = d
			}
		}
		b.MinPlaneDist = minDist
		b.Visible = minDist >= 0

		center := mn.Add(mx).Mul(0.5)
		b.DistToCamera = center.Len()
		b.DistToFrustum = center.Sub(c.frustumCenter).Len()
	}
}

// viewAABB transforms the eight corners of a world AABB and rebounds them.
func viewAABB(view mgl32.Mat4, bbMin, bbMax mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	mn := mgl32.Vec3{floatMax, floatMax, floatMax}
	mx := mgl32.Vec3{-floatMax, -floatMax, -floatMax}
	for corner := 0; corner < 8; corner++ {
		w := mgl32.Vec3{
			pick(corner&1 != 0, bbMax[0], bbMin[0]),
			pick(corner&2 != 0, bbMax[1], bbMin[1]),
			pick(corner&4 != 0, bbMax[2], bbMin[2]),
		}
		v := view.Mul4x1(w.Vec4(1)).Vec3()
		for a := 0; a < 3; a++ {
			if v[a] < mn[a] {
				mn[a] = v[a]
			}
			if v[a] > mx[a] {
				mx[a] = v[a]
			}
		}
	}
	return mn, mx
}

// positiveVertex is the AABB corner maximizing dot(n, x).
func positiveVertex(n, mn, mx mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		pick(n[0] >= 0, mx[0], mn[0]),
		pick(n[1] >= 0, mx[1], mn[1]),
		pick(n[2] >= 0, mx[2], mn[2]),
	}
}

// SortByPriority orders blocks visible-first, nearest-first among the
// visible, least-outside-first among the culled. The sort is stable so
// equal keys keep their order frame to frame. byFrustumCenter switches the
// visible-block scalar from camera distance to frustum-center distance.
func SortByPriority(blocks []points.Block, byFrustumCenter bool) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := &blocks[i], &blocks[j]
		if a.Visible != b.Visible {
			return a.Visible
		}
		if a.Visible {
			if byFrustumCenter {
				return a.DistToFrustum < b.DistToFrustum
			}
			return a.DistToCamera < b.DistToCamera
		}
		return a.MinPlaneDist > b.MinPlaneDist
	})
}

func pick(cond bool, a, b float32) float32 {
	if cond {
		return a
	}
	return b
}

const floatMax = 3.4028234663852886e+38
