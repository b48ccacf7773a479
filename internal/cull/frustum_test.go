package cull

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"pcview/internal/points"
)

const (
	zNear = 1.0
	zFar  = 100.0
)

func testCuller() *Culler {
	proj := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, zNear, zFar)
	return New(proj, zNear, zFar)
}

func block(id int, mn, mx mgl32.Vec3) points.Block {
	return points.Block{ID: id, BBMin: mn, BBMax: mx, Count: 1}
}

func TestCullerBoxInFrustum(t *testing.T) {
	c := testCuller()
	blocks := []points.Block{
		block(0, mgl32.Vec3{-1, -1, -12}, mgl32.Vec3{1, 1, -8}),
	}
	c.Update(mgl32.Ident4(), blocks)
	if !blocks[0].Visible {
		t.Fatalf("box in front of the camera culled, minPlaneDist %v", blocks[0].MinPlaneDist)
	}
	if d := float64(blocks[0].DistToCamera) - 10.0; math.Abs(d) > 1e-3 {
		t.Errorf("camera distance off by %v", d)
	}
}

func TestCullerBoxBehindCamera(t *testing.T) {
	c := testCuller()
	blocks := []points.Block{
		block(0, mgl32.Vec3{-1, -1, 8}, mgl32.Vec3{1, 1, 12}),
	}
	c.Update(mgl32.Ident4(), blocks)
	if blocks[0].Visible {
		t.Fatal("box behind the near plane reported visible")
	}
	if blocks[0].MinPlaneDist >= 0 {
		t.Errorf("outside box should carry a negative priority, got %v", blocks[0].MinPlaneDist)
	}
}

func TestCullerBoxBeyondFarPlane(t *testing.T) {
	c := testCuller()
	blocks := []points.Block{
		block(0, mgl32.Vec3{-1, -1, -300}, mgl32.Vec3{1, 1, -200}),
	}
	c.Update(mgl32.Ident4(), blocks)
	if blocks[0].Visible {
		t.Fatal("box beyond the far plane reported visible")
	}
}

func TestCullerBoxStraddlingPlane(t *testing.T) {
	c := testCuller()
	// Wide box crossing the left frustum plane: part inside, part out.
	blocks := []points.Block{
		block(0, mgl32.Vec3{-100, -1, -12}, mgl32.Vec3{0, 1, -8}),
	}
	c.Update(mgl32.Ident4(), blocks)
	if !blocks[0].Visible {
		t.Fatal("straddling box culled")
	}
}

func TestCullerViewTransform(t *testing.T) {
	c := testCuller()
	// Box sits at +X in world space; the camera looks down +X, so it is
	// dead ahead in view space.
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	blocks := []points.Block{
		block(0, mgl32.Vec3{9, -1, -1}, mgl32.Vec3{11, 1, 1}),
	}
	c.Update(view, blocks)
	if !blocks[0].Visible {
		t.Fatal("box ahead of the rotated camera culled")
	}
}

func TestFrustumCenterDistance(t *testing.T) {
	c := testCuller()
	// Block centered exactly on the frustum center point.
	mid := float32(-(zNear + zFar) / 2)
	blocks := []points.Block{
		block(0, mgl32.Vec3{-1, -1, mid - 1}, mgl32.Vec3{1, 1, mid + 1}),
	}
	c.Update(mgl32.Ident4(), blocks)
	if blocks[0].DistToFrustum > 1e-3 {
		t.Errorf("frustum-center distance %v, want 0", blocks[0].DistToFrustum)
	}
}

func TestSortByPriority(t *testing.T) {
	blocks := []points.Block{
		{ID: 0, Visible: false, MinPlaneDist: -5},
		{ID: 1, Visible: true, DistToCamera: 30},
		{ID: 2, Visible: false, MinPlaneDist: -1},
		{ID: 3, Visible: true, DistToCamera: 10},
	}
	SortByPriority(blocks, false)

	wantOrder := []int{3, 1, 2, 0}
	for i, want := range wantOrder {
		if blocks[i].ID != want {
			t.Fatalf("position %d: got block %d, want %d", i, blocks[i].ID, want)
		}
	}
}

func TestSortByPriorityStable(t *testing.T) {
	blocks := []points.Block{
		{ID: 7, Visible: true, DistToCamera: 5},
		{ID: 8, Visible: true, DistToCamera: 5},
		{ID: 9, Visible: true, DistToCamera: 5},
	}
	SortByPriority(blocks, false)
	for i, want := range []int{7, 8, 9} {
		if blocks[i].ID != want {
			t.Fatalf("equal keys reordered: %v", []int{blocks[0].ID, blocks[1].ID, blocks[2].ID})
		}
	}
}

func TestSortByFrustumCenter(t *testing.T) {
	blocks := []points.Block{
		{ID: 0, Visible: true, DistToCamera: 1, DistToFrustum: 50},
		{ID: 1, Visible: true, DistToCamera: 99, DistToFrustum: 2},
	}
	SortByPriority(blocks, true)
	if blocks[0].ID != 1 {
		t.Fatal("frustum-center priority not honored")
	}
}
