// Package camera implements the viewer's fly camera and the orbit used by
// the benchmark mode.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Movement abstracts keyboard directions away from the windowing system.
type Movement int

const (
	Forward Movement = iota
	Backward
	Left
	Right
	Up
	Down
	YawPlus
	YawMinus
	PitchPlus
	PitchMinus
)

// UpAxis selects the world up direction; scanned point clouds are usually
// Z-up.
type UpAxis int

const (
	AxisZ UpAxis = iota
	AxisY
)

// Default tuning.
const (
	defaultYaw         = -90.0
	defaultSpeed       = 2.5
	defaultSensitivity = 0.1
	defaultZoom        = 45.0
)

// Camera holds position and Euler orientation and produces view matrices.
// The Euler convention follows the up axis: Z-up keeps yaw in the XY plane
// with pitch toward +Z, Y-up is the LearnOpenGL formula.
type Camera struct {
	Position mgl32.Vec3
	Front    mgl32.Vec3
	Up       mgl32.Vec3
	Right    mgl32.Vec3
	WorldUp  mgl32.Vec3
	Axis     UpAxis

	Yaw   float32
	Pitch float32

	Speed       float32
	Sensitivity float32
	Zoom        float32
}

// New returns a camera at position with the given up axis.
func New(position mgl32.Vec3, axis UpAxis) *Camera {
	c := &Camera{
		Position:    position,
		Front:       mgl32.Vec3{0, 0, -1},
		Yaw:         defaultYaw,
		Speed:       defaultSpeed,
		Sensitivity: defaultSensitivity,
		Zoom:        defaultZoom,
	}
	c.SetAxis(axis)
	c.updateVectors()
	return c
}

// SetAxis switches the world up direction and the Euler convention.
func (c *Camera) SetAxis(axis UpAxis) {
	c.Axis = axis
	if axis == AxisZ {
		c.WorldUp = mgl32.Vec3{0, 0, 1}
	} else {
		c.WorldUp = mgl32.Vec3{0, 1, 0}
	}
}

// ViewMatrix returns the LookAt matrix for the current pose.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	target := c.Position.Add(c.Front)
	return mgl32.LookAtV(c.Position, target, c.Up)
}

// ProcessKeyboard moves or turns the camera for one held key.
func (c *Camera) ProcessKeyboard(dir Movement, dt float32) {
	velocity := c.Speed * dt
	switch dir {
	case Forward:
		c.Position = c.Position.Add(c.Front.Mul(velocity))
	case Backward:
		c.Position = c.Position.Sub(c.Front.Mul(velocity))
	case Left:
		c.Position = c.Position.Sub(c.Right.Mul(velocity))
	case Right:
		c.Position = c.Position.Add(c.Right.Mul(velocity))
	case Up:
		c.Position = c.Position.Add(c.Up.Mul(velocity))
	case Down:
		c.Position = c.Position.Sub(c.Up.Mul(velocity))
	case YawPlus:
		c.Yaw += velocity * 10
		c.updateVectors()
	case YawMinus:
		c.Yaw -= velocity * 10
		c.updateVectors()
	case PitchPlus:
		c.Pitch += velocity * 10
		c.updateVectors()
	case PitchMinus:
		c.Pitch -= velocity * 10
		c.updateVectors()
	}
}

// ProcessMouse turns the camera by a cursor delta.
func (c *Camera) ProcessMouse(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch += dy * c.Sensitivity
	c.updateVectors()
}

// ProcessScroll zooms within [1, 45] degrees.
func (c *Camera) ProcessScroll(dy float32) {
	c.Zoom -= dy
	if c.Zoom < 1 {
		c.Zoom = 1
	}
	if c.Zoom > 45 {
		c.Zoom = 45
	}
}

// ChangePose moves the camera to position looking at target, recomputing
// yaw and pitch to match.
func (c *Camera) ChangePose(position, target mgl32.Vec3) {
	c.Position = position
	dir := target.Sub(position)
	if dir.Len() == 0 {
		return
	}
	dir = dir.Normalize()
	if c.Axis == AxisZ {
		c.Pitch = mgl32.RadToDeg(float32(math.Asin(clamp1(dir[2]))))
		c.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(dir[1]), float64(dir[0]))))
	} else {
		c.Pitch = mgl32.RadToDeg(float32(math.Asin(clamp1(dir[1]))))
		c.Yaw = mgl32.RadToDeg(float32(math.Atan2(float64(dir[2]), float64(dir[0]))))
	}
	c.updateVectors()
}

// updateVectors rebuilds Front/Right/Up from yaw and pitch, clamping pitch
// so the view cannot flip.
func (c *Camera) updateVectors() {
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	if c.Axis == AxisZ {
		// Z-up: yaw in the XY plane, pitch toward +Z.
		c.Front = mgl32.Vec3{
			float32(math.Cos(yaw) * math.Cos(pitch)),
			float32(math.Sin(yaw) * math.Cos(pitch)),
			float32(math.Sin(pitch)),
		}.Normalize()
	} else {
		// Y-up: yaw around Y, pitch toward +Y.
		c.Front = mgl32.Vec3{
			float32(math.Cos(yaw) * math.Cos(pitch)),
			float32(math.Sin(pitch)),
			float32(math.Sin(yaw) * math.Cos(pitch)),
		}.Normalize()
	}
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}

// clamp1 keeps asin's argument in its domain.
func clamp1(v float32) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return float64(v)
}

// Orbit rotates offset about the world Z axis by theta radians; the orbit
// test mode applies it to (position - center) each frame.
func Orbit(offset mgl32.Vec3, theta float32) mgl32.Vec3 {
	return mgl32.Rotate3DZ(theta).Mul3x1(offset)
}
