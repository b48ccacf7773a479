package graphics

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"pcview/internal/points"
)

// GLDevice implements Device on an OpenGL 4.1 core context. Each vertex
// buffer is a VAO/VBO pair with the packed Point layout: position at
// location 0, color at location 1, 24-byte stride.
type GLDevice struct {
	buffers []glBuffer
}

type glBuffer struct {
	vao uint32
	vbo uint32
}

// NewGLDevice returns a device for the current context.
func NewGLDevice() *GLDevice {
	return &GLDevice{}
}

// CreateVertexBuffer allocates an immutable-capacity dynamic buffer and
// returns its handle (an index into the device's buffer list).
func (d *GLDevice) CreateVertexBuffer(capacityBytes int) (uint32, error) {
	if capacityBytes <= 0 {
		return 0, fmt.Errorf("vertex buffer capacity %d", capacityBytes)
	}
	var b glBuffer
	gl.GenVertexArrays(1, &b.vao)
	gl.GenBuffers(1, &b.vbo)

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, capacityBytes, nil, gl.DYNAMIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, points.PointSize, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, points.PointSize, 12)
	gl.EnableVertexAttribArray(1)

	gl.BindVertexArray(0)

	d.buffers = append(d.buffers, b)
	return uint32(len(d.buffers) - 1), nil
}

// UpdateVertexBufferSub replaces a sub-range of the buffer's contents.
func (d *GLDevice) UpdateVertexBufferSub(handle uint32, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, d.buffers[handle].vbo)
	gl.BufferSubData(gl.ARRAY_BUFFER, offset, len(data), gl.Ptr(data))
}

// DrawPoints renders the first count vertices as GL_POINTS.
func (d *GLDevice) DrawPoints(handle uint32, count int) {
	if count <= 0 {
		return
	}
	gl.BindVertexArray(d.buffers[handle].vao)
	gl.DrawArrays(gl.POINTS, 0, int32(count))
}

// Destroy releases every buffer. Only call with a live context.
func (d *GLDevice) Destroy() {
	for i := range d.buffers {
		gl.DeleteBuffers(1, &d.buffers[i].vbo)
		gl.DeleteVertexArrays(1, &d.buffers[i].vao)
	}
	d.buffers = nil
}
