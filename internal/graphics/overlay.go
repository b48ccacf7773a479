package graphics

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const overlayVert = `#version 330 core
layout (location = 0) in vec4 aPosUV;
uniform vec2 Screen;
out vec2 vUV;
void main() {
    vec2 ndc = vec2(aPosUV.x / Screen.x * 2.0 - 1.0, 1.0 - aPosUV.y / Screen.y * 2.0);
    gl_Position = vec4(ndc, 0.0, 1.0);
    vUV = aPosUV.zw;
}
`

const overlayFrag = `#version 330 core
in vec2 vUV;
uniform sampler2D Atlas;
uniform vec3 TextColor;
out vec4 FragColor;
void main() {
    float a = texture(Atlas, vUV).r;
    FragColor = vec4(TextColor, a);
}
`

// Overlay draws screen-space text from a baked font atlas. Used for the
// frame stats readout; toggled from the keyboard.
type Overlay struct {
	atlas  *FontAtlas
	shader *Shader
	vao    uint32
	vbo    uint32
	verts  []float32
}

// NewOverlay builds the text pipeline over a baked atlas.
func NewOverlay(atlas *FontAtlas) (*Overlay, error) {
	shader, err := NewShaderFromSource(overlayVert, overlayFrag)
	if err != nil {
		return nil, err
	}
	o := &Overlay{atlas: atlas, shader: shader}

	gl.GenVertexArrays(1, &o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.VertexAttribPointerWithOffset(0, 4, gl.FLOAT, false, 16, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	return o, nil
}

// DrawText renders s with its baseline at (x, y) in pixels.
func (o *Overlay) DrawText(s string, x, y float32, color mgl32.Vec3, screenW, screenH int) {
	o.verts = o.verts[:0]
	penX := x
	aw := float32(o.atlas.W)
	ah := float32(o.atlas.H)
	for _, r := range s {
		g, ok := o.atlas.Glyphs[r]
		if !ok {
			continue
		}
		x0 := penX + g.BearingX
		y0 := y - g.BearingY
		x1 := x0 + g.Width
		y1 := y0 + g.Height
		u0 := g.AtlasX / aw
		v0 := g.AtlasY / ah
		u1 := (g.AtlasX + g.Width) / aw
		v1 := (g.AtlasY + g.Height) / ah
		o.verts = append(o.verts,
			x0, y0, u0, v0,
			x1, y0, u1, v0,
			x1, y1, u1, v1,
			x0, y0, u0, v0,
			x1, y1, u1, v1,
			x0, y1, u0, v1,
		)
		penX += g.Advance
	}
	if len(o.verts) == 0 {
		return
	}

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)

	o.shader.Use()
	o.shader.SetVec3("TextColor", color)
	gl.Uniform2f(gl.GetUniformLocation(o.shader.ID, gl.Str("Screen\x00")),
		float32(screenW), float32(screenH))
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.atlas.Texture)
	o.shader.SetInt("Atlas", 0)

	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(o.verts)*4, gl.Ptr(o.verts), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(o.verts)/4))
	gl.BindVertexArray(0)

	gl.Enable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
}

// LineHeight returns the atlas line height in pixels.
func (o *Overlay) LineHeight() float32 {
	return o.atlas.LineHeight
}
