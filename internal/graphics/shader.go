package graphics

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Shader wraps a linked GL program.
type Shader struct {
	ID uint32
}

// NewShader compiles and links a program from vertex and fragment source
// files.
func NewShader(vertPath, fragPath string) (*Shader, error) {
	vertSrc, err := os.ReadFile(vertPath)
	if err != nil {
		return nil, fmt.Errorf("read vertex shader: %w", err)
	}
	fragSrc, err := os.ReadFile(fragPath)
	if err != nil {
		return nil, fmt.Errorf("read fragment shader: %w", err)
	}
	return NewShaderFromSource(string(vertSrc), string(fragSrc))
}

// NewShaderFromSource compiles and links a program from in-memory source.
func NewShaderFromSource(vertSrc, fragSrc string) (*Shader, error) {
	vert, err := compileStage(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vert)
	frag, err := compileStage(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(frag)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		defer gl.DeleteProgram(prog)
		return nil, fmt.Errorf("link program: %s", programLog(prog))
	}
	return &Shader{ID: prog}, nil
}

// Use activates the program.
func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

// SetMat4 sets a mat4 uniform.
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.uniform(name), 1, false, &m[0])
}

// SetVec3 sets a vec3 uniform.
func (s *Shader) SetVec3(name string, v mgl32.Vec3) {
	gl.Uniform3f(s.uniform(name), v[0], v[1], v[2])
}

// SetInt sets an int uniform.
func (s *Shader) SetInt(name string, v int32) {
	gl.Uniform1i(s.uniform(name), v)
}

// Delete releases the program.
func (s *Shader) Delete() {
	gl.DeleteProgram(s.ID)
}

func (s *Shader) uniform(name string) int32 {
	return gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
}

func compileStage(src string, stage uint32) (uint32, error) {
	sh := gl.CreateShader(stage)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		msg := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(msg))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(msg, "\x00"))
	}
	return sh, nil
}

func programLog(prog uint32) string {
	var logLen int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
	msg := strings.Repeat("\x00", int(logLen)+1)
	gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(msg))
	return strings.TrimRight(msg, "\x00")
}
