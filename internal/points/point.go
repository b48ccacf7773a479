package points

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Point is one renderable point: world position plus RGB color in [0,1].
// On disk and on the GPU it is six tightly packed little-endian float32s.
type Point struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec3
}

// PointSize is the packed size of a Point in bytes.
const PointSize = 24

// FilePointSize is the packed size of one source PLY vertex row:
// three float64 coordinates followed by three uint8 color channels.
const FilePointSize = 27

// FilePoint is a raw vertex row as stored in the source PLY.
type FilePoint struct {
	X, Y, Z float64
	R, G, B uint8
}

// DecodeFilePoint reads one packed vertex row from the first
// FilePointSize bytes of b.
func DecodeFilePoint(b []byte) FilePoint {
	return FilePoint{
		X: math.Float64frombits(binary.LittleEndian.Uint64(b[0:])),
		Y: math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
		Z: math.Float64frombits(binary.LittleEndian.Uint64(b[16:])),
		R: b[24],
		G: b[25],
		B: b[26],
	}
}

// Point narrows the double coordinates to float32 and scales the color
// channels from [0,255] to [0,1].
func (fp FilePoint) Point() Point {
	return Point{
		Pos:   mgl32.Vec3{float32(fp.X), float32(fp.Y), float32(fp.Z)},
		Color: mgl32.Vec3{float32(fp.R) / 255.0, float32(fp.G) / 255.0, float32(fp.B) / 255.0},
	}
}

// AppendPoint appends the packed form of p to dst.
func AppendPoint(dst []byte, p Point) []byte {
	var buf [PointSize]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(p.Pos[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(p.Pos[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(p.Pos[2]))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(p.Color[0]))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(p.Color[1]))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(p.Color[2]))
	return append(dst, buf[:]...)
}

// AppendPoints appends the packed form of every point in pts to dst.
func AppendPoints(dst []byte, pts []Point) []byte {
	for _, p := range pts {
		dst = AppendPoint(dst, p)
	}
	return dst
}

// DecodePoint reads one packed Point from the first PointSize bytes of b.
func DecodePoint(b []byte) Point {
	return Point{
		Pos: mgl32.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		},
		Color: mgl32.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(b[12:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[16:])),
			math.Float32frombits(binary.LittleEndian.Uint32(b[20:])),
		},
	}
}

// DecodePoints unpacks len(b)/PointSize points from b.
func DecodePoints(b []byte) []Point {
	n := len(b) / PointSize
	pts := make([]Point, n)
	for i := 0; i < n; i++ {
		pts[i] = DecodePoint(b[i*PointSize:])
	}
	return pts
}
