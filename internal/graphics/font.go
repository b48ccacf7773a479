package graphics

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph describes one character's placement in the atlas and its metrics,
// all in pixels.
type Glyph struct {
	AtlasX, AtlasY float32
	Width, Height  float32
	BearingX       float32
	BearingY       float32
	Advance        float32
}

// FontAtlas is a single-channel GL texture holding the printable ASCII
// range at a fixed pixel size.
type FontAtlas struct {
	Texture    uint32
	W, H       int
	LineHeight float32
	Glyphs     map[rune]Glyph
}

// BakeFontAtlas rasterizes ASCII 32..126 from a TrueType/OpenType file
// into a red-channel texture atlas.
func BakeFontAtlas(fontPath string, pixels int) (*FontAtlas, error) {
	data, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size: float64(pixels), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	metrics := face.Metrics()
	rowH := metrics.Height.Ceil() + 2

	const atlasW = 512
	atlas := image.NewAlpha(image.Rect(0, 0, atlasW, rowH))
	glyphs := make(map[rune]Glyph, 95)

	penX, penY := 1, 1
	for r := rune(32); r <= 126; r++ {
		bounds, mask, maskPt, adv, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		gw := bounds.Dx()
		gh := bounds.Dy()
		if penX+gw+1 > atlasW {
			penX = 1
			penY += rowH
		}
		for penY+gh+1 > atlas.Bounds().Dy() {
			grown := image.NewAlpha(image.Rect(0, 0, atlasW, atlas.Bounds().Dy()+rowH))
			draw.Draw(grown, atlas.Bounds(), atlas, image.Point{}, draw.Src)
			atlas = grown
		}
		if mask != nil {
			dst := image.Rect(penX, penY, penX+gw, penY+gh)
			draw.DrawMask(atlas, dst, image.White, image.Point{}, mask, maskPt, draw.Over)
		}
		glyphs[r] = Glyph{
			AtlasX:   float32(penX),
			AtlasY:   float32(penY),
			Width:    float32(gw),
			Height:   float32(gh),
			BearingX: float32(bounds.Min.X),
			BearingY: float32(-bounds.Min.Y),
			Advance:  float32(adv) / 64.0,
		}
		penX += gw + 2
	}

	fa := &FontAtlas{
		W:          atlasW,
		H:          atlas.Bounds().Dy(),
		LineHeight: float32(rowH),
		Glyphs:     glyphs,
	}

	gl.GenTextures(1, &fa.Texture)
	gl.BindTexture(gl.TEXTURE_2D, fa.Texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(fa.W), int32(fa.H), 0,
		gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(atlas.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return fa, nil
}

// MeasureText returns the pixel width of s at the baked size.
func (fa *FontAtlas) MeasureText(s string) float32 {
	var w float32
	for _, r := range s {
		if g, ok := fa.Glyphs[r]; ok {
			w += g.Advance
		}
	}
	return w
}
