package gradexr

import "fmt"

// Palette holds the three gradient anchors. Anchors are working-space,
// scene-referred colors and stay immutable for a generation pass.
type Palette struct {
	A, B, C Color
}

// NewPalette validates that all anchors are scene-referred working-space
// colors.
func NewPalette(a, b, c Color) (Palette, error) {
	for i, col := range []Color{a, b, c} {
		if col.Space != Rec2020 || col.Ref != Scene {
			return Palette{}, fmt.Errorf("%w: anchor %d is %s/%s, want rec2020/scene", ErrInvalidSpace, i, col.Space, col.Ref)
		}
	}
	return Palette{A: a, B: b, C: c}, nil
}

// RenderScene produces a row-major RGBA scene buffer of len width*height*4
// in the working space, scene-referred. Per pixel, with u = x/width and
// v = y/height:
//
//	out = lerp(lerp(A, B, u), lerp(A, C, v), 0.5)
//
// Coverage is 1. The result is a pure function of (width, height, palette);
// zero dimensions yield an empty buffer.
func RenderScene(width, height int, p Palette) []float32 {
	if width <= 0 || height <= 0 {
		return []float32{}
	}
	pix := make([]float32, width*height*4)
	a := rgb{r: p.A.R, g: p.A.G, b: p.A.B}
	b := rgb{r: p.B.R, g: p.B.G, b: p.B.B}
	c := rgb{r: p.C.R, g: p.C.G, b: p.C.B}

	i := 0
	for y := 0; y < height; y++ {
		v := float32(y) / float32(height)
		vr := lerp(a.r, c.r, v)
		vg := lerp(a.g, c.g, v)
		vb := lerp(a.b, c.b, v)
		for x := 0; x < width; x++ {
			u := float32(x) / float32(width)
			hr := lerp(a.r, b.r, u)
			hg := lerp(a.g, b.g, u)
			hb := lerp(a.b, b.b, u)

			pix[i] = lerp(hr, vr, midpointBlend)
			pix[i+1] = lerp(hg, vg, midpointBlend)
			pix[i+2] = lerp(hb, vb, midpointBlend)
			pix[i+3] = 1
			i += 4
		}
	}
	return pix
}
