package gradexr

import (
	"fmt"

	"github.com/chewxy/math32"
)

// TonemapParams controls the scene-to-display compression curve.
type TonemapParams struct {
	Exposure float32 // stops of pre-scale applied before compression
	Contrast float32 // curve steepness; 1 is neutral, must be > 0
}

// DefaultTonemapParams returns the neutral curve: no exposure offset,
// contrast 1.
func DefaultTonemapParams() TonemapParams {
	return TonemapParams{Exposure: defaultExposure, Contrast: defaultContrast}
}

func (p TonemapParams) contrast() float32 {
	if p.Contrast > 0 {
		return p.Contrast
	}
	return defaultContrast
}

// Tonemap maps a scene-referred working-space color to a display-referred
// working-space color in [0,1). Near-zero input stays nearly linear while
// values approaching and exceeding SDR white are progressively compressed
// instead of clipped. The curve is monotone per channel for any positive
// contrast. Input with any other tag fails with ErrInvalidSpace.
func Tonemap(c Color, p TonemapParams) (Color, error) {
	if c.Space != Rec2020 || c.Ref != Scene {
		return Color{}, fmt.Errorf("%w: tonemap requires rec2020/scene input, got %s/%s", ErrInvalidSpace, c.Space, c.Ref)
	}
	gain := math32.Exp2(p.Exposure)
	k := p.contrast()
	return Color{
		R:     tonemapChannel(c.R*gain, k),
		G:     tonemapChannel(c.G*gain, k),
		B:     tonemapChannel(c.B*gain, k),
		Space: Rec2020,
		Ref:   Display,
	}, nil
}

// tonemapChannel is a sigmoid in log exposure: v^k / (v^k + 1). Negative
// scene values carry no display meaning and map to 0.
func tonemapChannel(v, k float32) float32 {
	if v <= 0 {
		return 0
	}
	vk := math32.Pow(v, k)
	return vk / (vk + 1)
}
