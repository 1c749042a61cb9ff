package gradexr

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Space identifies a color space in the closed conversion set.
type Space int

const (
	// EncodedSRGB is gamma-encoded sRGB, display-referred, nominally [0,1].
	EncodedSRGB Space = iota
	// Oklab is a perceptual space used as a blend-friendly intermediate,
	// display-referred.
	Oklab
	// Rec2020 is the linear wide-gamut working space. It is the only space
	// that can carry scene-referred (unbounded) values.
	Rec2020
)

func (s Space) String() string {
	switch s {
	case EncodedSRGB:
		return "encoded-srgb"
	case Oklab:
		return "oklab"
	case Rec2020:
		return "rec2020"
	default:
		return fmt.Sprintf("space(%d)", int(s))
	}
}

// Referent identifies the referential context of a color value.
type Referent int

const (
	// Display marks values bounded to the output medium.
	Display Referent = iota
	// Scene marks unbounded radiometric values relative to SDR white.
	Scene
)

func (r Referent) String() string {
	if r == Scene {
		return "scene"
	}
	return "display"
}

// ErrInvalidSpace reports an operation on a color whose (space, referent)
// tag does not match the operation's contract.
var ErrInvalidSpace = errors.New("invalid color space or referent")

// Color is a tagged color value. Its numeric meaning is defined only
// together with Space and Ref; arithmetic between mismatched tags is
// rejected rather than silently coerced.
type Color struct {
	R, G, B float32
	Space   Space
	Ref     Referent
}

// SRGB8 returns an encoded, display-referred sRGB color from 8-bit values.
func SRGB8(r, g, b uint8) Color {
	return Color{
		R:     float32(r) / 255.0,
		G:     float32(g) / 255.0,
		B:     float32(b) / 255.0,
		Space: EncodedSRGB,
		Ref:   Display,
	}
}

// SceneRGB returns a scene-referred color in the working space. Values are
// relative to SDR white (1.0) and may exceed it.
func SceneRGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, Space: Rec2020, Ref: Scene}
}

// AnchorFromSRGB8 promotes an encoded display color to a scene-referred
// working-space anchor at SDR intensity. This is the explicit step that
// takes UI-picked colors into the renderable palette.
func AnchorFromSRGB8(r, g, b uint8) Color {
	v := rec2020FromLinearSRGB(rgb{
		r: srgbEOTF(float32(r) / 255.0),
		g: srgbEOTF(float32(g) / 255.0),
		b: srgbEOTF(float32(b) / 255.0),
	})
	return Color{R: v.r, G: v.g, B: v.b, Space: Rec2020, Ref: Scene}
}

// Convert returns c expressed in the target space. The referent is
// preserved. Scene-referred values exist only in the working space, so
// converting them to a display-only space fails with ErrInvalidSpace;
// the tonemapper is the sanctioned way across that boundary.
func (c Color) Convert(to Space) (Color, error) {
	if c.Space == to {
		return c, nil
	}
	if c.Ref == Scene {
		return Color{}, fmt.Errorf("%w: cannot convert scene-referred %s to %s without tonemapping", ErrInvalidSpace, c.Space, to)
	}
	lin := c.linearSRGB()
	out := Color{Space: to, Ref: c.Ref}
	switch to {
	case EncodedSRGB:
		out.R = srgbOETF(lin.r)
		out.G = srgbOETF(lin.g)
		out.B = srgbOETF(lin.b)
	case Oklab:
		out.R, out.G, out.B = oklabFromLinearSRGB(lin)
	case Rec2020:
		v := rec2020FromLinearSRGB(lin)
		out.R, out.G, out.B = v.r, v.g, v.b
	default:
		return Color{}, fmt.Errorf("%w: unknown target space %d", ErrInvalidSpace, int(to))
	}
	return out, nil
}

// Blend linearly interpolates two colors of the same space and referent.
// t is unconstrained: values outside [0,1] extrapolate.
func Blend(a, b Color, t float32) (Color, error) {
	if a.Space != b.Space || a.Ref != b.Ref {
		return Color{}, fmt.Errorf("%w: blend of %s/%s with %s/%s", ErrInvalidSpace, a.Space, a.Ref, b.Space, b.Ref)
	}
	return Color{
		R:     lerp(a.R, b.R, t),
		G:     lerp(a.G, b.G, t),
		B:     lerp(a.B, b.B, t),
		Space: a.Space,
		Ref:   a.Ref,
	}, nil
}

// DisplayBytes quantizes an encoded, display-referred color to 8 bits with
// rounding. Any other tag is a contract violation.
func (c Color) DisplayBytes() ([3]uint8, error) {
	if c.Space != EncodedSRGB || c.Ref != Display {
		return [3]uint8{}, fmt.Errorf("%w: DisplayBytes requires encoded-srgb/display, got %s/%s", ErrInvalidSpace, c.Space, c.Ref)
	}
	return [3]uint8{quantize8(c.R), quantize8(c.G), quantize8(c.B)}, nil
}

// rgb is an untagged value triple used inside conversion chains, always in
// linear sRGB here.
type rgb struct {
	r, g, b float32
}

func (c Color) linearSRGB() rgb {
	switch c.Space {
	case EncodedSRGB:
		return rgb{r: srgbEOTF(c.R), g: srgbEOTF(c.G), b: srgbEOTF(c.B)}
	case Oklab:
		return oklabToLinearSRGB(c.R, c.G, c.B)
	default:
		return rec2020ToLinearSRGB(rgb{r: c.R, g: c.G, b: c.B})
	}
}

// Gamut conversions go through CIE XYZ (D65) with the standard primaries
// matrices.

func rec2020FromLinearSRGB(v rgb) rgb {
	x, y, z := linearSRGBToXYZ(v)
	return rgb{
		r: 1.7166512*x - 0.3556708*y - 0.2533663*z,
		g: -0.6666844*x + 1.6164812*y + 0.0157685*z,
		b: 0.0176399*x - 0.0427706*y + 0.9421031*z,
	}
}

func rec2020ToLinearSRGB(v rgb) rgb {
	x := 0.636958*v.r + 0.1446169*v.g + 0.168881*v.b
	y := 0.2627002*v.r + 0.6779981*v.g + 0.0593017*v.b
	z := 0.0280727*v.g + 1.0609851*v.b
	return xyzToLinearSRGB(x, y, z)
}

func linearSRGBToXYZ(v rgb) (float32, float32, float32) {
	return 0.4123908*v.r + 0.35758433*v.g + 0.1804808*v.b,
		0.212639*v.r + 0.71516865*v.g + 0.07219232*v.b,
		0.019330818*v.r + 0.11919478*v.g + 0.95053214*v.b
}

func xyzToLinearSRGB(x, y, z float32) rgb {
	return rgb{
		r: 3.24097*x - 1.5373832*y - 0.49861076*z,
		g: -0.96924365*x + 1.8759675*y + 0.041555058*z,
		b: 0.05563008*x - 0.20397696*y + 1.0569715*z,
	}
}

// Oklab per Ottosson: linear sRGB -> LMS (M1), cube root, LMS' -> Lab (M2).

func oklabFromLinearSRGB(v rgb) (float32, float32, float32) {
	l := 0.41222146*v.r + 0.53633255*v.g + 0.051445995*v.b
	m := 0.2119035*v.r + 0.6806995*v.g + 0.10739696*v.b
	s := 0.08830246*v.r + 0.28171884*v.g + 0.6299787*v.b

	lp := math32.Cbrt(l)
	mp := math32.Cbrt(m)
	sp := math32.Cbrt(s)

	return 0.21045426*lp + 0.7936178*mp - 0.004072047*sp,
		1.9779985*lp - 2.4285922*mp + 0.4505937*sp,
		0.025904037*lp + 0.78277177*mp - 0.80867577*sp
}

func oklabToLinearSRGB(ll, a, b float32) rgb {
	lp := ll + 0.39633778*a + 0.21580376*b
	mp := ll - 0.105561346*a - 0.063854174*b
	sp := ll - 0.08948418*a - 1.2914855*b

	l := lp * lp * lp
	m := mp * mp * mp
	s := sp * sp * sp

	return rgb{
		r: 4.0767417*l - 3.3077116*m + 0.23096994*s,
		g: -1.268438*l + 2.6097574*m - 0.3413194*s,
		b: -0.0041960864*l - 0.7034186*m + 1.7076147*s,
	}
}
