package gradexr

import "github.com/chewxy/math32"

// lerp interpolates without clamping; t outside [0,1] extrapolates. The
// mix form keeps lerp(a,b,0)==a and lerp(a,b,1)==b exact in float32.
func lerp(a, b, t float32) float32 { return a*(1-t) + b*t }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func quantize8(v float32) uint8 {
	return uint8(math32.Round(clamp01(v) * 255.0))
}

// srgbEOTF decodes an encoded sRGB component to linear light.
func srgbEOTF(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

// srgbOETF encodes a linear component for display. Out-of-range input is
// pinned to [0,1]; this is the only place the display path clamps.
func srgbOETF(v float32) float32 {
	v = clamp01(v)
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math32.Pow(v, 1.0/2.4) - 0.055
}
