package gradexr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTonemapRequiresSceneWorkingSpace(t *testing.T) {
	_, err := Tonemap(SRGB8(255, 0, 0), DefaultTonemapParams())
	require.ErrorIs(t, err, ErrInvalidSpace)

	display, err := SRGB8(255, 0, 0).Convert(Rec2020)
	require.NoError(t, err)
	_, err = Tonemap(display, DefaultTonemapParams())
	require.ErrorIs(t, err, ErrInvalidSpace)
}

func TestTonemapOutputIsDisplayReferredAndBounded(t *testing.T) {
	inputs := []Color{
		SceneRGB(0, 0, 0),
		SceneRGB(0.5, 0.5, 0.5),
		SceneRGB(1, 1, 1),
		SceneRGB(100, 8, 0.001),
		SceneRGB(-2, 1, 0.5), // negative scene values carry no display meaning
	}
	for _, in := range inputs {
		out, err := Tonemap(in, DefaultTonemapParams())
		require.NoError(t, err)
		assert.Equal(t, Rec2020, out.Space)
		assert.Equal(t, Display, out.Ref)
		for _, v := range []float32{out.R, out.G, out.B} {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.Less(t, v, float32(1))
		}
	}
}

func TestTonemapMonotonicInLuminance(t *testing.T) {
	params := []TonemapParams{
		DefaultTonemapParams(),
		{Exposure: 1.5, Contrast: 1},
		{Exposure: -1, Contrast: 2},
		{Exposure: 0, Contrast: 0.5},
	}
	// Fixed hue, increasing scene-referred luminance.
	scales := []float32{0, 0.01, 0.1, 0.5, 1, 2, 4, 16, 256}
	for _, p := range params {
		prev := float32(-1)
		for _, s := range scales {
			out, err := Tonemap(SceneRGB(s, 0.8*s, 0.5*s), p)
			require.NoError(t, err)
			lum := 0.2627002*out.R + 0.6779981*out.G + 0.0593017*out.B
			assert.GreaterOrEqual(t, lum, prev, "params %+v scale %v", p, s)
			prev = lum
		}
	}
}

func TestTonemapNearlyLinearNearZero(t *testing.T) {
	out, err := Tonemap(SceneRGB(0.001, 0.001, 0.001), DefaultTonemapParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.001, out.R, 1e-5)
}

func TestTonemapExposurePreScales(t *testing.T) {
	// One stop up on input v equals doubling v before the curve.
	base, err := Tonemap(SceneRGB(0.5, 0.5, 0.5), TonemapParams{Exposure: 1, Contrast: 1})
	require.NoError(t, err)
	doubled, err := Tonemap(SceneRGB(1, 1, 1), DefaultTonemapParams())
	require.NoError(t, err)
	assert.InDelta(t, doubled.R, base.R, 1e-6)
}

func TestTonemapZeroContrastFallsBackToDefault(t *testing.T) {
	a, err := Tonemap(SceneRGB(2, 2, 2), TonemapParams{})
	require.NoError(t, err)
	b, err := Tonemap(SceneRGB(2, 2, 2), DefaultTonemapParams())
	require.NoError(t, err)
	assert.Equal(t, b, a)
}
