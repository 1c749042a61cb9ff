package gradexr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertRoundTripThroughWorkingSpace(t *testing.T) {
	steps := []float32{0, 0.003, 0.04045, 0.1, 0.25, 0.5, 0.73, 0.9, 1}
	for _, r := range steps {
		for _, g := range steps {
			for _, b := range steps {
				c := Color{R: r, G: g, B: b, Space: EncodedSRGB, Ref: Display}
				wide, err := c.Convert(Rec2020)
				require.NoError(t, err)
				back, err := wide.Convert(EncodedSRGB)
				require.NoError(t, err)
				assert.InDelta(t, r, back.R, 1e-5)
				assert.InDelta(t, g, back.G, 1e-5)
				assert.InDelta(t, b, back.B, 1e-5)
			}
		}
	}
}

func TestConvertRoundTripThroughOklab(t *testing.T) {
	colors := []Color{
		SRGB8(255, 0, 0),
		SRGB8(0, 255, 0),
		SRGB8(0, 0, 255),
		SRGB8(12, 90, 211),
		SRGB8(128, 128, 128),
		SRGB8(255, 255, 255),
	}
	for _, c := range colors {
		lab, err := c.Convert(Oklab)
		require.NoError(t, err)
		back, err := lab.Convert(EncodedSRGB)
		require.NoError(t, err)
		assert.InDelta(t, c.R, back.R, 1e-4)
		assert.InDelta(t, c.G, back.G, 1e-4)
		assert.InDelta(t, c.B, back.B, 1e-4)
	}
}

func TestConvertPreservesReferentAndTags(t *testing.T) {
	c := SRGB8(10, 20, 30)
	wide, err := c.Convert(Rec2020)
	require.NoError(t, err)
	assert.Equal(t, Rec2020, wide.Space)
	assert.Equal(t, Display, wide.Ref)

	same, err := wide.Convert(Rec2020)
	require.NoError(t, err)
	assert.Equal(t, wide, same)
}

func TestConvertSceneReferredToDisplaySpaceFails(t *testing.T) {
	c := SceneRGB(2.5, 0.5, 0.1)

	_, err := c.Convert(EncodedSRGB)
	require.ErrorIs(t, err, ErrInvalidSpace)

	_, err = c.Convert(Oklab)
	require.ErrorIs(t, err, ErrInvalidSpace)

	// The identity conversion of a scene color stays valid.
	same, err := c.Convert(Rec2020)
	require.NoError(t, err)
	assert.Equal(t, c, same)
}

func TestBlendIdentity(t *testing.T) {
	a := SceneRGB(0.1, 1.7, -0.3)
	b := SceneRGB(2.9, 0.003, 0.777)

	got, err := Blend(a, b, 0)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = Blend(a, b, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestBlendExtrapolates(t *testing.T) {
	a := SceneRGB(0, 0, 1)
	b := SceneRGB(1, 0, 0)

	got, err := Blend(a, b, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got.R, 1e-6)
	assert.InDelta(t, 0.0, got.G, 1e-6)
	assert.InDelta(t, -1.0, got.B, 1e-6)
}

func TestBlendRejectsMismatchedTags(t *testing.T) {
	_, err := Blend(SRGB8(1, 2, 3), SceneRGB(1, 2, 3), 0.5)
	require.ErrorIs(t, err, ErrInvalidSpace)

	display, err := SRGB8(1, 2, 3).Convert(Rec2020)
	require.NoError(t, err)
	_, err = Blend(display, SceneRGB(1, 2, 3), 0.5)
	require.ErrorIs(t, err, ErrInvalidSpace)
}

func TestDisplayBytes(t *testing.T) {
	b, err := SRGB8(255, 128, 0).DisplayBytes()
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{255, 128, 0}, b)

	// Out-of-range encoded values clamp at the 8-bit edge.
	hot := Color{R: 1.2, G: -0.1, B: 0.5, Space: EncodedSRGB, Ref: Display}
	b, err = hot.DisplayBytes()
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{255, 0, 128}, b)
}

func TestDisplayBytesRejectsWrongTag(t *testing.T) {
	_, err := SceneRGB(1, 0, 0).DisplayBytes()
	require.ErrorIs(t, err, ErrInvalidSpace)

	lab, err := SRGB8(200, 100, 50).Convert(Oklab)
	require.NoError(t, err)
	_, err = lab.DisplayBytes()
	require.ErrorIs(t, err, ErrInvalidSpace)
}

func TestAnchorFromSRGB8IsSceneReferred(t *testing.T) {
	a := AnchorFromSRGB8(255, 0, 0)
	assert.Equal(t, Rec2020, a.Space)
	assert.Equal(t, Scene, a.Ref)

	// White stays white in any RGB gamut.
	w := AnchorFromSRGB8(255, 255, 255)
	assert.InDelta(t, 1.0, w.R, 1e-4)
	assert.InDelta(t, 1.0, w.G, 1e-4)
	assert.InDelta(t, 1.0, w.B, 1e-4)
}
