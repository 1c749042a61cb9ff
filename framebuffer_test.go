package gradexr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentBeforePopulateFails(t *testing.T) {
	fb := New(4, 4, ModeScene)
	_, err := fb.Present(DefaultTonemapParams())
	require.ErrorIs(t, err, ErrUninitializedBuffer)

	fb = New(4, 4, ModeDisplay)
	_, err = fb.Present(DefaultTonemapParams())
	require.ErrorIs(t, err, ErrUninitializedBuffer)
}

func TestPresentLengthInvariant(t *testing.T) {
	p := mustPalette(t)
	for _, mode := range []BufferMode{ModeScene, ModeDisplay} {
		for _, d := range []struct{ w, h int }{{1, 1}, {3, 7}, {64, 48}} {
			fb := New(d.w, d.h, mode)
			require.NoError(t, fb.Populate(p))
			pix, err := fb.Present(DefaultTonemapParams())
			require.NoError(t, err)
			assert.Len(t, pix, d.w*d.h*4)
			if mode == ModeScene {
				assert.Len(t, fb.Scene(), d.w*d.h*4)
			}
		}
	}
}

func TestPresentIsIdempotent(t *testing.T) {
	p := mustPalette(t)
	fb := New(8, 8, ModeScene)
	require.NoError(t, fb.Populate(p))

	sceneBefore := make([]float32, len(fb.Scene()))
	copy(sceneBefore, fb.Scene())

	tm := TonemapParams{Exposure: 0.5, Contrast: 1.2}
	first, err := fb.Present(tm)
	require.NoError(t, err)
	second, err := fb.Present(tm)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, sceneBefore, fb.Scene(), "present must not mutate the owned buffer")

	// Callers may scribble on the returned bytes without affecting the next frame.
	for i := range first {
		first[i] = 0xAA
	}
	third, err := fb.Present(tm)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestDisplayModeBypassesTonemapper(t *testing.T) {
	p := mustPalette(t)
	fb := New(4, 4, ModeDisplay)
	require.NoError(t, fb.Populate(p))
	assert.Nil(t, fb.Scene())

	// Present ignores tonemap params entirely in display mode.
	a, err := fb.Present(DefaultTonemapParams())
	require.NoError(t, err)
	b, err := fb.Present(TonemapParams{Exposure: 5, Contrast: 3})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSceneModeTonemapsOnPresent(t *testing.T) {
	// A single saturated red pixel at SDR white.
	p, err := NewPalette(SceneRGB(1, 0, 0), SceneRGB(1, 0, 0), SceneRGB(1, 0, 0))
	require.NoError(t, err)
	fb := New(1, 1, ModeScene)
	require.NoError(t, fb.Populate(p))

	pix, err := fb.Present(DefaultTonemapParams())
	require.NoError(t, err)
	require.Len(t, pix, 4)

	// Expected: tonemap then convert; compare against the public pipeline.
	mapped, err := Tonemap(SceneRGB(1, 0, 0), DefaultTonemapParams())
	require.NoError(t, err)
	enc, err := mapped.Convert(EncodedSRGB)
	require.NoError(t, err)
	want, err := enc.DisplayBytes()
	require.NoError(t, err)
	assert.Equal(t, want[0], pix[0])
	assert.Equal(t, want[1], pix[1])
	assert.Equal(t, want[2], pix[2])
	assert.Equal(t, uint8(255), pix[3])
}

func TestCoverageClampsOnlyAtPresent(t *testing.T) {
	fb := New(2, 1, ModeScene)
	require.NoError(t, fb.Populate(mustPalette(t)))

	// Scene storage holds coverage unclamped; 8-bit conversion clamps.
	fb.scene[3] = 1.5
	fb.scene[7] = -0.25
	pix, err := fb.Present(DefaultTonemapParams())
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), fb.Scene()[3])
	assert.Equal(t, uint8(255), pix[3])
	assert.Equal(t, uint8(0), pix[7])
}

func TestResizeInvalidates(t *testing.T) {
	p := mustPalette(t)
	fb := New(4, 4, ModeScene)
	require.NoError(t, fb.Populate(p))

	fb.Resize(8, 2)
	assert.Equal(t, 8, fb.Width())
	assert.Equal(t, 2, fb.Height())
	assert.Nil(t, fb.Scene())
	_, err := fb.Present(DefaultTonemapParams())
	require.ErrorIs(t, err, ErrUninitializedBuffer)

	require.NoError(t, fb.Populate(p))
	pix, err := fb.Present(DefaultTonemapParams())
	require.NoError(t, err)
	assert.Len(t, pix, 8*2*4)
}

func TestImageAndPreview(t *testing.T) {
	p := mustPalette(t)
	fb := New(16, 8, ModeScene)
	require.NoError(t, fb.Populate(p))

	img, err := fb.Image(DefaultTonemapParams())
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	thumb, err := fb.Preview(DefaultTonemapParams(), 4, 4)
	require.NoError(t, err)
	assert.LessOrEqual(t, thumb.Bounds().Dx(), 4)
	assert.LessOrEqual(t, thumb.Bounds().Dy(), 4)
}

func TestZeroSizedBuffer(t *testing.T) {
	fb := New(0, 4, ModeScene)
	require.NoError(t, fb.Populate(mustPalette(t)))
	pix, err := fb.Present(DefaultTonemapParams())
	require.NoError(t, err)
	assert.Empty(t, pix)
}
