package gradexr

import (
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
)

// BufferMode selects the pixel storage of a Framebuffer.
type BufferMode int

const (
	// ModeScene stores 32-bit float scene-referred pixels; Present runs
	// them through the tonemapper.
	ModeScene BufferMode = iota
	// ModeDisplay stores encoded 8-bit pixels directly. There is no HDR
	// range to compress, so Populate bypasses the tonemapper and Present
	// is a pass-through.
	ModeDisplay
)

// ErrUninitializedBuffer reports presenting or encoding a framebuffer
// before its first Populate, a sequencing error that fails fast.
var ErrUninitializedBuffer = errors.New("framebuffer not populated")

// Framebuffer owns the pixel storage for one render target. The mode is
// fixed at construction; dimensions change only through Resize, which
// invalidates the storage.
type Framebuffer struct {
	width  int
	height int
	mode   BufferMode

	scene     []float32 // ModeScene, RGBA, scene-referred
	display   []uint8   // ModeDisplay, RGBA, encoded
	populated bool
}

// New returns an empty framebuffer. Populate must run before Present.
func New(width, height int, mode BufferMode) *Framebuffer {
	return &Framebuffer{width: width, height: height, mode: mode}
}

// Width returns the buffer width in pixels.
func (f *Framebuffer) Width() int { return f.width }

// Height returns the buffer height in pixels.
func (f *Framebuffer) Height() int { return f.height }

// Mode returns the storage mode fixed at construction.
func (f *Framebuffer) Mode() BufferMode { return f.mode }

// Populate runs one generation pass over the gradient palette. Scene mode
// stores the generator output as-is; display mode encodes each pixel to
// 8-bit display bytes directly, rendering the pass display-referred.
func (f *Framebuffer) Populate(p Palette) error {
	pix := RenderScene(f.width, f.height, p)
	switch f.mode {
	case ModeScene:
		f.scene = pix
		f.display = nil
	case ModeDisplay:
		f.display = encodeDisplay(pix)
		f.scene = nil
	default:
		return fmt.Errorf("unknown buffer mode %d", int(f.mode))
	}
	f.populated = true
	return nil
}

// Present returns display-ready RGBA bytes (gamma-encoded, straight alpha,
// len width*height*4). Scene mode tonemaps every pixel with tm; display
// mode ignores tm and returns the stored bytes. Present never mutates the
// owned buffer and is safe to call on every redraw.
func (f *Framebuffer) Present(tm TonemapParams) ([]byte, error) {
	if !f.populated {
		return nil, fmt.Errorf("%w: present before populate", ErrUninitializedBuffer)
	}
	if f.mode == ModeDisplay {
		out := make([]byte, len(f.display))
		copy(out, f.display)
		return out, nil
	}
	out := make([]byte, len(f.scene))
	k := tm.contrast()
	gain := math32.Exp2(tm.Exposure)
	for i := 0; i+3 < len(f.scene); i += 4 {
		mapped := rgb{
			r: tonemapChannel(f.scene[i]*gain, k),
			g: tonemapChannel(f.scene[i+1]*gain, k),
			b: tonemapChannel(f.scene[i+2]*gain, k),
		}
		lin := rec2020ToLinearSRGB(mapped)
		out[i] = quantize8(srgbOETF(lin.r))
		out[i+1] = quantize8(srgbOETF(lin.g))
		out[i+2] = quantize8(srgbOETF(lin.b))
		out[i+3] = quantize8(f.scene[i+3])
	}
	return out, nil
}

// Scene returns the scene-referred float buffer, nil in display mode or
// before Populate. The buffer is the populate-pass output itself; callers
// treat it as read-only.
func (f *Framebuffer) Scene() []float32 {
	if !f.populated {
		return nil
	}
	return f.scene
}

// Resize changes the buffer dimensions and invalidates the storage; the
// next Present before a Populate fails with ErrUninitializedBuffer.
func (f *Framebuffer) Resize(width, height int) {
	f.width = width
	f.height = height
	f.scene = nil
	f.display = nil
	f.populated = false
}

// Image wraps Present into a straight-alpha image.
func (f *Framebuffer) Image(tm TonemapParams) (*image.NRGBA, error) {
	pix, err := f.Present(tm)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, f.width, f.height))
	copy(img.Pix, pix)
	return img, nil
}

// Preview returns the presented frame downsampled to fit maxWidth x
// maxHeight, preserving aspect ratio.
func (f *Framebuffer) Preview(tm TonemapParams, maxWidth, maxHeight uint) (image.Image, error) {
	img, err := f.Image(tm)
	if err != nil {
		return nil, err
	}
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3), nil
}

// encodeDisplay converts generator output straight to encoded bytes,
// treating the values as display-referred working-space color.
func encodeDisplay(pix []float32) []uint8 {
	out := make([]uint8, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		lin := rec2020ToLinearSRGB(rgb{r: pix[i], g: pix[i+1], b: pix[i+2]})
		out[i] = quantize8(srgbOETF(lin.r))
		out[i+1] = quantize8(srgbOETF(lin.g))
		out[i+2] = quantize8(srgbOETF(lin.b))
		out[i+3] = quantize8(pix[i+3])
	}
	return out
}
