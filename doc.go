// Package gradexr renders a procedural HDR gradient through a tagged color
// pipeline and persists it as a multi-channel float OpenEXR file.
//
// Colors carry a (space, referent) tag: gamma-encoded display sRGB, the
// perceptual Oklab blend space, and a linear wide-gamut working space
// (Rec.2020) that can hold unbounded scene-referred values. Scene-referred
// buffers are mapped to displayable 8-bit RGBA by a parametric tonemapping
// curve, or written losslessly as 32-bit float R/G/B channels.
package gradexr
