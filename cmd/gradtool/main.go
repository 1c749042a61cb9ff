package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vearutop/gradexr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "render":
		if err := runRender(os.Args[2:]); err != nil {
			fail(err)
		}
	case "info":
		if err := runInfo(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: gradtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  render -w 200 -h 200 -out out.exr [-a '#ff0000'] [-b '#00ff00'] [-c '#0000ff']")
	fmt.Fprintln(os.Stderr, "         [-exposure 0] [-contrast 1] [-png preview.png] [-preview-size 256]")
	fmt.Fprintln(os.Stderr, "         [-comment ...] [-owner ...]")
	fmt.Fprintln(os.Stderr, "  info   -in file.exr")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	width := fs.Int("w", 200, "buffer width")
	height := fs.Int("h", 200, "buffer height")
	outPath := fs.String("out", "", "output OpenEXR file")
	anchorA := fs.String("a", "#ff0000", "first anchor color (hex sRGB)")
	anchorB := fs.String("b", "#00ff00", "second anchor color (hex sRGB)")
	anchorC := fs.String("c", "#0000ff", "third anchor color (hex sRGB)")
	exposure := fs.Float64("exposure", 0, "tonemap exposure offset, stops")
	contrast := fs.Float64("contrast", 1, "tonemap contrast")
	pngPath := fs.String("png", "", "write tonemapped PNG preview")
	previewSize := fs.Uint("preview-size", 0, "cap preview long edge, 0 keeps full size")
	comment := fs.String("comment", "", "comment attribute")
	owner := fs.String("owner", "", "owner attribute")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" || *width <= 0 || *height <= 0 {
		return errors.New("missing required arguments")
	}

	a, err := parseHexColor(*anchorA)
	if err != nil {
		return err
	}
	b, err := parseHexColor(*anchorB)
	if err != nil {
		return err
	}
	c, err := parseHexColor(*anchorC)
	if err != nil {
		return err
	}
	palette, err := gradexr.NewPalette(a, b, c)
	if err != nil {
		return err
	}

	fb := gradexr.New(*width, *height, gradexr.ModeScene)
	if err := fb.Populate(palette); err != nil {
		return err
	}

	doc, err := gradexr.EncodeDocument(fb.Scene(), *width, *height, gradexr.Attributes{
		Comment: *comment,
		Owner:   *owner,
	})
	if err != nil {
		return err
	}
	if err := gradexr.WriteDocumentFile(doc, *outPath); err != nil {
		return err
	}

	if *pngPath != "" {
		tm := gradexr.TonemapParams{Exposure: float32(*exposure), Contrast: float32(*contrast)}
		if err := writePreview(fb, tm, *pngPath, *previewSize); err != nil {
			return err
		}
	}
	return nil
}

func writePreview(fb *gradexr.Framebuffer, tm gradexr.TonemapParams, path string, size uint) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	if size > 0 {
		img, err := fb.Preview(tm, size, size)
		if err != nil {
			return err
		}
		return png.Encode(f, img)
	}
	img, err := fb.Image(tm)
	if err != nil {
		return err
	}
	return png.Encode(f, img)
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	inPath := fs.String("in", "", "input OpenEXR file")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}
	doc, err := gradexr.ReadDocumentFile(*inPath)
	if err != nil {
		return err
	}
	info := struct {
		Width    int                `json:"width"`
		Height   int                `json:"height"`
		Channels []string           `json:"channels"`
		Attrs    gradexr.Attributes `json:"attributes"`
	}{
		Width:  doc.Width,
		Height: doc.Height,
		Attrs:  doc.Attrs,
	}
	for _, ch := range doc.Channels {
		info.Channels = append(info.Channels, ch.Name)
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// parseHexColor accepts #rgb and #rrggbb sRGB notation and promotes the
// value to a scene-referred working-space anchor.
func parseHexColor(s string) (gradexr.Color, error) {
	if s != "" && s[0] == '#' {
		s = s[1:]
	}
	var r, g, b uint64
	var err error
	switch len(s) {
	case 3:
		if r, err = strconv.ParseUint(s[0:1], 16, 8); err == nil {
			if g, err = strconv.ParseUint(s[1:2], 16, 8); err == nil {
				b, err = strconv.ParseUint(s[2:3], 16, 8)
			}
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if r, err = strconv.ParseUint(s[0:2], 16, 8); err == nil {
			if g, err = strconv.ParseUint(s[2:4], 16, 8); err == nil {
				b, err = strconv.ParseUint(s[4:6], 16, 8)
			}
		}
	default:
		return gradexr.Color{}, fmt.Errorf("invalid hex color %q", s)
	}
	if err != nil {
		return gradexr.Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return gradexr.AnchorFromSRGB8(uint8(r), uint8(g), uint8(b)), nil
}
