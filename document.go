package gradexr

import (
	"bytes"
	"fmt"
	"os"
	"sort"
)

// Attributes is the descriptive metadata carried by a written document.
type Attributes struct {
	Comment  string
	Owner    string
	Software string
}

// Channel is one named plane of float pixel data, row-major,
// len = width*height.
type Channel struct {
	Name string
	Pix  []float32
}

// Document is a named channel set ready for persistence. Channels are
// sorted by name and names are unique; every channel has the same length.
// A document is built immediately before a write and discarded after.
type Document struct {
	Width    int
	Height   int
	Channels []Channel
	Attrs    Attributes
}

// EncodeDocument extracts the R, G and B planes from a scene buffer
// (coverage is dropped) into a document with canonically ordered channels.
// A nil buffer means no generation pass has run yet.
func EncodeDocument(scene []float32, width, height int, attrs Attributes) (*Document, error) {
	if scene == nil {
		return nil, fmt.Errorf("%w: encode before populate", ErrUninitializedBuffer)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	n := width * height
	if len(scene) != n*4 {
		return nil, fmt.Errorf("scene buffer length %d does not match %dx%dx4", len(scene), width, height)
	}
	if attrs.Software == "" {
		attrs.Software = toolName + " " + toolVersion
	}

	r := make([]float32, n)
	g := make([]float32, n)
	b := make([]float32, n)
	for i := 0; i < n; i++ {
		r[i] = scene[i*4]
		g[i] = scene[i*4+1]
		b[i] = scene[i*4+2]
	}
	return &Document{
		Width:  width,
		Height: height,
		Channels: []Channel{
			{Name: "B", Pix: b},
			{Name: "G", Pix: g},
			{Name: "R", Pix: r},
		},
		Attrs: attrs,
	}, nil
}

// Channel returns the named channel, or nil.
func (d *Document) Channel(name string) *Channel {
	for i := range d.Channels {
		if d.Channels[i].Name == name {
			return &d.Channels[i]
		}
	}
	return nil
}

func (d *Document) validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid document dimensions %dx%d", d.Width, d.Height)
	}
	if len(d.Channels) == 0 {
		return fmt.Errorf("document has no channels")
	}
	if !sort.SliceIsSorted(d.Channels, func(i, j int) bool { return d.Channels[i].Name < d.Channels[j].Name }) {
		return fmt.Errorf("document channels are not in canonical order")
	}
	n := d.Width * d.Height
	for i, ch := range d.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel %d has no name", i)
		}
		if i > 0 && ch.Name == d.Channels[i-1].Name {
			return fmt.Errorf("duplicate channel %q", ch.Name)
		}
		if len(ch.Pix) != n {
			return fmt.Errorf("channel %q has %d samples, want %d", ch.Name, len(ch.Pix), n)
		}
	}
	return nil
}

// WriteDocumentFile persists the document at path. The destination handle
// is acquired once and released on every exit path; on a failed write the
// partial file is removed, so no readable partial state is left behind.
// Failures wrap the underlying cause and are never retried here.
func WriteDocumentFile(d *Document, path string) error {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadDocumentFile loads and decodes a document written by
// WriteDocumentFile.
func ReadDocumentFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
