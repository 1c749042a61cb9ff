package gradexr

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

const exrMagic = 20000630

const exrVersionScanline = 2

const (
	exrCompressionNone = 0
	exrCompressionZips = 2
	exrCompressionZip  = 3
)

const (
	exrPixelUint  = 0
	exrPixelHalf  = 1
	exrPixelFloat = 2
)

const exrZipBlockLines = 16

// WriteTo serializes the document as an OpenEXR v2 scanline stream with
// 32-bit float channels and ZIP compression. The encoding is lossless:
// decoding the stream reproduces channel values bit for bit.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if err := d.validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	writeU32(&buf, exrMagic)
	writeU32(&buf, exrVersionScanline)

	// Header attributes in the canonical alphabetical order.
	box := box2iPayload(d.Width, d.Height)
	writeAttr(&buf, "channels", "chlist", chlistPayload(d.Channels))
	if d.Attrs.Comment != "" {
		writeAttr(&buf, "comments", "string", []byte(d.Attrs.Comment))
	}
	writeAttr(&buf, "compression", "compression", []byte{exrCompressionZip})
	writeAttr(&buf, "dataWindow", "box2i", box)
	writeAttr(&buf, "displayWindow", "box2i", box)
	writeAttr(&buf, "lineOrder", "lineOrder", []byte{0})
	if d.Attrs.Owner != "" {
		writeAttr(&buf, "owner", "string", []byte(d.Attrs.Owner))
	}
	writeAttr(&buf, "pixelAspectRatio", "float", floatPayload(1.0))
	writeAttr(&buf, "screenWindowCenter", "v2f", make([]byte, 8))
	writeAttr(&buf, "screenWindowWidth", "float", floatPayload(1.0))
	if d.Attrs.Software != "" {
		writeAttr(&buf, "software", "string", []byte(d.Attrs.Software))
	}
	buf.WriteByte(0) // end of header

	blocks, err := d.packBlocks()
	if err != nil {
		return 0, err
	}

	// Offset table entries are absolute file positions of each block.
	pos := uint64(buf.Len() + 8*len(blocks))
	for _, b := range blocks {
		writeU64(&buf, pos)
		pos += uint64(len(b))
	}
	for _, b := range blocks {
		buf.Write(b)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// packBlocks compresses the pixel data into 16-scanline ZIP blocks. Each
// block holds the starting y coordinate, the stored size and the payload.
func (d *Document) packBlocks() ([][]byte, error) {
	blockCount := (d.Height + exrZipBlockLines - 1) / exrZipBlockLines
	blocks := make([][]byte, 0, blockCount)
	for y0 := 0; y0 < d.Height; y0 += exrZipBlockLines {
		lines := exrZipBlockLines
		if y0+lines > d.Height {
			lines = d.Height - y0
		}
		raw := make([]byte, 0, d.Width*lines*4*len(d.Channels))
		for row := 0; row < lines; row++ {
			y := y0 + row
			for _, ch := range d.Channels {
				for _, v := range ch.Pix[y*d.Width : (y+1)*d.Width] {
					raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
				}
			}
		}
		stored, err := exrCompress(raw)
		if err != nil {
			return nil, err
		}
		var b bytes.Buffer
		writeI32(&b, int32(y0))
		writeI32(&b, int32(len(stored)))
		b.Write(stored)
		blocks = append(blocks, b.Bytes())
	}
	return blocks, nil
}

// exrCompress applies the ZIP pipeline: interleave-split the bytes into two
// halves, delta-encode, deflate. A block that does not shrink is stored
// raw; decoders detect that by the stored size matching the expected size.
func exrCompress(raw []byte) ([]byte, error) {
	work := shuffleBytes(raw)
	applyPredictor(work)
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(work); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	if z.Len() >= len(raw) {
		return raw, nil
	}
	return z.Bytes(), nil
}

func shuffleBytes(data []byte) []byte {
	n := len(data) / 2
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[i] = data[2*i]
		out[i+n] = data[2*i+1]
	}
	if len(data)%2 != 0 {
		out[len(data)-1] = data[len(data)-1]
	}
	return out
}

func applyPredictor(data []byte) {
	for i := len(data) - 1; i >= 1; i-- {
		data[i] = byte(int(data[i]) - int(data[i-1]) + 128)
	}
}

func writeAttr(buf *bytes.Buffer, name, typ string, payload []byte) {
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(typ)
	buf.WriteByte(0)
	writeI32(buf, int32(len(payload)))
	buf.Write(payload)
}

func chlistPayload(channels []Channel) []byte {
	var buf bytes.Buffer
	for _, ch := range channels {
		buf.WriteString(ch.Name)
		buf.WriteByte(0)
		writeI32(&buf, exrPixelFloat)
		buf.Write([]byte{0, 0, 0, 0}) // pLinear + reserved
		writeI32(&buf, 1)             // xSampling
		writeI32(&buf, 1)             // ySampling
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

func box2iPayload(width, height int) []byte {
	var buf bytes.Buffer
	writeI32(&buf, 0)
	writeI32(&buf, 0)
	writeI32(&buf, int32(width-1))
	writeI32(&buf, int32(height-1))
	return buf.Bytes()
}

func floatPayload(v float32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, math.Float32bits(v))
	return out
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) { writeU32(buf, uint32(v)) }

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// exrChannel is a parsed chlist entry used while decoding.
type exrChannel struct {
	name      string
	pixelType int32
	xSampling int32
	ySampling int32
}

// DecodeDocument parses the scanline OpenEXR subset produced by WriteTo:
// single part, NONE/ZIPS/ZIP compression, UINT/HALF/FLOAT channels. All
// channels are retained by name; the comments, owner and software string
// attributes map back onto Attributes.
func DecodeDocument(data []byte) (*Document, error) {
	r := bytes.NewReader(data)
	magic, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if magic != exrMagic {
		return nil, errors.New("not an OpenEXR file")
	}
	version, err := readU32(r)
	if err != nil {
		return nil, err
	}
	if version&0x00000200 != 0 {
		return nil, errors.New("tiled OpenEXR not supported")
	}
	if version&0x00000800 != 0 {
		return nil, errors.New("multipart OpenEXR not supported")
	}
	if version&0x00000400 != 0 {
		return nil, errors.New("deep OpenEXR not supported")
	}

	var (
		channels      []exrChannel
		dataWindow    [4]int32
		hasDataWindow bool
		compression   byte
		attrs         Attributes
	)

	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		typ, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		size, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, errors.New("invalid EXR attribute size")
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}

		switch name {
		case "channels":
			if typ != "chlist" {
				return nil, errors.New("unexpected channels attribute type")
			}
			channels, err = parseChannelList(payload)
			if err != nil {
				return nil, err
			}
		case "dataWindow":
			if typ != "box2i" {
				return nil, errors.New("unexpected dataWindow attribute type")
			}
			if len(payload) != 16 {
				return nil, errors.New("invalid dataWindow payload")
			}
			for i := range dataWindow {
				dataWindow[i] = int32(binary.LittleEndian.Uint32(payload[i*4 : i*4+4]))
			}
			hasDataWindow = true
		case "compression":
			if typ != "compression" || len(payload) < 1 {
				return nil, errors.New("invalid compression attribute")
			}
			compression = payload[0]
		case "comments":
			attrs.Comment = string(payload)
		case "owner":
			attrs.Owner = string(payload)
		case "software":
			attrs.Software = string(payload)
		case "tiles":
			return nil, errors.New("tiled OpenEXR not supported")
		}
	}

	if len(channels) == 0 {
		return nil, errors.New("OpenEXR missing channels")
	}
	if !hasDataWindow {
		return nil, errors.New("OpenEXR missing dataWindow")
	}
	for _, ch := range channels {
		if ch.xSampling != 1 || ch.ySampling != 1 {
			return nil, errors.New("OpenEXR subsampled channels are not supported")
		}
	}
	if compression != exrCompressionNone && compression != exrCompressionZips && compression != exrCompressionZip {
		return nil, fmt.Errorf("unsupported OpenEXR compression %d", compression)
	}

	width := int(dataWindow[2]-dataWindow[0]) + 1
	height := int(dataWindow[3]-dataWindow[1]) + 1
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid OpenEXR dimensions")
	}

	blockLines := 1
	if compression == exrCompressionZip {
		blockLines = exrZipBlockLines
	}
	blockCount := (height + blockLines - 1) / blockLines
	offsets := make([]uint64, blockCount)
	for i := range offsets {
		if offsets[i], err = readU64(r); err != nil {
			return nil, err
		}
	}

	doc := &Document{
		Width:    width,
		Height:   height,
		Channels: make([]Channel, len(channels)),
		Attrs:    attrs,
	}
	for i, ch := range channels {
		doc.Channels[i] = Channel{Name: ch.name, Pix: make([]float32, width*height)}
	}

	baseY := int(dataWindow[1])
	for block := 0; block < blockCount; block++ {
		if offsets[block] == 0 {
			continue
		}
		if _, err := r.Seek(int64(offsets[block]), io.SeekStart); err != nil {
			return nil, err
		}
		y, err := readI32(r)
		if err != nil {
			return nil, err
		}
		dataSize, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if dataSize < 0 {
			return nil, errors.New("invalid OpenEXR block size")
		}
		raw := make([]byte, dataSize)
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, err
		}

		startY := int(y) - baseY
		if startY < 0 || startY >= height {
			return nil, errors.New("OpenEXR scanline out of bounds")
		}
		lines := blockLines
		if startY+lines > height {
			lines = height - startY
		}

		expected := expectedBlockBytes(width, lines, channels)
		unpacked, err := exrDecompress(compression, raw, expected)
		if err != nil {
			return nil, err
		}
		if err := decodeBlock(doc, channels, startY, lines, unpacked); err != nil {
			return nil, err
		}
	}

	sort.Slice(doc.Channels, func(i, j int) bool { return doc.Channels[i].Name < doc.Channels[j].Name })
	return doc, nil
}

func parseChannelList(data []byte) ([]exrChannel, error) {
	r := bytes.NewReader(data)
	var channels []exrChannel
	for {
		name, err := readNullString(r)
		if err != nil {
			return nil, err
		}
		if name == "" {
			break
		}
		pixelType, err := readI32(r)
		if err != nil {
			return nil, err
		}
		if pixelType != exrPixelHalf && pixelType != exrPixelFloat && pixelType != exrPixelUint {
			return nil, fmt.Errorf("unsupported OpenEXR pixel type %d", pixelType)
		}
		// Skip pLinear and the reserved bytes.
		if _, err := r.Seek(4, io.SeekCurrent); err != nil {
			return nil, err
		}
		xSampling, err := readI32(r)
		if err != nil {
			return nil, err
		}
		ySampling, err := readI32(r)
		if err != nil {
			return nil, err
		}
		channels = append(channels, exrChannel{
			name:      name,
			pixelType: pixelType,
			xSampling: xSampling,
			ySampling: ySampling,
		})
	}
	return channels, nil
}

func expectedBlockBytes(width, lines int, channels []exrChannel) int {
	total := 0
	for _, ch := range channels {
		total += width * lines * pixelTypeBytes(ch.pixelType)
	}
	return total
}

func pixelTypeBytes(pixelType int32) int {
	if pixelType == exrPixelHalf {
		return 2
	}
	return 4
}

func exrDecompress(compression byte, data []byte, expected int) ([]byte, error) {
	// A block whose stored size equals the uncompressed size is raw,
	// regardless of the header compression.
	if compression == exrCompressionNone || len(data) == expected {
		if expected > 0 && len(data) != expected {
			return nil, errors.New("unexpected OpenEXR block size")
		}
		return data, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	uncompressed, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	if expected > 0 && len(uncompressed) != expected {
		return nil, errors.New("unexpected OpenEXR decompressed size")
	}
	undoPredictor(uncompressed)
	return unshuffleBytes(uncompressed), nil
}

func undoPredictor(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] = byte(int(data[i]) + int(data[i-1]) - 128)
	}
}

func unshuffleBytes(data []byte) []byte {
	n := len(data) / 2
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		out[2*i] = data[i]
		out[2*i+1] = data[i+n]
	}
	if len(data)%2 != 0 {
		out[len(data)-1] = data[len(data)-1]
	}
	return out
}

func decodeBlock(doc *Document, channels []exrChannel, startY, lines int, data []byte) error {
	offset := 0
	for row := 0; row < lines; row++ {
		y := startY + row
		for i, ch := range channels {
			lineBytes := doc.Width * pixelTypeBytes(ch.pixelType)
			if offset+lineBytes > len(data) {
				return errors.New("OpenEXR block truncated")
			}
			line := data[offset : offset+lineBytes]
			offset += lineBytes
			decodeLine(doc.Channels[i].Pix[y*doc.Width:(y+1)*doc.Width], ch.pixelType, line)
		}
	}
	return nil
}

func decodeLine(dst []float32, pixelType int32, line []byte) {
	for x := range dst {
		switch pixelType {
		case exrPixelHalf:
			dst[x] = halfToFloat32(binary.LittleEndian.Uint16(line[x*2 : x*2+2]))
		case exrPixelUint:
			dst[x] = float32(binary.LittleEndian.Uint32(line[x*4 : x*4+4]))
		default:
			dst[x] = math.Float32frombits(binary.LittleEndian.Uint32(line[x*4 : x*4+4]))
		}
	}
}

func readNullString(r *bytes.Reader) (string, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readI32(r *bytes.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func halfToFloat32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := int32(h>>10) & 0x1F
	mant := int32(h & 0x03FF)

	if exp == 0 {
		if mant == 0 {
			return math.Float32frombits(sign << 31)
		}
		for mant&0x0400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x03FF
	} else if exp == 31 {
		if mant == 0 {
			return math.Float32frombits((sign << 31) | 0x7F800000)
		}
		return math.Float32frombits((sign << 31) | 0x7F800000 | (uint32(mant) << 13))
	}

	exp += 127 - 15
	mant <<= 13
	return math.Float32frombits((sign << 31) | (uint32(exp) << 23) | uint32(mant))
}
