// Package image describes cover art carried in APIC frames: JPEG and PNG.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/jpg"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrUnknownImage is returned for cover data that is neither JPEG nor PNG.
var ErrUnknownImage = errors.New("image: unrecognised cover format")

const category = "Cover"

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// Cover returns format, dimensions and embedded metadata of a cover image.
func Cover(data []byte) ([]core.MetaField, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8}):
		return coverJPEG(data)
	case bytes.HasPrefix(data, pngSignature):
		return coverPNG(data)
	}
	return nil, ErrUnknownImage
}

func field(key, value string) core.MetaField {
	return core.MetaField{Key: key, Value: value, Category: category}
}

// ─── JPEG ────────────────────────────────────────────────────────────────────

type jpegSegment struct {
	marker byte
	data   []byte
}

// parseJPEGSegments walks the marker segments up to the start of scan.
func parseJPEGSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("%w: not a JPEG", ErrUnknownImage)
	}
	var segs []jpegSegment
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		marker := data[i+1]
		if marker == 0xD9 {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2:i+4])) - 2
		i += 4
		if segLen < 0 || i+segLen > len(data) {
			break
		}
		segs = append(segs, jpegSegment{marker: marker, data: data[i : i+segLen]})
		i += segLen
		if marker == 0xDA {
			break
		}
	}
	return segs, nil
}

// isSOF reports whether marker is a start-of-frame that carries dimensions.
func isSOF(marker byte) bool {
	return marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

func coverJPEG(data []byte) ([]core.MetaField, error) {
	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, err
	}
	fields := []core.MetaField{field("Format", "JPEG")}
	for _, s := range segs {
		if isSOF(s.marker) && len(s.data) >= 5 {
			h := binary.BigEndian.Uint16(s.data[1:3])
			w := binary.BigEndian.Uint16(s.data[3:5])
			fields = append(fields, field("Dimensions", fmt.Sprintf("%dx%d", w, h)))
			break
		}
	}
	if exifFields, err := jpg.CoverEXIF(data); err == nil {
		fields = append(fields, exifFields...)
	}
	return fields, nil
}

// ─── PNG ─────────────────────────────────────────────────────────────────────

type pngChunk struct {
	typ  string
	data []byte
}

func readPNGChunks(data []byte) ([]pngChunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: not a PNG", ErrUnknownImage)
	}
	var chunks []pngChunk
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		pos += 8
		if length < 0 || pos+length+4 > len(data) {
			break
		}
		chunks = append(chunks, pngChunk{typ: typ, data: data[pos : pos+length]})
		pos += length + 4 // CRC
		if typ == "IEND" {
			break
		}
	}
	return chunks, nil
}

func coverPNG(data []byte) ([]core.MetaField, error) {
	chunks, err := readPNGChunks(data)
	if err != nil {
		return nil, err
	}
	fields := []core.MetaField{field("Format", "PNG")}
	for _, c := range chunks {
		switch c.typ {
		case "IHDR":
			if len(c.data) >= 8 {
				w := binary.BigEndian.Uint32(c.data[0:4])
				h := binary.BigEndian.Uint32(c.data[4:8])
				fields = append(fields, field("Dimensions", fmt.Sprintf("%dx%d", w, h)))
			}
		case "tEXt":
			// keyword\0value
			if null := bytes.IndexByte(c.data, 0); null > 0 {
				fields = append(fields, field(string(c.data[:null]), string(c.data[null+1:])))
			}
		case "eXIf":
			x, err := exif.Decode(bytes.NewReader(c.data))
			if err != nil {
				continue
			}
			if v, err := x.Get(exif.Model); err == nil {
				fields = append(fields, field("Model", v.String()))
			}
		}
	}
	return fields, nil
}
