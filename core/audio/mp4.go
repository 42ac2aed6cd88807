package audio

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ankit-chaubey/xm-surgery/core"
)

var itunesAtomNames = map[string]string{
	"\xa9nam": "Title",
	"\xa9ART": "Artist",
	"\xa9alb": "Album",
	"\xa9day": "Year",
	"\xa9gen": "Genre",
	"\xa9cmt": "Comment",
	"\xa9too": "EncodingTool",
	"\xa9wrt": "Composer",
	"aART":    "AlbumArtist",
	"cprt":    "Copyright",
	"desc":    "Description",
	"purl":    "PodcastURL",
	"catg":    "Category",
}

// describeMP4 walks the box tree of an M4A file for its brand, duration and
// iTunes metadata.
func describeMP4(m *core.Metadata, data []byte) {
	walkMP4Boxes(m, data, 0)
}

func walkMP4Boxes(m *core.Metadata, data []byte, depth int) {
	if depth > 8 {
		return
	}
	pos := 0
	for pos+8 <= len(data) {
		size := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		boxType := string(data[pos+4 : pos+8])
		hdrLen := 8
		if size == 1 {
			if pos+16 > len(data) {
				return
			}
			size = int(binary.BigEndian.Uint64(data[pos+8 : pos+16]))
			hdrLen = 16
		}
		if size == 0 {
			size = len(data) - pos
		}
		if size < hdrLen || pos+size > len(data) {
			return
		}
		body := data[pos+hdrLen : pos+size]

		switch boxType {
		case "ftyp":
			if len(body) >= 4 {
				m.Add("MP4 Container", "Brand", strings.TrimSpace(string(body[0:4])))
			}
		case "moov", "udta", "ilst":
			walkMP4Boxes(m, body, depth+1)
		case "meta":
			// version/flags prefix
			if len(body) >= 4 {
				walkMP4Boxes(m, body[4:], depth+1)
			}
		case "mvhd":
			describeMovieHeader(m, body)
		default:
			if name, ok := itunesAtomNames[boxType]; ok {
				m.Add("iTunes Metadata", name, extractiTunesData(body))
			}
		}
		pos += size
	}
}

func describeMovieHeader(m *core.Metadata, b []byte) {
	if len(b) < 1 {
		return
	}
	var scale, dur uint64
	switch b[0] {
	case 0:
		if len(b) < 20 {
			return
		}
		scale = uint64(binary.BigEndian.Uint32(b[12:16]))
		dur = uint64(binary.BigEndian.Uint32(b[16:20]))
	case 1:
		if len(b) < 32 {
			return
		}
		scale = uint64(binary.BigEndian.Uint32(b[20:24]))
		dur = binary.BigEndian.Uint64(b[24:32])
	default:
		return
	}
	if scale > 0 {
		m.Add("MP4 Container", "Duration", formatDuration(int(dur/scale)))
	}
}

// extractiTunesData returns the text of the child 'data' atom:
// 4 size + 4 "data" + 1 version + 3 flags + 4 locale + value.
func extractiTunesData(b []byte) string {
	if len(b) < 16 || string(b[4:8]) != "data" {
		return ""
	}
	return strings.TrimRight(string(b[16:]), "\x00")
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}
