// Package audio checks and describes the audio recovered from a container:
// MP3, FLAC, OGG/Opus, WAV, AIFF and M4A/AAC.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/jonas747/ogg"
	"github.com/tosone/minimp3"
)

// ErrUndecodable is returned when recovered bytes do not decode as the
// format they were sniffed as.
var ErrUndecodable = errors.New("audio: stream does not decode")

// Info is the stream-level description Probe extracts.
type Info struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int // Zero for lossy codecs
}

// Probe decodes enough of data to confirm it is playable audio of the given
// format.
func Probe(data []byte, format core.FormatID) (Info, error) {
	if len(data) == 0 {
		return Info{}, fmt.Errorf("%w: no data", ErrUndecodable)
	}
	switch format {
	case core.FmtMP3:
		return probeMP3(data)
	case core.FmtWAV:
		return probeWAV(data)
	case core.FmtOGG, core.FmtOpus:
		return probeOgg(data)
	case core.FmtFLAC:
		return probeFLAC(data)
	case core.FmtAIFF:
		return probeAIFF(data)
	case core.FmtM4A:
		return probeM4A(data)
	}
	return Info{}, fmt.Errorf("%w: unknown format", ErrUndecodable)
}

// ─── MP3 ─────────────────────────────────────────────────────────────────────

func probeMP3(data []byte) (Info, error) {
	dec, _, err := minimp3.DecodeFull(data)
	if err != nil {
		return Info{}, fmt.Errorf("%w: mp3: %v", ErrUndecodable, err)
	}
	defer dec.Close()
	if dec.SampleRate <= 0 || dec.Channels <= 0 {
		return Info{}, fmt.Errorf("%w: mp3: no frames", ErrUndecodable)
	}
	return Info{Codec: "mp3", SampleRate: dec.SampleRate, Channels: dec.Channels}, nil
}

// ─── WAV ─────────────────────────────────────────────────────────────────────

func probeWAV(data []byte) (Info, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%w: wav: invalid header", ErrUndecodable)
	}
	return Info{
		Codec:      "pcm",
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}, nil
}

// ─── OGG ─────────────────────────────────────────────────────────────────────

// probeOgg reads the identification packet of the first logical stream.
func probeOgg(data []byte) (Info, error) {
	dec := ogg.NewPacketDecoder(ogg.NewDecoder(bytes.NewReader(data)))
	packet, _, err := dec.Decode()
	if err != nil && len(packet) == 0 {
		return Info{}, fmt.Errorf("%w: ogg: %v", ErrUndecodable, err)
	}
	switch {
	case bytes.HasPrefix(packet, []byte("OpusHead")) && len(packet) >= 19:
		// Opus always decodes at 48 kHz regardless of the input rate field.
		return Info{Codec: "opus", SampleRate: 48000, Channels: int(packet[9])}, nil
	case bytes.HasPrefix(packet, []byte("\x01vorbis")) && len(packet) >= 16:
		return Info{
			Codec:      "vorbis",
			SampleRate: int(binary.LittleEndian.Uint32(packet[12:16])),
			Channels:   int(packet[11]),
		}, nil
	}
	return Info{}, fmt.Errorf("%w: ogg: unknown codec in first packet", ErrUndecodable)
}

// ─── FLAC ────────────────────────────────────────────────────────────────────

type flacBlock struct {
	blockType byte
	data      []byte
}

const flacStreamInfo = 0

func parseFLACBlocks(data []byte) ([]flacBlock, error) {
	if !bytes.HasPrefix(data, []byte("fLaC")) {
		return nil, fmt.Errorf("%w: flac: missing marker", ErrUndecodable)
	}
	var blocks []flacBlock
	i := 4
	for i+4 <= len(data) {
		header := binary.BigEndian.Uint32(data[i : i+4])
		isLast := header>>31 == 1
		length := int(header & 0xFFFFFF)
		i += 4
		if i+length > len(data) {
			return nil, fmt.Errorf("%w: flac: metadata block truncated", ErrUndecodable)
		}
		blocks = append(blocks, flacBlock{blockType: byte(header>>24) & 0x7F, data: data[i : i+length]})
		i += length
		if isLast {
			break
		}
	}
	return blocks, nil
}

func probeFLAC(data []byte) (Info, error) {
	if _, ft, err := tag.Identify(bytes.NewReader(data)); err != nil || ft != tag.FLAC {
		return Info{}, fmt.Errorf("%w: flac: not identified", ErrUndecodable)
	}
	blocks, err := parseFLACBlocks(data)
	if err != nil {
		return Info{}, err
	}
	if len(blocks) == 0 || blocks[0].blockType != flacStreamInfo || len(blocks[0].data) < 34 {
		return Info{}, fmt.Errorf("%w: flac: STREAMINFO missing", ErrUndecodable)
	}
	si := blocks[0].data
	rate := int(si[10])<<12 | int(si[11])<<4 | int(si[12])>>4
	if rate == 0 {
		return Info{}, fmt.Errorf("%w: flac: zero sample rate", ErrUndecodable)
	}
	return Info{
		Codec:      "flac",
		SampleRate: rate,
		Channels:   int(si[12]>>1&0x07) + 1,
		BitDepth:   int(si[12]&0x01)<<4 | int(si[13])>>4 + 1,
	}, nil
}

// ─── AIFF ────────────────────────────────────────────────────────────────────

// walkAIFF calls fn for every chunk of a FORM/AIFF file.
func walkAIFF(data []byte, fn func(id string, body []byte)) {
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.BigEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if chunkSize < 0 || offset+chunkSize > len(data) {
			return
		}
		fn(chunkID, data[offset:offset+chunkSize])
		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
}

func probeAIFF(data []byte) (Info, error) {
	var info Info
	found := false
	walkAIFF(data, func(id string, body []byte) {
		if id != "COMM" || len(body) < 18 || found {
			return
		}
		found = true
		info = Info{
			Codec:      "pcm",
			Channels:   int(binary.BigEndian.Uint16(body[0:2])),
			BitDepth:   int(binary.BigEndian.Uint16(body[6:8])),
			SampleRate: extendedToInt(body[8:18]),
		}
	})
	if !found || info.SampleRate == 0 {
		return Info{}, fmt.Errorf("%w: aiff: COMM chunk missing", ErrUndecodable)
	}
	return info, nil
}

// extendedToInt converts an 80-bit IEEE 754 extended float to an integer.
func extendedToInt(b []byte) int {
	exp := int(binary.BigEndian.Uint16(b[0:2]) & 0x7FFF)
	mant := binary.BigEndian.Uint64(b[2:10])
	shift := 16383 + 63 - exp
	if shift < 0 || shift > 63 {
		return 0
	}
	return int(mant >> uint(shift))
}

// ─── M4A / AAC ───────────────────────────────────────────────────────────────

var adtsRates = []int{96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050, 16000, 12000, 11025, 8000, 7350}

func probeM4A(data []byte) (Info, error) {
	if len(data) >= 7 && data[0] == 0xFF && data[1]&0xF6 == 0xF0 {
		idx := int(data[2]>>2) & 0x0F
		if idx >= len(adtsRates) {
			return Info{}, fmt.Errorf("%w: adts: bad sampling index %d", ErrUndecodable, idx)
		}
		return Info{
			Codec:      "aac",
			SampleRate: adtsRates[idx],
			Channels:   int(data[2]&0x01)<<2 | int(data[3]>>6),
		}, nil
	}
	_, ft, err := tag.Identify(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: m4a: %v", ErrUndecodable, err)
	}
	switch ft {
	case tag.M4A, tag.M4B, tag.M4P:
		return Info{Codec: "aac"}, nil
	case tag.ALAC:
		return Info{Codec: "alac"}, nil
	}
	return Info{}, fmt.Errorf("%w: m4a: identified as %s", ErrUndecodable, ft)
}

// ──────────────────────────────────────────────────────────────────────────────
// Describe
// ──────────────────────────────────────────────────────────────────────────────

// Describe adds stream info and readable tags of data to m.
func Describe(m *core.Metadata, data []byte, format core.FormatID) {
	if info, err := Probe(data, format); err == nil {
		m.Add("Audio", "Codec", info.Codec)
		if info.SampleRate > 0 {
			m.Add("Audio", "SampleRate", fmt.Sprintf("%d Hz", info.SampleRate))
		}
		if info.Channels > 0 {
			m.Add("Audio", "Channels", fmt.Sprintf("%d", info.Channels))
		}
		if info.BitDepth > 0 {
			m.Add("Audio", "BitsPerSample", fmt.Sprintf("%d", info.BitDepth))
		}
	} else {
		m.Add("Audio", "Probe", err.Error())
	}

	switch format {
	case core.FmtWAV:
		describeWAVInfo(m, data)
	case core.FmtAIFF:
		describeAIFF(m, data)
	case core.FmtM4A:
		describeMP4(m, data)
	default:
		describeTags(m, bytes.NewReader(data))
	}
}

// describeTags reads the tags dhowden/tag understands.
func describeTags(m *core.Metadata, r io.ReadSeeker) {
	t, err := tag.ReadFrom(r)
	if err != nil {
		return
	}
	cat := "Audio Tags"
	if f := string(t.Format()); f != "" {
		cat = f
	}
	m.Add(cat, "Title", t.Title())
	m.Add(cat, "Artist", t.Artist())
	m.Add(cat, "Album", t.Album())
	m.Add(cat, "AlbumArtist", t.AlbumArtist())
	m.Add(cat, "Composer", t.Composer())
	m.Add(cat, "Genre", t.Genre())
	if t.Year() != 0 {
		m.Add(cat, "Year", fmt.Sprintf("%d", t.Year()))
	}
	if track, total := t.Track(); track != 0 {
		s := fmt.Sprintf("%d", track)
		if total != 0 {
			s = fmt.Sprintf("%d/%d", track, total)
		}
		m.Add(cat, "TrackNumber", s)
	}
}

// WAV INFO field IDs → human names
var infoChunkNames = map[string]string{
	"IART": "Artist",
	"ICMT": "Comment",
	"ICOP": "Copyright",
	"ICRD": "DateCreated",
	"IGNR": "Genre",
	"INAM": "Title",
	"IPRD": "Product",
	"ISFT": "Software",
}

func describeWAVInfo(m *core.Metadata, data []byte) {
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if chunkSize < 0 || offset+chunkSize > len(data) {
			return
		}
		if chunkID == "LIST" && chunkSize >= 4 && string(data[offset:offset+4]) == "INFO" {
			pos, end := offset+4, offset+chunkSize
			for pos+8 <= end {
				infoID := string(data[pos : pos+4])
				infoSize := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
				pos += 8
				if infoSize < 0 || pos+infoSize > end {
					break
				}
				name := infoChunkNames[infoID]
				if name == "" {
					name = infoID
				}
				m.Add("WAV INFO", name, strings.TrimRight(string(data[pos:pos+infoSize]), "\x00"))
				pos += infoSize + infoSize%2
			}
		}
		offset += chunkSize + chunkSize%2
	}
}

var aiffTextChunks = map[string]string{
	"NAME": "Title",
	"AUTH": "Author",
	"(c) ": "Copyright",
	"ANNO": "Annotation",
}

func describeAIFF(m *core.Metadata, data []byte) {
	walkAIFF(data, func(id string, body []byte) {
		if name, ok := aiffTextChunks[id]; ok {
			m.Add("AIFF", name, strings.TrimRight(string(body), "\x00"))
			return
		}
		if id == "ID3 " {
			describeTags(m, bytes.NewReader(body))
		}
	})
}
