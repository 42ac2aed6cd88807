package core

import (
	"bytes"
	"encoding/binary"

	"github.com/dhowden/tag"
)

// FormatID enumerates every recognised audio format.
type FormatID string

const (
	FmtMP3  FormatID = "mp3"
	FmtFLAC FormatID = "flac"
	FmtOGG  FormatID = "ogg"
	FmtOpus FormatID = "opus"
	FmtM4A  FormatID = "m4a"
	FmtWAV  FormatID = "wav"
	FmtAIFF FormatID = "aiff"

	FmtUnknown FormatID = "unknown"
)

// extensions maps a format to the extension of its output file.
var extensions = map[FormatID]string{
	FmtMP3:     ".mp3",
	FmtFLAC:    ".flac",
	FmtOGG:     ".ogg",
	FmtOpus:    ".opus",
	FmtM4A:     ".m4a",
	FmtWAV:     ".wav",
	FmtAIFF:    ".aiff",
	FmtUnknown: ".bin",
}

// Extension returns the output file extension for id, dot included.
func Extension(id FormatID) string {
	if ext, ok := extensions[id]; ok {
		return ext
	}
	return extensions[FmtUnknown]
}

// DetectAudio identifies decrypted audio, first by magic bytes and falling
// back to dhowden/tag's container sniffing.
func DetectAudio(b []byte) FormatID {
	if id := detectMagic(b); id != FmtUnknown {
		return id
	}
	_, ft, err := tag.Identify(bytes.NewReader(b))
	if err != nil {
		return FmtUnknown
	}
	switch ft {
	case tag.MP3:
		return FmtMP3
	case tag.FLAC:
		return FmtFLAC
	case tag.OGG:
		return FmtOGG
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return FmtM4A
	}
	return FmtUnknown
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// MP3: ID3 tag or FF FB / FF F3 / FF F2 sync
	case bytes.HasPrefix(b, []byte("ID3")):
		return FmtMP3
	case b[0] == 0xFF && (b[1]&0xE0 == 0xE0) && (b[1]&0x06 != 0):
		return FmtMP3
	// FLAC: fLaC
	case bytes.HasPrefix(b, []byte("fLaC")):
		return FmtFLAC
	// OGG: OggS, Opus when the first packet is OpusHead
	case bytes.HasPrefix(b, []byte("OggS")):
		if len(b) >= 36 && bytes.Equal(b[28:36], []byte("OpusHead")) {
			return FmtOpus
		}
		return FmtOGG
	// WAV: RIFF????WAVE
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return FmtWAV
	// AIFF: FORM????AIFF or AIFC
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("FORM")) &&
		(bytes.Equal(b[8:12], []byte("AIFF")) || bytes.Equal(b[8:12], []byte("AIFC"))):
		return FmtAIFF
	// M4A: ftyp box at offset 4
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectMP4Subtype(b)
	// ADTS AAC is shipped in .m4a by the client
	case b[0] == 0xFF && (b[1]&0xF6 == 0xF0):
		return FmtM4A
	}
	return FmtUnknown
}

func detectMP4Subtype(b []byte) FormatID {
	size := binary.BigEndian.Uint32(b[0:4])
	if size < 12 {
		return FmtUnknown
	}
	switch string(b[8:12]) {
	case "M4A ", "M4B ", "M4P ", "mp42", "isom", "iso2", "dash":
		return FmtM4A
	}
	return FmtUnknown
}
