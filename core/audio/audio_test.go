package audio_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/audio"
	"github.com/google/go-cmp/cmp"
)

func flacFixture() []byte {
	si := make([]byte, 34)
	si[10], si[11], si[12], si[13] = 0x0A, 0xC4, 0x42, 0xF0 // 44100 Hz, 2 ch, 16 bit
	var b bytes.Buffer
	b.WriteString("fLaC")
	b.Write([]byte{0x80, 0x00, 0x00, 34})
	b.Write(si)
	b.Write([]byte{0xFF, 0xF8, 0x00, 0x00})
	return b.Bytes()
}

func aiffFixture() []byte {
	comm := make([]byte, 18)
	binary.BigEndian.PutUint16(comm[0:2], 1)
	binary.BigEndian.PutUint32(comm[2:6], 4)
	binary.BigEndian.PutUint16(comm[6:8], 16)
	copy(comm[8:18], []byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}) // 44100
	name := []byte("Episode 1")

	var body bytes.Buffer
	body.WriteString("AIFF")
	body.WriteString("COMM")
	binary.Write(&body, binary.BigEndian, uint32(len(comm)))
	body.Write(comm)
	body.WriteString("NAME")
	binary.Write(&body, binary.BigEndian, uint32(len(name)))
	body.Write(name)
	body.WriteByte(0) // pad odd chunk
	body.WriteString("SSND")
	binary.Write(&body, binary.BigEndian, uint32(16))
	body.Write(make([]byte, 16))

	var b bytes.Buffer
	b.WriteString("FORM")
	binary.Write(&b, binary.BigEndian, uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func wavFixture() []byte {
	samples := make([]byte, 1600)
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(samples)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1))     // PCM
	binary.Write(&b, binary.LittleEndian, uint16(1))     // channels
	binary.Write(&b, binary.LittleEndian, uint32(8000))  // sample rate
	binary.Write(&b, binary.LittleEndian, uint32(16000)) // byte rate
	binary.Write(&b, binary.LittleEndian, uint16(2))     // block align
	binary.Write(&b, binary.LittleEndian, uint16(16))    // bits
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(samples)))
	b.Write(samples)
	return b.Bytes()
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format core.FormatID
		want   audio.Info
	}{
		{
			name:   "flac streaminfo",
			data:   flacFixture(),
			format: core.FmtFLAC,
			want:   audio.Info{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 16},
		},
		{
			name:   "aiff comm",
			data:   aiffFixture(),
			format: core.FmtAIFF,
			want:   audio.Info{Codec: "pcm", SampleRate: 44100, Channels: 1, BitDepth: 16},
		},
		{
			name:   "wav",
			data:   wavFixture(),
			format: core.FmtWAV,
			want:   audio.Info{Codec: "pcm", SampleRate: 8000, Channels: 1, BitDepth: 16},
		},
		{
			name:   "adts",
			data:   []byte{0xFF, 0xF1, 0x50, 0x80, 0x02, 0x1F, 0xFC},
			format: core.FmtM4A,
			want:   audio.Info{Codec: "aac", SampleRate: 44100, Channels: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := audio.Probe(tt.data, tt.format)
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Probe() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProbeRejects(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		format core.FormatID
	}{
		{"empty", nil, core.FmtMP3},
		{"unknown format", []byte("anything"), core.FmtUnknown},
		{"flac without streaminfo", []byte("fLaC\x81\x00\x00\x04abcdxxxx"), core.FmtFLAC},
		{"flac truncated block", []byte("fLaC\x80\x00\x00\x22short"), core.FmtFLAC},
		{"aiff without comm", []byte("FORM\x00\x00\x00\x04AIFF"), core.FmtAIFF},
		{"ogg short page", []byte("OggS\x00\x02\x00\x00"), core.FmtOGG},
		{"wav garbage", []byte("RIFF\x04\x00\x00\x00WAVE"), core.FmtWAV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := audio.Probe(tt.data, tt.format)
			if !errors.Is(err, audio.ErrUndecodable) {
				t.Errorf("Probe() error = %v, want ErrUndecodable", err)
			}
		})
	}
}

func TestDescribeAIFF(t *testing.T) {
	m := &core.Metadata{}
	audio.Describe(m, aiffFixture(), core.FmtAIFF)

	want := []core.MetaField{
		{Key: "Codec", Value: "pcm", Category: "Audio"},
		{Key: "SampleRate", Value: "44100 Hz", Category: "Audio"},
		{Key: "Channels", Value: "1", Category: "Audio"},
		{Key: "BitsPerSample", Value: "16", Category: "Audio"},
		{Key: "Title", Value: "Episode 1", Category: "AIFF"},
	}
	if diff := cmp.Diff(want, m.Fields); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}
}

func box(typ string, parts ...[]byte) []byte {
	body := bytes.Join(parts, nil)
	b := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(b[0:4], uint32(8+len(body)))
	copy(b[4:8], typ)
	return append(b, body...)
}

func TestDescribeM4A(t *testing.T) {
	mvhd := make([]byte, 100)
	binary.BigEndian.PutUint32(mvhd[12:16], 1000)   // timescale
	binary.BigEndian.PutUint32(mvhd[16:20], 125000) // 125 s
	// data atom: version/flags 1 (UTF-8), locale 0
	data := box("data", []byte{0, 0, 0, 1, 0, 0, 0, 0}, []byte("Episode 7"))

	m4a := bytes.Join([][]byte{
		box("ftyp", []byte("M4A \x00\x00\x02\x00isom")),
		box("moov",
			box("mvhd", mvhd),
			box("udta", box("meta", []byte{0, 0, 0, 0}, box("ilst", box("\xa9nam", data)))),
		),
		box("mdat", make([]byte, 32)),
	}, nil)

	m := &core.Metadata{}
	audio.Describe(m, m4a, core.FmtM4A)

	want := []core.MetaField{
		{Key: "Codec", Value: "aac", Category: "Audio"},
		{Key: "Brand", Value: "M4A", Category: "MP4 Container"},
		{Key: "Duration", Value: "2m 05s", Category: "MP4 Container"},
		{Key: "Title", Value: "Episode 7", Category: "iTunes Metadata"},
	}
	if diff := cmp.Diff(want, m.Fields); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}
}
