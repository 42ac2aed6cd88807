package container

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/ankit-chaubey/xm-surgery/core/audio"
	"github.com/ankit-chaubey/xm-surgery/core/image"
	"github.com/ankit-chaubey/xm-surgery/core/tagframe"
	"github.com/ankit-chaubey/xm-surgery/core/transform"
)

// Inspect processes input in memory and describes the container, its tag
// block, the recovered audio and any cover art.
func Inspect(path string, input []byte, opts Options) (*core.Metadata, error) {
	opts.DryRun = false
	res, err := Process(input, opts)
	if err != nil {
		return nil, err
	}

	m := &core.Metadata{FilePath: path, Format: strings.ToUpper(string(res.Format))}
	describeHeader(m, res.Header, len(input)-transform.HeaderSize)
	m.Add("Container", "Output", OutputName(path, res.Extension))
	if res.Tag != nil {
		describeTag(m, res.Tag, res.LangWidth)
	}
	audio.Describe(m, res.Audio(), res.Format)
	return m, nil
}

func describeHeader(m *core.Metadata, h transform.Header, payload int) {
	m.Add("Container", "Scheme", h.Scheme.String())
	m.Add("Container", "TrackID", fmt.Sprintf("%d", h.TrackID))
	m.Add("Container", "IV", hex.EncodeToString(h.IV[:]))
	m.Add("Container", "Flags", fmt.Sprintf("0x%02x", h.Flags))
	m.Add("Container", "PayloadSize", fmt.Sprintf("%d bytes", payload))
}

func describeTag(m *core.Metadata, blk *tagframe.Block, detected tagframe.LangWidth) {
	const cat = "Tag"
	m.Add(cat, "Version", fmt.Sprintf("ID3v2.%d.%d", blk.Major, blk.Revision))
	m.Add(cat, "Size", fmt.Sprintf("%d bytes", blk.Size()))
	m.Add(cat, "LanguageWidth", detected.String())
	if blk.Padding > 0 {
		m.Add(cat, "Padding", fmt.Sprintf("%d bytes", blk.Padding))
	}

	for _, f := range blk.Frames {
		switch {
		case tagframe.HasLanguage(f.ID):
			lf, err := tagframe.ParseLanguage(f, blk.LangWidth)
			if err != nil {
				m.Add(cat, f.ID, err.Error())
				continue
			}
			key := fmt.Sprintf("%s[%s]", f.ID, strings.TrimRight(lf.Language, "\x00"))
			if d := lf.Description(); d != "" {
				key += " " + d
			}
			m.Add(cat, key, truncate(lf.Text()))
		case f.ID == "APIC":
			pic, err := tagframe.ParsePicture(f)
			if err != nil {
				m.Add(cat, f.ID, err.Error())
				continue
			}
			m.Add(cat, "APIC", fmt.Sprintf("%s, %d bytes", pic.MIMEType, len(pic.Data)))
			if fields, err := image.Cover(pic.Data); err == nil {
				m.Fields = append(m.Fields, fields...)
			}
		default:
			if v, ok := tagframe.TextValue(f); ok {
				m.Add(cat, f.ID, truncate(v))
			} else {
				m.Add(cat, f.ID, fmt.Sprintf("%d bytes", len(f.Payload)))
			}
		}
	}
}

// truncate shortens s to at most limit bytes without splitting a UTF-8
// sequence.
func truncate(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
