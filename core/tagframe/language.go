package tagframe

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// LangWidth is the byte width of the language field in COMM-like frames.
type LangWidth int

const (
	LangAuto LangWidth = 0
	Lang2    LangWidth = 2
	Lang3    LangWidth = 3
)

func (w LangWidth) String() string {
	switch w {
	case LangAuto:
		return "auto"
	case Lang2, Lang3:
		return fmt.Sprintf("%d", int(w))
	default:
		return fmt.Sprintf("LangWidth(%d)", int(w))
	}
}

// ParseLangWidth accepts "auto", "2" or "3".
func ParseLangWidth(s string) (LangWidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LangAuto, nil
	case "2":
		return Lang2, nil
	case "3":
		return Lang3, nil
	}
	return LangAuto, fmt.Errorf("tagframe: invalid language width %q", s)
}

// languageFrames are the frame ids whose payload starts with
// encoding + language.
var languageFrames = map[string]bool{
	"COMM": true,
	"USLT": true,
	"USER": true,
	"SYLT": true,
}

// HasLanguage reports whether frames with this id carry a language field.
func HasLanguage(id string) bool { return languageFrames[id] }

// LanguageFrame is a decoded view of a language-bearing frame.
type LanguageFrame struct {
	ID       string
	Encoding byte
	Language string
	// Rest is everything after the language field.
	Rest []byte
}

// ParseLanguage splits f's payload using a language field of width w.
func ParseLanguage(f Frame, w LangWidth) (LanguageFrame, error) {
	if !HasLanguage(f.ID) {
		return LanguageFrame{}, fmt.Errorf("tagframe: frame %s has no language field", f.ID)
	}
	if w != Lang2 && w != Lang3 {
		w = Lang3
	}
	n := int(w)
	if len(f.Payload) < 1+n {
		return LanguageFrame{}, fmt.Errorf("%w: %s payload is %d bytes", ErrTruncatedFrame, f.ID, len(f.Payload))
	}
	return LanguageFrame{
		ID:       f.ID,
		Encoding: f.Payload[0],
		Language: string(f.Payload[1 : 1+n]),
		Rest:     f.Payload[1+n:],
	}, nil
}

// Frame re-encodes lf as a raw frame payload.
func (lf LanguageFrame) Frame(flags uint16) Frame {
	p := make([]byte, 0, 1+len(lf.Language)+len(lf.Rest))
	p = append(p, lf.Encoding)
	p = append(p, lf.Language...)
	p = append(p, lf.Rest...)
	return Frame{ID: lf.ID, Flags: flags, Payload: p}
}

// Description and Text split Rest for COMM and USLT frames. USER frames
// have no description; Text returns the whole of Rest for them.
func (lf LanguageFrame) Description() string {
	if lf.ID != "COMM" && lf.ID != "USLT" {
		return ""
	}
	desc, _ := splitTerminated(lf.Encoding, lf.Rest)
	return decodeText(lf.Encoding, desc)
}

func (lf LanguageFrame) Text() string {
	switch lf.ID {
	case "COMM", "USLT":
		_, text := splitTerminated(lf.Encoding, lf.Rest)
		return decodeText(lf.Encoding, text)
	case "USER":
		return decodeText(lf.Encoding, lf.Rest)
	}
	return ""
}

// LanguageFrames decodes every language-bearing frame with the block's width.
func (blk *Block) LanguageFrames() ([]LanguageFrame, error) {
	var out []LanguageFrame
	for _, f := range blk.Frames {
		if !HasLanguage(f.ID) {
			continue
		}
		lf, err := ParseLanguage(f, blk.LangWidth)
		if err != nil {
			return nil, err
		}
		out = append(out, lf)
	}
	return out, nil
}

// RepairLanguage widens 2-byte language codes to ISO 639-2 codes and marks
// the block as 3-byte. It returns the number of frames rewritten.
func (blk *Block) RepairLanguage() (int, error) {
	if blk.LangWidth != Lang2 {
		return 0, nil
	}
	repaired := 0
	for i, f := range blk.Frames {
		if !HasLanguage(f.ID) {
			continue
		}
		lf, err := ParseLanguage(f, Lang2)
		if err != nil {
			return repaired, err
		}
		lf.Language = iso3(lf.Language)
		blk.Frames[i] = lf.Frame(f.Flags)
		repaired++
	}
	blk.LangWidth = Lang3
	return repaired, nil
}

// iso3 maps a two-letter code to its three-letter form; "XXX" marks an
// unknown language.
func iso3(code string) string {
	base, err := language.ParseBase(strings.ToLower(strings.TrimRight(code, "\x00 ")))
	if err != nil {
		return "XXX"
	}
	if s := base.ISO3(); len(s) == 3 {
		return s
	}
	return "XXX"
}

// detectWidth tries the 2-byte layout first on every language frame. A
// single frame that reads better with two bytes decides the whole block.
func detectWidth(frames []Frame) LangWidth {
	for _, f := range frames {
		if HasLanguage(f.ID) && frameWidth(f.ID, f.Payload) == Lang2 {
			return Lang2
		}
	}
	return Lang3
}

// frameWidth classifies one payload. Two letters followed by a non-letter
// fit only the 2-byte layout. When three letters follow the encoding byte,
// the frame layout and the language registry decide which reading is real.
func frameWidth(id string, p []byte) LangWidth {
	if len(p) < 3 || !isLangChar(p[1]) || !isLangChar(p[2]) {
		return LangAuto
	}
	if len(p) == 3 || !isLangChar(p[3]) {
		return Lang2
	}

	switch fits2, fits3 := fitsLayout(id, p, Lang2), fitsLayout(id, p, Lang3); {
	case !fits2:
		return Lang3
	case !fits3:
		return Lang2
	}

	base3, ok3 := knownLanguage(string(p[1:4]))
	base2, ok2 := knownLanguage(string(p[1:3]))
	switch {
	case ok3 && !ok2:
		return Lang3
	case ok2 && !ok3:
		return Lang2
	case ok2 && ok3:
		// "eng" is also "en" followed by a description starting with 'g'.
		// Keep the standard reading unless the three letters name an
		// obscure language with no two-letter code of its own.
		if base3 == base2 || len(base3.String()) == 2 {
			return Lang3
		}
		return Lang2
	}
	return Lang3
}

// fitsLayout reports whether the bytes after a language field of width w
// have the shape the frame type requires.
func fitsLayout(id string, p []byte, w LangWidth) bool {
	rest := p[1+int(w):]
	enc := p[0]
	switch id {
	case "COMM", "USLT":
		return hasTerminator(enc, rest)
	case "SYLT":
		// timestamp format, content type, descriptor
		return len(rest) >= 2 && (rest[0] == 1 || rest[0] == 2) && hasTerminator(enc, rest[2:])
	}
	return true
}

// bibliographic maps ISO 639-2/B codes still common in tags to their
// terminology form.
var bibliographic = map[string]string{
	"alb": "sqi", "arm": "hye", "baq": "eus", "bur": "mya", "chi": "zho",
	"cze": "ces", "dut": "nld", "fre": "fra", "geo": "kat", "ger": "deu",
	"gre": "ell", "ice": "isl", "mac": "mkd", "mao": "mri", "may": "msa",
	"per": "fas", "rum": "ron", "slo": "slk", "tib": "bod", "wel": "cym",
}

// knownLanguage resolves a 2- or 3-letter ISO 639 code written in a single
// case. "XXX" is the ID3 marker for an unknown language and is accepted.
func knownLanguage(code string) (language.Base, bool) {
	lower := strings.ToLower(code)
	if code != lower && code != strings.ToUpper(code) {
		return language.Base{}, false
	}
	if lower == "xxx" {
		return language.Base{}, true
	}
	if t, ok := bibliographic[lower]; ok {
		lower = t
	}
	base, err := language.ParseBase(lower)
	if err != nil {
		return language.Base{}, false
	}
	return base, true
}

func isLangChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
