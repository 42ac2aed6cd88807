package tagframe

import (
	"bytes"
	"fmt"

	"github.com/bogem/id3v2/v2"
)

// Verify re-reads a serialized block with a standards-conforming ID3 parser
// and rejects language fields it cannot make sense of.
func Verify(b []byte) error {
	blk, err := Parse(b)
	if err != nil {
		return err
	}
	if blk.LangWidth == Lang2 {
		return fmt.Errorf("%w: 2-byte language fields", ErrNotConforming)
	}

	t, err := id3v2.ParseReader(bytes.NewReader(b), id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConforming, err)
	}
	for _, id := range []string{"COMM", "USLT"} {
		frames := t.GetFrames(id)
		if _, ok := blk.Frame(id); ok && len(frames) == 0 {
			return fmt.Errorf("%w: %s dropped", ErrNotConforming, id)
		}
		for _, f := range frames {
			var lang string
			switch v := f.(type) {
			case id3v2.CommentFrame:
				lang = v.Language
			case id3v2.UnsynchronisedLyricsFrame:
				lang = v.Language
			default:
				return fmt.Errorf("%w: %s unreadable", ErrNotConforming, id)
			}
			if !validLanguage(lang) {
				return fmt.Errorf("%w: %s language %q", ErrNotConforming, id, lang)
			}
		}
	}
	return nil
}

// validLanguage accepts three-letter ISO 639 codes and the "XXX" marker.
func validLanguage(lang string) bool {
	if len(lang) != 3 {
		return false
	}
	_, ok := knownLanguage(lang)
	return ok
}
