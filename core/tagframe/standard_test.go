package tagframe_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ankit-chaubey/xm-surgery/core/tagframe"
	"github.com/bogem/id3v2/v2"
)

// standardTag authors a conforming tag with an independent ID3 writer.
func standardTag(t *testing.T, version byte) []byte {
	t.Helper()
	tg := id3v2.NewEmptyTag()
	tg.SetVersion(version)
	tg.SetDefaultEncoding(id3v2.EncodingISO)
	tg.SetTitle("Song")
	tg.SetArtist("Artist")
	tg.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingISO,
		Language:    "eng",
		Description: "d",
		Text:        "a comment",
	})
	var buf bytes.Buffer
	if _, err := tg.WriteTo(&buf); err != nil {
		t.Fatalf("id3v2 WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestStandardTagRoundTrip(t *testing.T) {
	for _, v := range []byte{3, 4} {
		t.Run(fmt.Sprintf("v2.%d", v), func(t *testing.T) {
			input := standardTag(t, v)
			blk, err := tagframe.Parse(input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if blk.Major != v {
				t.Errorf("Major = %d, want %d", blk.Major, v)
			}
			if blk.LangWidth != tagframe.Lang3 {
				t.Errorf("LangWidth = %v, want 3", blk.LangWidth)
			}
			out, err := blk.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !bytes.Equal(out, input) {
				t.Errorf("round trip mismatch:\n got % x\nwant % x", out, input)
			}

			lfs, err := blk.LanguageFrames()
			if err != nil || len(lfs) != 1 {
				t.Fatalf("LanguageFrames() = %v, %v", lfs, err)
			}
			if lfs[0].Language != "eng" || lfs[0].Description() != "d" || lfs[0].Text() != "a comment" {
				t.Errorf("comment = %q/%q/%q", lfs[0].Language, lfs[0].Description(), lfs[0].Text())
			}
			if n, _ := blk.RepairLanguage(); n != 0 {
				t.Errorf("RepairLanguage() rewrote %d frames of a standard block", n)
			}
			if err := tagframe.Verify(out); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}
