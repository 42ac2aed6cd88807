package tagframe

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Text encodings.
const (
	EncodingISO88591 byte = 0
	EncodingUTF16    byte = 1
	EncodingUTF16BE  byte = 2
	EncodingUTF8     byte = 3
)

func decoderFor(enc byte) *encoding.Decoder {
	switch enc {
	case EncodingUTF16:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	case EncodingUTF8:
		return nil
	default:
		return charmap.ISO8859_1.NewDecoder()
	}
}

func decodeText(enc byte, b []byte) string {
	b = trimTerminator(enc, b)
	dec := decoderFor(enc)
	if dec == nil {
		return string(b)
	}
	out, err := dec.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func terminator(enc byte) []byte {
	if enc == EncodingUTF16 || enc == EncodingUTF16BE {
		return []byte{0, 0}
	}
	return []byte{0}
}

// splitTerminated cuts b at the first string terminator of the encoding.
func splitTerminated(enc byte, b []byte) (head, tail []byte) {
	term := terminator(enc)
	step := len(term)
	for i := 0; i+step <= len(b); i += step {
		if bytes.Equal(b[i:i+step], term) {
			return b[:i], b[i+step:]
		}
	}
	return b, nil
}

func hasTerminator(enc byte, b []byte) bool {
	_, tail := splitTerminated(enc, b)
	return tail != nil
}

func trimTerminator(enc byte, b []byte) []byte {
	term := terminator(enc)
	for len(b) >= len(term) && bytes.HasSuffix(b, term) {
		b = b[:len(b)-len(term)]
	}
	return b
}

// TextValue decodes a text information frame (T000-TZZZ, TXXX excluded).
// Multiple values are joined with "; ".
func TextValue(f Frame) (string, bool) {
	if len(f.ID) != 4 || f.ID[0] != 'T' || f.ID == "TXXX" || len(f.Payload) == 0 {
		return "", false
	}
	enc := f.Payload[0]
	var values []string
	rest := f.Payload[1:]
	for len(rest) > 0 {
		var v []byte
		v, rest = splitTerminated(enc, rest)
		if s := decodeText(enc, v); s != "" {
			values = append(values, s)
		}
	}
	return strings.Join(values, "; "), true
}
