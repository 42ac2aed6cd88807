package tagframe

import (
	"bytes"
	"fmt"
)

// Picture is a decoded APIC frame.
type Picture struct {
	MIMEType    string
	Type        byte
	Description string
	Data        []byte
}

// ParsePicture decodes an attached picture frame.
func ParsePicture(f Frame) (Picture, error) {
	if f.ID != "APIC" {
		return Picture{}, fmt.Errorf("tagframe: frame %s is not APIC", f.ID)
	}
	p := f.Payload
	if len(p) < 1 {
		return Picture{}, fmt.Errorf("%w: empty APIC", ErrTruncatedFrame)
	}
	enc := p[0]
	mimeEnd := bytes.IndexByte(p[1:], 0)
	if mimeEnd < 0 {
		return Picture{}, fmt.Errorf("%w: APIC mime type unterminated", ErrTruncatedFrame)
	}
	pic := Picture{MIMEType: string(p[1 : 1+mimeEnd])}
	rest := p[1+mimeEnd+1:]
	if len(rest) < 1 {
		return Picture{}, fmt.Errorf("%w: APIC picture type missing", ErrTruncatedFrame)
	}
	pic.Type = rest[0]
	desc, data := splitTerminated(enc, rest[1:])
	pic.Description = decodeText(enc, desc)
	pic.Data = data
	return pic, nil
}
