// Package tagframe reads and rewrites ID3v2.3/2.4 tag blocks byte for byte,
// including blocks whose language fields are two bytes wide instead of the
// three the ID3 standard prescribes.
//
// Frame payloads are kept raw, so Serialize(Parse(b)) reproduces b exactly
// unless a frame was deliberately rewritten.
package tagframe

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	headerLen      = 10
	frameHeaderLen = 10
	footerLen      = 10
)

// Tag header flags.
const (
	FlagUnsync       byte = 0x80
	FlagExtended     byte = 0x40
	FlagExperimental byte = 0x20
	FlagFooter       byte = 0x10
)

// Frame is one tag frame with its payload exactly as stored.
type Frame struct {
	ID      string
	Flags   uint16
	Payload []byte
}

// Block is a parsed tag block.
type Block struct {
	Major    byte
	Revision byte
	Flags    byte
	// Extended is the raw extended header, size field included.
	Extended []byte
	Frames   []Frame
	// Padding is the number of zero bytes after the last frame.
	Padding   int
	LangWidth LangWidth

	parsedLen int
	// stored and decoded hold a 2.3 unsynchronised body as read and after
	// decoding. An unmodified block is written back from stored, whatever
	// stuffing policy the original encoder used.
	stored  []byte
	decoded []byte
}

type options struct {
	width LangWidth
}

// Option tunes Parse.
type Option func(*options)

// WithLanguageWidth forces the language field width instead of detecting it.
func WithLanguageWidth(w LangWidth) Option {
	return func(o *options) { o.width = w }
}

// Parse reads the tag block at the start of b. Bytes after the block are
// ignored; Size reports where they begin.
func Parse(b []byte, opts ...Option) (*Block, error) {
	o := options{width: LangAuto}
	for _, opt := range opts {
		opt(&o)
	}

	if len(b) < 3 || !bytes.Equal(b[:3], []byte("ID3")) {
		return nil, ErrBadMagic
	}
	if len(b) < headerLen {
		return nil, fmt.Errorf("%w: tag header needs %d bytes, have %d", ErrTruncatedFrame, headerLen, len(b))
	}
	blk := &Block{Major: b[3], Revision: b[4], Flags: b[5]}
	if blk.Major != 3 && blk.Major != 4 {
		return nil, fmt.Errorf("%w: unsupported version 2.%d", ErrBadMagic, blk.Major)
	}
	size, ok := decodeSynchsafe(b[6:10])
	if !ok {
		return nil, fmt.Errorf("%w: size is not synchsafe", ErrBadMagic)
	}

	total := headerLen + size
	if blk.hasFooter() {
		total += footerLen
	}
	if len(b) < total {
		return nil, fmt.Errorf("%w: block declares %d bytes, have %d", ErrTruncatedFrame, total, len(b))
	}
	blk.parsedLen = total
	if blk.hasFooter() {
		footer := b[headerLen+size : total]
		if !bytes.Equal(footer[0:3], []byte("3DI")) || !bytes.Equal(footer[3:], b[3:headerLen]) {
			return nil, fmt.Errorf("%w: footer % x does not mirror the header", ErrSizeMismatch, footer)
		}
	}

	body := b[headerLen : headerLen+size]
	if blk.unsyncBody() {
		blk.stored = append([]byte(nil), body...)
		body = decodeUnsync(body)
		blk.decoded = body
	}

	pos := 0
	if blk.Flags&FlagExtended != 0 {
		n, err := blk.extendedLen(body)
		if err != nil {
			return nil, err
		}
		blk.Extended = append([]byte(nil), body[:n]...)
		pos = n
	}

	seen := make(map[string]bool)
	for pos < len(body) {
		if body[pos] == 0 {
			for _, c := range body[pos:] {
				if c != 0 {
					return nil, fmt.Errorf("%w: non-zero byte in padding at offset %d", ErrSizeMismatch, pos)
				}
			}
			blk.Padding = len(body) - pos
			break
		}
		if len(body)-pos < frameHeaderLen {
			return nil, fmt.Errorf("%w: %d stray bytes at end of block", ErrSizeMismatch, len(body)-pos)
		}
		hdr := body[pos : pos+frameHeaderLen]
		id := string(hdr[0:4])
		if !validFrameID(id) {
			return nil, fmt.Errorf("%w: invalid frame id %q at offset %d", ErrSizeMismatch, id, pos)
		}
		n, err := blk.frameSize(hdr[4:8])
		if err != nil {
			return nil, fmt.Errorf("frame %s: %w", id, err)
		}
		pos += frameHeaderLen
		if n > len(body)-pos {
			return nil, fmt.Errorf("%w: frame %s declares %d bytes, %d left in block", ErrSizeMismatch, id, n, len(body)-pos)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFrame, id)
		}
		seen[id] = true
		blk.Frames = append(blk.Frames, Frame{
			ID:      id,
			Flags:   binary.BigEndian.Uint16(hdr[8:10]),
			Payload: append([]byte(nil), body[pos:pos+n]...),
		})
		pos += n
	}

	blk.LangWidth = o.width
	if blk.LangWidth == LangAuto {
		blk.LangWidth = detectWidth(blk.Frames)
	}
	return blk, nil
}

// Serialize is the structural inverse of Parse.
func Serialize(blk *Block) ([]byte, error) {
	return blk.Serialize()
}

// Serialize encodes the block, frames in their current order.
func (blk *Block) Serialize() ([]byte, error) {
	var body bytes.Buffer
	body.Write(blk.Extended)
	for _, f := range blk.Frames {
		if len(f.ID) != 4 {
			return nil, fmt.Errorf("tagframe: frame id %q is not 4 bytes", f.ID)
		}
		if len(f.Payload) > maxSynchsafe {
			return nil, fmt.Errorf("%w: frame %s is %d bytes", ErrTooLarge, f.ID, len(f.Payload))
		}
		var hdr [frameHeaderLen]byte
		copy(hdr[0:4], f.ID)
		if blk.Major == 4 {
			putSynchsafe(hdr[4:8], len(f.Payload))
		} else {
			binary.BigEndian.PutUint32(hdr[4:8], uint32(len(f.Payload)))
		}
		binary.BigEndian.PutUint16(hdr[8:10], f.Flags)
		body.Write(hdr[:])
		body.Write(f.Payload)
	}
	body.Write(make([]byte, blk.Padding))

	raw := body.Bytes()
	if blk.unsyncBody() {
		if blk.stored != nil && bytes.Equal(raw, blk.decoded) {
			raw = blk.stored
		} else {
			raw = encodeUnsync(raw)
		}
	}
	if len(raw) > maxSynchsafe {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}

	out := make([]byte, 0, headerLen+len(raw)+footerLen)
	hdr := []byte{'I', 'D', '3', blk.Major, blk.Revision, blk.Flags, 0, 0, 0, 0}
	putSynchsafe(hdr[6:10], len(raw))
	out = append(out, hdr...)
	out = append(out, raw...)
	if blk.hasFooter() {
		out = append(out, '3', 'D', 'I')
		out = append(out, hdr[3:]...)
	}
	return out, nil
}

// Size is the number of input bytes the block occupies, header and footer
// included. Blocks built in memory report their serialized length.
func (blk *Block) Size() int {
	if blk.parsedLen > 0 {
		return blk.parsedLen
	}
	b, err := blk.Serialize()
	if err != nil {
		return 0
	}
	return len(b)
}

// Frame returns the frame with the given id.
func (blk *Block) Frame(id string) (Frame, bool) {
	for _, f := range blk.Frames {
		if f.ID == id {
			return f, true
		}
	}
	return Frame{}, false
}

func (blk *Block) hasFooter() bool {
	return blk.Major == 4 && blk.Flags&FlagFooter != 0
}

// unsyncBody reports whether unsynchronisation applies to the whole body.
// In 2.4 it is a per-frame property and frame payloads stay as stored.
func (blk *Block) unsyncBody() bool {
	return blk.Major == 3 && blk.Flags&FlagUnsync != 0
}

func (blk *Block) extendedLen(body []byte) (int, error) {
	if len(body) < 4 {
		return 0, fmt.Errorf("%w: extended header", ErrSizeMismatch)
	}
	var n int
	if blk.Major == 4 {
		v, ok := decodeSynchsafe(body[0:4])
		if !ok {
			return 0, fmt.Errorf("%w: extended header size is not synchsafe", ErrSizeMismatch)
		}
		n = v
	} else {
		n = int(binary.BigEndian.Uint32(body[0:4])) + 4
	}
	if n < 4 || n > len(body) {
		return 0, fmt.Errorf("%w: extended header declares %d bytes", ErrSizeMismatch, n)
	}
	return n, nil
}

func (blk *Block) frameSize(b []byte) (int, error) {
	if blk.Major == 4 {
		n, ok := decodeSynchsafe(b)
		if !ok {
			return 0, fmt.Errorf("%w: frame size is not synchsafe", ErrSizeMismatch)
		}
		return n, nil
	}
	n := binary.BigEndian.Uint32(b)
	if n > maxSynchsafe {
		return 0, fmt.Errorf("%w: frame size %d", ErrSizeMismatch, n)
	}
	return int(n), nil
}

func validFrameID(id string) bool {
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return len(id) == 4
}
