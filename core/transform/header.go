// Package transform reverses the byte transform applied to the payload of
// an .xm container.
//
// A container starts with a fixed HeaderSize-byte header carrying the
// scheme id, flags, track id and IV. Derive turns a header into an
// immutable State; State.Decrypt and State.Encrypt are exact inverses and
// never change the payload length.
package transform

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// HeaderSize is the fixed length of the container header.
const HeaderSize = 32

// Magic opens every container header.
var Magic = [4]byte{'X', 'M', 'L', 'Y'}

// FlagTagBlock marks a payload whose plaintext begins with a tag block.
const FlagTagBlock uint8 = 0x01

// Scheme identifies one transform variant.
type Scheme uint8

const (
	SchemeAESCTR    Scheme = 1
	SchemeKeyedSBox Scheme = 2
)

var schemeNames = map[Scheme]string{
	SchemeAESCTR:    "aes-ctr",
	SchemeKeyedSBox: "keyed-sbox",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

// ParseScheme maps a scheme name ("aes-ctr", "keyed-sbox") to its id.
func ParseScheme(name string) (Scheme, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range schemeNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown scheme %q", ErrUnsupportedVariant, name)
}

// Header is the decoded fixed-size container header.
type Header struct {
	Scheme  Scheme
	Flags   uint8
	TrackID uint32
	IV      [16]byte
}

// HasTagBlock reports whether the plaintext payload starts with a tag block.
func (h Header) HasTagBlock() bool {
	return h.Flags&FlagTagBlock != 0
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes, need %d", ErrHeaderTooShort, len(b), HeaderSize)
	}
	if !bytes.Equal(b[0:4], Magic[:]) {
		return Header{}, fmt.Errorf("%w: bad magic % x", ErrUnsupportedVariant, b[0:4])
	}
	h := Header{
		Scheme:  Scheme(b[4]),
		Flags:   b[5],
		TrackID: binary.BigEndian.Uint32(b[8:12]),
	}
	copy(h.IV[:], b[16:32])
	if _, ok := schemes[h.Scheme]; !ok {
		return Header{}, fmt.Errorf("%w: %s", ErrUnsupportedVariant, h.Scheme)
	}
	return h, nil
}

// Marshal encodes h into a HeaderSize-byte slice.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	buf[4] = byte(h.Scheme)
	buf[5] = h.Flags
	binary.BigEndian.PutUint32(buf[8:12], h.TrackID)
	copy(buf[16:32], h.IV[:])
	return buf
}
