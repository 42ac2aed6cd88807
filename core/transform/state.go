package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// builtinKey is the built-in key of the aes-ctr scheme and the HKDF input
// of keyed-sbox.
var builtinKey = []byte("ximalayaximalayaximalayaximalaya")

// codec applies one scheme in both directions. Implementations hold only
// derived, read-only material.
type codec interface {
	decrypt(dst, src []byte)
	encrypt(dst, src []byte)
}

type deriveFunc func(h Header) (codec, error)

// schemes is the registry of known transform variants.
var schemes = map[Scheme]deriveFunc{
	SchemeAESCTR:    deriveAESCTR,
	SchemeKeyedSBox: deriveKeyedSBox,
}

// State is the Transform State derived from one container header.
type State struct {
	header Header
	codec  codec
}

// Derive builds the Transform State for h.
func Derive(h Header) (*State, error) {
	derive, ok := schemes[h.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, h.Scheme)
	}
	c, err := derive(h)
	if err != nil {
		return nil, err
	}
	return &State{header: h, codec: c}, nil
}

// Header returns the header the state was derived from.
func (s *State) Header() Header { return s.header }

// Scheme returns the transform variant in use.
func (s *State) Scheme() Scheme { return s.header.Scheme }

// Decrypt returns the plaintext of payload. The result has the same length.
func (s *State) Decrypt(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrPayloadEmpty
	}
	out := make([]byte, len(payload))
	s.codec.decrypt(out, payload)
	return out, nil
}

// Encrypt is the inverse of Decrypt.
func (s *State) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, ErrPayloadEmpty
	}
	out := make([]byte, len(plain))
	s.codec.encrypt(out, plain)
	return out, nil
}

// Decrypt parses header, derives its state and decrypts payload.
func Decrypt(header, payload []byte) ([]byte, error) {
	st, err := stateFor(header)
	if err != nil {
		return nil, err
	}
	return st.Decrypt(payload)
}

// Encrypt parses header, derives its state and encrypts plain.
func Encrypt(header, plain []byte) ([]byte, error) {
	st, err := stateFor(header)
	if err != nil {
		return nil, err
	}
	return st.Encrypt(plain)
}

func stateFor(header []byte) (*State, error) {
	h, err := ParseHeader(header)
	if err != nil {
		return nil, err
	}
	return Derive(h)
}

// ─── aes-ctr ─────────────────────────────────────────────────────────────────

type aesCTR struct {
	block cipher.Block
	iv    [aes.BlockSize]byte
}

func deriveAESCTR(h Header) (codec, error) {
	block, err := aes.NewCipher(builtinKey)
	if err != nil {
		return nil, fmt.Errorf("transform: aes key: %w", err)
	}
	return &aesCTR{block: block, iv: h.IV}, nil
}

func (c *aesCTR) decrypt(dst, src []byte) {
	cipher.NewCTR(c.block, c.iv[:]).XORKeyStream(dst, src)
}

func (c *aesCTR) encrypt(dst, src []byte) {
	c.decrypt(dst, src)
}

// ─── keyed-sbox ──────────────────────────────────────────────────────────────

const sboxKeyLen = 32

// keyedSBox substitutes every byte through a keyed permutation after mixing
// it with a position-dependent key byte:
//
//	c[i] = sbox[p[i] ^ k(i)]
//	k(i) = key[i%32] ^ byte(i/32)
type keyedSBox struct {
	key  [sboxKeyLen]byte
	sbox [256]byte
	inv  [256]byte
}

func deriveKeyedSBox(h Header) (codec, error) {
	info := make([]byte, 0, len("xm-sbox")+4)
	info = append(info, "xm-sbox"...)
	info = binary.BigEndian.AppendUint32(info, h.TrackID)
	r := hkdf.New(sha256.New, builtinKey, h.IV[:], info)

	c := &keyedSBox{}
	if _, err := io.ReadFull(r, c.key[:]); err != nil {
		return nil, fmt.Errorf("transform: derive key: %w", err)
	}

	for i := range c.sbox {
		c.sbox[i] = byte(i)
	}
	// Fisher-Yates driven by the HKDF stream.
	var rnd [2]byte
	for i := 255; i > 0; i-- {
		if _, err := io.ReadFull(r, rnd[:]); err != nil {
			return nil, fmt.Errorf("transform: derive sbox: %w", err)
		}
		j := int(binary.BigEndian.Uint16(rnd[:])) % (i + 1)
		c.sbox[i], c.sbox[j] = c.sbox[j], c.sbox[i]
	}
	for i, v := range c.sbox {
		c.inv[v] = byte(i)
	}
	return c, nil
}

func (c *keyedSBox) keyAt(i int) byte {
	return c.key[i%sboxKeyLen] ^ byte(i/sboxKeyLen)
}

func (c *keyedSBox) decrypt(dst, src []byte) {
	for i, b := range src {
		dst[i] = c.inv[b] ^ c.keyAt(i)
	}
}

func (c *keyedSBox) encrypt(dst, src []byte) {
	for i, b := range src {
		dst[i] = c.sbox[b^c.keyAt(i)]
	}
}
