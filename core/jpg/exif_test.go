package jpg_test

import (
	"errors"
	"testing"

	"github.com/ankit-chaubey/xm-surgery/core/jpg"
)

func TestCoverEXIFRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"png", []byte("\x89PNG\r\n\x1a\n")},
		{"jpeg without exif", []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04, 0x00, 0x00, 0xFF, 0xD9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := jpg.CoverEXIF(tt.data); !errors.Is(err, jpg.ErrNoEXIF) {
				t.Errorf("CoverEXIF() error = %v, want ErrNoEXIF", err)
			}
		})
	}
}
