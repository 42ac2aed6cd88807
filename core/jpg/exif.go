// Package jpg reads EXIF from cover art embedded in a tag block.
package jpg

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ankit-chaubey/xm-surgery/core"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ErrNoEXIF is returned for images that carry no EXIF segment.
var ErrNoEXIF = errors.New("jpg: no EXIF metadata found")

// Category labels the fields CoverEXIF returns.
const Category = "Cover EXIF"

// CoverEXIF decodes the EXIF fields of a JPEG cover image.
func CoverEXIF(data []byte) ([]core.MetaField, error) {
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		return nil, fmt.Errorf("%w: not a JPEG", ErrNoEXIF)
	}
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEXIF, err)
	}
	w := &walker{}
	if err := x.Walk(w); err != nil {
		return nil, err
	}
	return w.fields, nil
}

type walker struct {
	fields []core.MetaField
}

func (w *walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	v := strings.Trim(tag.String(), `"`)
	if v == "" || len(v) > 256 {
		return nil
	}
	w.fields = append(w.fields, core.MetaField{Key: string(name), Value: v, Category: Category})
	return nil
}
