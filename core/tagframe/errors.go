package tagframe

import "errors"

var (
	ErrBadMagic       = errors.New("tagframe: bad magic")
	ErrTruncatedFrame = errors.New("tagframe: truncated frame")
	ErrSizeMismatch   = errors.New("tagframe: size mismatch")
	ErrDuplicateFrame = errors.New("tagframe: duplicate frame id")
	ErrTooLarge       = errors.New("tagframe: block too large")
	ErrNotConforming  = errors.New("tagframe: block rejected by standard parser")
)
