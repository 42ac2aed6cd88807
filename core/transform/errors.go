package transform

import "errors"

var (
	ErrHeaderTooShort     = errors.New("transform: header too short")
	ErrUnsupportedVariant = errors.New("transform: unsupported variant")
	ErrPayloadEmpty       = errors.New("transform: payload empty")
)
