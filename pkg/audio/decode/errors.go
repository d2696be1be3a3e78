// ABOUTME: Decoder error values
// ABOUTME: Sentinel errors shared by all format readers
package decode

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidFile       = errors.New("invalid audio file")
	ErrUnsupportedDepth  = errors.New("unsupported bit depth")
)
