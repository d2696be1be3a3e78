//go:build !opus

// ABOUTME: Opus stub when libopusfile is not available
// ABOUTME: Keeps .opus registered so users get a clear error
package decode

import (
	"errors"
	"fmt"
	"os"
)

// ErrOpusDisabled is returned for .opus files when built without the opus tag
var ErrOpusDisabled = errors.New("Opus support not enabled (build with -tags opus)")

func openOpus(f *os.File) (Reader, error) {
	return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, ErrOpusDisabled)
}
