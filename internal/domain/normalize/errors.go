package normalize

import "errors"

// Sentinel kinds for normalization errors.
var (
	ErrParseTimestamp = errors.New("timestamp parse failed")
	ErrInvalidPolicy  = errors.New("invalid timestamp policy")
)
