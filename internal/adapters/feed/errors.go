package feed

import "errors"

var (
	// ErrFetch is returned when the feed cannot be retrieved.
	ErrFetch = errors.New("feed: fetch")
	// ErrStatus is returned for non-2xx responses.
	ErrStatus = errors.New("feed: unexpected status")
	// ErrDecode is returned when the payload cannot be decoded.
	ErrDecode = errors.New("feed: decode")
	// ErrUnknownFormat is returned by DecoderFor for unsupported formats.
	ErrUnknownFormat = errors.New("feed: unknown format")
)
