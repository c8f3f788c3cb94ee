// Package feed retrieves raw vehicle positions from external sources.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/zonewatch/internal/domain/model"
)

// Supported feed formats.
const (
	FormatJSON   = "json"
	FormatGTFSRT = "gtfsrt"
)

// Source returns the raw records of one poll.
type Source interface {
	Fetch(ctx context.Context) ([]model.Raw, error)
}

// Decoder turns a payload into raw records.
type Decoder func(r io.Reader) ([]model.Raw, error)

// DecodeJSON decodes a JSON array of {placa, latitude, longitude, dataposicao}.
// Only a payload that is not an array fails; an element that does not decode
// is returned with Malformed set so the normalizer drops it.
func DecodeJSON(r io.Reader) ([]model.Raw, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: json: %w", ErrDecode, err)
	}
	raws := make([]model.Raw, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &raws[i]); err != nil {
			raws[i] = model.Raw{Malformed: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return raws, nil
}

// DecoderFor returns the decoder for format. GTFS-RT timestamps are rendered
// with layout in loc so they pass through the same normalizer as JSON.
func DecoderFor(format, layout string, loc *time.Location) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		return DecodeJSON, nil
	case FormatGTFSRT:
		return DecodeGTFSRT(layout, loc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
