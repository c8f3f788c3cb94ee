package replay

import (
	"io"
)

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `zonewatch replay
================

Evaluates recorded position files against a zone set, one pass per file,
and prints every derived event as a JSON line on stdout.

Usage:
  replay [options] FILE...

Options:
  -zones string
        GeoJSON FeatureCollection of zones (required)
  -state string
        Containment state file; a missing file means first run (default: in memory)
  -format string
        Input format: json or gtfsrt (default "json")
  -layout string
        Timestamp layout (default "2006-01-02 15:04:05")
  -location string
        Timestamp location (default "Local")
  -timestamp-policy string
        strict or drop (default "strict")
  -first-seen string
        run or pair (default "run")
  -time-order
        Sort fixes by observation time within each file
  -filter string
        CEL expression over vehicle_id, latitude, longitude, observed_at
  -dry-run
        Do not write the state file back
  -help
        Show this help message

Examples:
  # Replay a day of polls against a fresh state
  replay -zones UNIDADES.geojson polls/*.json

  # Continue from the service's state without touching it
  replay -zones UNIDADES.geojson -state estado_veiculos.json -dry-run latest.json
`)
}
