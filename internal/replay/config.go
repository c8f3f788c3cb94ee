package replay

import "time"

// Config holds configuration for an offline replay.
type Config struct {
	ZonesPath string   // GeoJSON FeatureCollection of zones
	StatePath string   // containment state file; empty keeps state in memory
	Files     []string // raw fix files, evaluated in order
	Format    string   // json or gtfsrt

	Layout          string         // timestamp layout
	Location        *time.Location // timestamp location
	TimestampPolicy string         // strict or drop
	FirstSeenPolicy string         // run or pair
	TimeOrder       bool           // sort fixes by time within a file
	Filter          string         // CEL fix filter

	DryRun bool // evaluate against StatePath without writing it back
}

// Stats holds replay totals.
type Stats struct {
	Files     int
	Records   int
	Fixes     int
	Dropped   int
	Filtered  int
	Events    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
