package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/zonewatch/internal/replay"
	"github.com/okian/zonewatch/pkg/logger"
)

func main() {
	var (
		zonesPath = flag.String("zones", "", "GeoJSON FeatureCollection of zones")
		statePath = flag.String("state", "", "Containment state file (default: in memory)")
		format    = flag.String("format", "json", "Input format: json or gtfsrt")
		layout    = flag.String("layout", time.DateTime, "Timestamp layout")
		location  = flag.String("location", "Local", "Timestamp location")
		tsPolicy  = flag.String("timestamp-policy", "strict", "strict or drop")
		firstSeen = flag.String("first-seen", "run", "run or pair")
		timeOrder = flag.Bool("time-order", false, "Sort fixes by observation time within each file")
		fixFilter = flag.String("filter", "", "CEL expression selecting fixes")
		dryRun    = flag.Bool("dry-run", false, "Do not write the state file back")
		logLevel  = flag.String("log-level", "warn", "Log level written to stderr")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *zonesPath == "" || flag.NArg() == 0 {
		replay.ShowHelp(os.Stderr)
		if !*help {
			os.Exit(2)
		}
		return
	}

	// Events go to stdout; logs go to stderr.
	logger.SetOutput(os.Stderr)
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	loc, err := time.LoadLocation(*location)
	if err != nil {
		os.Stderr.WriteString("invalid location: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	_, err = replay.Run(ctx, &replay.Config{
		ZonesPath:       *zonesPath,
		StatePath:       *statePath,
		Files:           flag.Args(),
		Format:          *format,
		Layout:          *layout,
		Location:        loc,
		TimestampPolicy: *tsPolicy,
		FirstSeenPolicy: *firstSeen,
		TimeOrder:       *timeOrder,
		Filter:          *fixFilter,
		DryRun:          *dryRun,
	}, os.Stdout)
	stop()
	if err != nil {
		os.Stderr.WriteString("replay failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
