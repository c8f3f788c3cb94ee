package replay_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/zonewatch/internal/adapters/repository"
	"github.com/okian/zonewatch/internal/replay"
	"github.com/okian/zonewatch/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const zonesJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"id":"Z1"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}}]}`

func write(dir, name, content string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		panic(err)
	}
	return p
}

func TestRun(t *testing.T) {
	Convey("Given a zone file and two recorded polls", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		cfg := &replay.Config{
			ZonesPath: write(dir, "zones.geojson", zonesJSON),
			StatePath: filepath.Join(dir, "state.json"),
			Files: []string{
				write(dir, "1.json", `[{"placa":"V1","latitude":0.5,"longitude":0.5,"dataposicao":"2024-05-01 10:00:00"}]`),
				write(dir, "2.json", `[{"placa":"V1","latitude":5,"longitude":5,"dataposicao":"2024-05-01 10:05:00"},
				                       {"placa":"V2","latitude":0.5,"longitude":0.5,"dataposicao":"2024-05-01 10:05:00"}]`),
			},
			Location: time.UTC,
		}
		var out bytes.Buffer

		Convey("When the files are replayed", func() {
			stats, err := replay.Run(ctx, cfg, &out)

			Convey("Then every event is printed as a JSON line in order", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(len(lines), ShouldEqual, 3)
				So(lines[0], ShouldContainSubstring, `"kind":"initial_inside"`)
				So(lines[1], ShouldContainSubstring, `"kind":"exited"`)
				So(lines[2], ShouldContainSubstring, `"vehicle_id":"V2"`)
				So(lines[2], ShouldContainSubstring, `"kind":"entered"`)
			})

			Convey("Then the totals add up", func() {
				So(stats.Files, ShouldEqual, 2)
				So(stats.Records, ShouldEqual, 3)
				So(stats.Fixes, ShouldEqual, 3)
				So(stats.Events, ShouldEqual, 3)
				So(stats.EndTime.Before(stats.StartTime), ShouldBeFalse)
			})

			Convey("Then the state file is written", func() {
				st, found, err := repository.NewFileStore(cfg.StatePath).Load(ctx)
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(st.Inside("V2"), ShouldResemble, []string{"Z1"})
			})
		})

		Convey("When the replay is a dry run", func() {
			cfg.DryRun = true
			_, err := replay.Run(ctx, cfg, &out)

			Convey("Then the state file is left alone", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(cfg.StatePath)
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})

		Convey("When the pair policy is used without a state file", func() {
			cfg.StatePath = ""
			cfg.FirstSeenPolicy = "pair"
			_, err := replay.Run(ctx, cfg, &out)

			Convey("Then a vehicle first seen inside is initially inside", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(lines[2], ShouldContainSubstring, `"kind":"initial_inside"`)
			})
		})

		Convey("When a file has an unparseable timestamp", func() {
			cfg.Files = append(cfg.Files, write(dir, "3.json", `[{"placa":"V1","latitude":0.5,"longitude":0.5,"dataposicao":"yesterday"}]`))
			stats, err := replay.Run(ctx, cfg, &out)

			Convey("Then the replay stops at that file", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "3.json")
				So(stats.Files, ShouldEqual, 2)
			})
		})

		Convey("When no files are given", func() {
			cfg.Files = nil
			_, err := replay.Run(ctx, cfg, &out)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, replay.ErrNoFiles), ShouldBeTrue)
			})
		})

		Convey("When the help text is printed", func() {
			replay.ShowHelp(&out)

			Convey("Then it documents the flags", func() {
				So(out.String(), ShouldContainSubstring, "-zones")
				So(out.String(), ShouldContainSubstring, "-dry-run")
			})
		})
	})
}
