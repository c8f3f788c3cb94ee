package sink_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/zonewatch/internal/adapters/sink"
	"github.com/okian/zonewatch/internal/domain/model"
	"github.com/okian/zonewatch/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func events() []model.Event {
	return []model.Event{
		{VehicleID: "ABC1234", ZoneID: "DEPOT", Kind: model.InitialInside, ObservedAt: t0, Latitude: -23.5, Longitude: -46.6},
		{VehicleID: "XYZ9876", ZoneID: "YARD", Kind: model.Exited, ObservedAt: t0.Add(time.Minute), Latitude: -22.9, Longitude: -43.2},
	}
}

func rows(t *testing.T, path, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()
	r, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	return r
}

func TestSpreadsheetSink(t *testing.T) {
	ctx := context.Background()

	Convey("Given a spreadsheet sink on a new path", t, func() {
		path := filepath.Join(t.TempDir(), "Base_Rastreio_Dedicados.xlsx")
		clock := func() time.Time { return t0.Add(5 * time.Minute) }
		s := sink.NewSpreadsheetSink(path, sink.WithLocation(time.UTC), sink.WithClock(clock))
		So(s.Name(), ShouldEqual, sink.NameSpreadsheet)

		Convey("Init creates both sheets with headers", func() {
			So(s.Init(ctx), ShouldBeNil)
			So(rows(t, path, sink.SheetEvents), ShouldResemble, [][]string{{"veiculo", "unidade", "tipo", "timestamp", "lat", "lon"}})
			So(rows(t, path, sink.SheetLog), ShouldResemble, [][]string{{"timestamp", "status", "mensagem"}})

			Convey("And a second Init keeps existing rows", func() {
				So(s.Write(ctx, events()), ShouldBeNil)
				So(s.Init(ctx), ShouldBeNil)
				So(len(rows(t, path, sink.SheetEvents)), ShouldEqual, 3)
			})
		})

		Convey("Write appends one row per event", func() {
			So(s.Write(ctx, events()), ShouldBeNil)
			So(s.Write(ctx, events()[:1]), ShouldBeNil)

			r := rows(t, path, sink.SheetEvents)
			So(len(r), ShouldEqual, 4)
			So(r[1], ShouldResemble, []string{"ABC1234", "DEPOT", "POSIÇÃO INICIAL", "2024-05-01 10:00:00", "-23.5", "-46.6"})
			So(r[2][2], ShouldEqual, "SAÍDA")
			So(r[3][0], ShouldEqual, "ABC1234")
		})

		Convey("An empty batch does not create the workbook", func() {
			So(s.Write(ctx, nil), ShouldBeNil)
			_, err := excelize.OpenFile(path)
			So(err, ShouldNotBeNil)
		})

		Convey("RecordPass logs successes and failures", func() {
			So(s.RecordPass(ctx, sink.PassReport{ID: "p1", Records: 12, Events: 3}), ShouldBeNil)
			So(s.RecordPass(ctx, sink.PassReport{ID: "p2", Err: errors.New("feed: unexpected status: 503")}), ShouldBeNil)

			r := rows(t, path, sink.SheetLog)
			So(len(r), ShouldEqual, 3)
			So(r[1], ShouldResemble, []string{"2024-05-01 10:05:00", "OK", "12 veículos, 3 eventos"})
			So(r[2][1], ShouldEqual, "ERRO")
			So(r[2][2], ShouldEqual, "feed: unexpected status: 503")
		})
	})

	Convey("Given an existing workbook without the log sheet", t, func() {
		path := filepath.Join(t.TempDir(), "legacy.xlsx")
		f := excelize.NewFile()
		So(f.SetSheetName(f.GetSheetName(0), sink.SheetEvents), ShouldBeNil)
		So(f.SetSheetRow(sink.SheetEvents, "A1", &[]any{"veiculo", "unidade", "tipo", "timestamp", "lat", "lon"}), ShouldBeNil)
		So(f.SetSheetRow(sink.SheetEvents, "A2", &[]any{"OLD0001", "DEPOT", "ENTRADA", "2024-01-01 00:00:00", 1, 2}), ShouldBeNil)
		So(f.SaveAs(path), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		s := sink.NewSpreadsheetSink(path)
		So(s.RecordPass(context.Background(), sink.PassReport{Records: 1}), ShouldBeNil)
		So(s.Write(context.Background(), events()), ShouldBeNil)

		So(len(rows(t, path, sink.SheetEvents)), ShouldEqual, 4)
		So(len(rows(t, path, sink.SheetLog)), ShouldEqual, 2)
	})
}

func TestKindLabel(t *testing.T) {
	Convey("Event kinds have workbook labels", t, func() {
		So(sink.KindLabel(model.InitialInside), ShouldEqual, "POSIÇÃO INICIAL")
		So(sink.KindLabel(model.Entered), ShouldEqual, "ENTRADA")
		So(sink.KindLabel(model.Exited), ShouldEqual, "SAÍDA")
		So(sink.KindLabel(model.EventKind(0)), ShouldEqual, "unknown")
	})
}

type fakeSink struct {
	name    string
	err     error
	written [][]model.Event
	passes  []sink.PassReport
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(_ context.Context, events []model.Event) error {
	f.written = append(f.written, events)
	return f.err
}

type fakeRecorder struct {
	fakeSink
}

func (f *fakeRecorder) RecordPass(_ context.Context, r sink.PassReport) error {
	f.passes = append(f.passes, r)
	return f.err
}

func TestMulti(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fan-out over two sinks", t, func() {
		a := &fakeSink{name: "a"}
		b := &fakeRecorder{fakeSink{name: "b"}}
		m := sink.Multi{a, b}

		Convey("Write reaches every sink", func() {
			So(m.Write(ctx, events()), ShouldBeNil)
			So(len(a.written), ShouldEqual, 1)
			So(len(b.written), ShouldEqual, 1)
		})

		Convey("A failing sink stops the fan-out", func() {
			boom := errors.New("boom")
			a.err = boom
			err := m.Write(ctx, events())
			So(errors.Is(err, boom), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "sink a")
			So(len(b.written), ShouldEqual, 0)
		})

		Convey("RecordPass reaches only recorders", func() {
			So(m.RecordPass(ctx, sink.PassReport{ID: "p"}), ShouldBeNil)
			So(len(b.passes), ShouldEqual, 1)
			So(b.passes[0].Status(), ShouldEqual, "ok")
		})
	})
}

func TestLogSink(t *testing.T) {
	Convey("The log sink accepts events and passes", t, func() {
		s := sink.NewLogSink(logger.Nop())
		So(s.Name(), ShouldEqual, sink.NameLog)
		So(s.Write(context.Background(), events()), ShouldBeNil)
		So(s.RecordPass(context.Background(), sink.PassReport{Err: errors.New("x")}), ShouldBeNil)
	})
}

func TestJSONLinesSink(t *testing.T) {
	Convey("Given a JSON lines sink over a buffer", t, func() {
		var buf bytes.Buffer
		s := sink.NewJSONLinesSink(&buf)
		So(s.Name(), ShouldEqual, sink.NameJSONLines)

		Convey("When a batch is written", func() {
			So(s.Write(context.Background(), events()), ShouldBeNil)

			Convey("Then each event is one JSON line", func() {
				lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
				So(len(lines), ShouldEqual, 2)
				So(lines[0], ShouldEqual, `{"vehicle_id":"ABC1234","zone_id":"DEPOT","kind":"initial_inside","observed_at":"2024-05-01T10:00:00Z","latitude":-23.5,"longitude":-46.6}`)
				So(lines[1], ShouldContainSubstring, `"kind":"exited"`)
			})
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given sink names", t, func() {
		m, err := sink.Build([]string{" Spreadsheet ", "log", "log"}, sink.Deps{
			SpreadsheetPath: filepath.Join(t.TempDir(), "out.xlsx"),
			Logger:          logger.Nop(),
		})
		So(err, ShouldBeNil)
		So(len(m), ShouldEqual, 2)
		So(m[0].Name(), ShouldEqual, sink.NameLog)
		So(m[1].Name(), ShouldEqual, sink.NameSpreadsheet)

		_, err = sink.Build([]string{"postgres"}, sink.Deps{})
		So(errors.Is(err, sink.ErrUnknownSink), ShouldBeTrue)

		_, err = sink.Build([]string{"kafka"}, sink.Deps{})
		So(errors.Is(err, sink.ErrUnknownSink), ShouldBeTrue)
	})
}
