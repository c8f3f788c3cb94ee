package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/zonewatch/internal/domain/model"
)

// Sheet layout of the tracking workbook.
const (
	SheetEvents = "Eventos"
	SheetLog    = "Log_API"

	// TimeLayout renders timestamps in the workbook.
	TimeLayout = time.DateTime

	logStatusOK    = "OK"
	logStatusError = "ERRO"
)

var (
	eventsHeader = []any{"veiculo", "unidade", "tipo", "timestamp", "lat", "lon"}
	logHeader    = []any{"timestamp", "status", "mensagem"}
)

// KindLabel is the workbook label of an event kind.
func KindLabel(k model.EventKind) string {
	switch k {
	case model.InitialInside:
		return "POSIÇÃO INICIAL"
	case model.Entered:
		return "ENTRADA"
	case model.Exited:
		return "SAÍDA"
	default:
		return k.String()
	}
}

// SpreadsheetSink appends events and pass logs to an xlsx workbook. The
// workbook and its sheets are created when missing.
type SpreadsheetSink struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
	now  func() time.Time
}

// SpreadsheetOption configures a SpreadsheetSink.
type SpreadsheetOption func(*SpreadsheetSink)

// WithLocation renders timestamps in loc. The default is time.Local.
func WithLocation(loc *time.Location) SpreadsheetOption {
	return func(s *SpreadsheetSink) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the clock used for pass log rows.
func WithClock(now func() time.Time) SpreadsheetOption {
	return func(s *SpreadsheetSink) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSpreadsheetSink returns a sink writing to path.
func NewSpreadsheetSink(path string, opts ...SpreadsheetOption) *SpreadsheetSink {
	s := &SpreadsheetSink{path: path, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Sink.
func (s *SpreadsheetSink) Name() string { return NameSpreadsheet }

// Init creates the workbook with both sheets if it does not exist.
func (s *SpreadsheetSink) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, created, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() { _ = f.Close() }()
	if !created {
		return nil
	}
	return s.save(f)
}

// Write implements Sink. An empty batch leaves the workbook untouched.
func (s *SpreadsheetSink) Write(_ context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(events))
	for _, e := range events {
		rows = append(rows, []any{
			e.VehicleID,
			e.ZoneID,
			KindLabel(e.Kind),
			e.ObservedAt.In(s.loc).Format(TimeLayout),
			e.Latitude,
			e.Longitude,
		})
	}
	if err := s.append(SheetEvents, rows); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// RecordPass implements Recorder.
func (s *SpreadsheetSink) RecordPass(_ context.Context, r PassReport) error {
	status, msg := logStatusOK, fmt.Sprintf("%d veículos, %d eventos", r.Records, r.Events)
	if r.Err != nil {
		status, msg = logStatusError, r.Err.Error()
	}
	row := []any{s.now().In(s.loc).Format(TimeLayout), status, msg}
	if err := s.append(SheetLog, [][]any{row}); err != nil {
		return fmt.Errorf("%w: %w", ErrRecord, err)
	}
	return nil
}

func (s *SpreadsheetSink) append(sheet string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, _, err := s.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	existing, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", sheet, err)
	}
	next := len(existing) + 1
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write %s: %w", sheet, err)
		}
	}
	return s.save(f)
}

// open returns the workbook with both sheets present. created is true when
// the file did not exist.
func (s *SpreadsheetSink) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	created := false
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f, err = newWorkbook()
		if err != nil {
			return nil, false, err
		}
		created = true
	case err != nil:
		return nil, false, fmt.Errorf("open %s: %w", s.path, err)
	}

	for _, sh := range []struct {
		name   string
		header []any
	}{{SheetEvents, eventsHeader}, {SheetLog, logHeader}} {
		if err := ensureSheet(f, sh.name, sh.header); err != nil {
			_ = f.Close()
			return nil, false, err
		}
	}
	return f, created, nil
}

func newWorkbook() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetEvents); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func ensureSheet(f *excelize.File, name string, header []any) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if idx == -1 {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return f.SetSheetRow(name, "A1", &header)
	}
	return nil
}

// save writes to a temporary file and renames it over the workbook.
func (s *SpreadsheetSink) save(f *excelize.File) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, "."+filepath.Base(s.path)+".tmp.xlsx")
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}
