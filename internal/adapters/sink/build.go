package sink

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/okian/zonewatch/pkg/logger"
)

// Deps carries what the configured sinks need.
type Deps struct {
	SpreadsheetPath string
	// Location renders spreadsheet timestamps. Nil means time.Local.
	Location *time.Location
	DB       *sql.DB
	Logger   logger.Logger
}

// Build returns a Multi with one sink per name, in order, except that the
// spreadsheet goes last: its rows cannot be rewritten, so it is only
// appended to once every other sink accepted the batch. Duplicate names are
// ignored.
func Build(names []string, deps Deps) (Multi, error) {
	out := make(Multi, 0, len(names))
	var appendOnly Sink
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case NameSpreadsheet:
			if deps.SpreadsheetPath == "" {
				return nil, fmt.Errorf("%w: spreadsheet sink needs a path", ErrUnknownSink)
			}
			appendOnly = NewSpreadsheetSink(deps.SpreadsheetPath, WithLocation(deps.Location))
		case NamePostgres:
			if deps.DB == nil {
				return nil, fmt.Errorf("%w: postgres sink needs a database", ErrUnknownSink)
			}
			out = append(out, NewPostgresSink(deps.DB))
		case NameLog:
			out = append(out, NewLogSink(deps.Logger))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSink, raw)
		}
	}
	if appendOnly != nil {
		out = append(out, appendOnly)
	}
	return out, nil
}
