// Package filter narrows a batch of fixes with a CEL expression before
// they reach the geofence engine.
//
// The expression sees four variables: vehicle_id (string), latitude and
// longitude (double) and observed_at (timestamp). An empty expression
// accepts every fix.
package filter

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/okian/zonewatch/internal/domain/model"
)

const costLimit = 100000

// Filter is a compiled fix predicate. The zero value accepts everything.
type Filter struct {
	expr string
	prog cel.Program
}

// New compiles expr. Whitespace-only expressions yield an accept-all filter.
func New(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("vehicle_id", cel.StringType),
		cel.Variable("latitude", cel.DoubleType),
		cel.Variable("longitude", cel.DoubleType),
		cel.Variable("observed_at", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("%w: got %s", ErrNotBool, ast.OutputType())
	}

	prog, err := env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	return &Filter{expr: expr, prog: prog}, nil
}

// Expression returns the source expression, empty for accept-all.
func (f *Filter) Expression() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match reports whether fix passes the filter.
func (f *Filter) Match(fix model.Fix) (bool, error) {
	if f == nil || f.prog == nil {
		return true, nil
	}
	out, _, err := f.prog.Eval(map[string]any{
		"vehicle_id":  fix.VehicleID,
		"latitude":    fix.Latitude,
		"longitude":   fix.Longitude,
		"observed_at": fix.ObservedAt,
	})
	if err != nil {
		return false, fmt.Errorf("%w: vehicle %q: %w", ErrEval, fix.VehicleID, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: got %T", ErrNotBool, out.Value())
	}
	return ok, nil
}

// Apply returns the fixes that pass, in their original order, and how many
// were rejected.
func (f *Filter) Apply(fixes []model.Fix) ([]model.Fix, int, error) {
	if f == nil || f.prog == nil {
		return fixes, 0, nil
	}
	kept := make([]model.Fix, 0, len(fixes))
	for _, fix := range fixes {
		ok, err := f.Match(fix)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			kept = append(kept, fix)
		}
	}
	return kept, len(fixes) - len(kept), nil
}
