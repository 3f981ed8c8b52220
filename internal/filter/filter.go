// Package filter compiles user-supplied CEL expressions that select items from
// a listing.
package filter

import (
	"context"
	"fmt"
	"sync"

	"connectrpc.com/connect"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// ThisVar names the item under test inside a filter expression.
const ThisVar = "this"

var baseEnv = sync.OnceValues(func() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(ThisVar, cel.MapType(cel.StringType, cel.DynType)),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter CEL environment: %w", err)
	}
	return env, nil
})

// Filter is a compiled boolean expression over a single item. A nil *Filter
// matches everything.
type Filter struct {
	expr string
	prog cel.Program
}

// Compile parses and type-checks expr. An empty expression returns a nil
// Filter. Errors carry [connect.CodeInvalidArgument].
func Compile(expr string) (*Filter, error) {
	if expr == "" {
		return nil, nil //nolint:nilnil // a nil filter matches everything
	}
	env, err := baseEnv()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	ast, issues := env.Compile(expr)
	if err = issues.Err(); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to compile filter: %w", err))
	}
	if outType := ast.OutputType(); !outType.IsExactType(cel.BoolType) {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("filter expression must return bool but got %s", outType.String()))
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return &Filter{expr: expr, prog: prog}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against a single item. Evaluation errors, such as
// referencing a missing field, carry [connect.CodeInvalidArgument].
func (f *Filter) Match(ctx context.Context, item map[string]any) (bool, error) {
	if f == nil {
		return true, nil
	}
	val, _, err := f.prog.ContextEval(ctx, map[string]any{ThisVar: item})
	if err != nil {
		return false, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("failed to evaluate filter: %w", err))
	}
	matched, ok := val.Value().(bool)
	if !ok {
		return false, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("filter produced %T, not bool", val.Value()))
	}
	return matched, nil
}

// Apply keeps the items for which the filter matches, using fields to expose
// each item's attributes to the expression.
func Apply[T any](ctx context.Context, f *Filter, items []T, fields func(T) map[string]any) ([]T, error) {
	if f == nil {
		return items, nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		matched, err := f.Match(ctx, fields(item))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, item)
		}
	}
	return out, nil
}
