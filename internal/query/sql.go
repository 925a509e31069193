package query

import (
	"fmt"
	"strings"

	"github.com/roach88/shortlist/internal/ir"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders SQLite-style "?" parameters.
func Question(int) string { return "?" }

// Dollar renders PostgreSQL-style "$n" parameters.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Compile converts p into a WHERE clause body and its arguments.
// All values are parameterized, never interpolated.
func Compile(kind ir.LogKind, p Predicate, ph Placeholder) (string, []any, error) {
	if err := Validate(kind, p); err != nil {
		return "", nil, fmt.Errorf("compile %s predicate: %w", kind, err)
	}
	c := &compiler{ph: ph}
	where := c.compile(p)
	return where, c.args, nil
}

type compiler struct {
	ph   Placeholder
	args []any
}

func (c *compiler) compile(p Predicate) string {
	switch pred := p.(type) {
	case Eq:
		v, _ := normalize(pred.Value)
		c.args = append(c.args, v)
		return fmt.Sprintf("%s = %s", pred.Field, c.ph(len(c.args)))
	case And:
		parts := make([]string, len(pred.Predicates))
		for i, sub := range pred.Predicates {
			parts[i] = c.compile(sub)
		}
		if len(parts) == 1 {
			return parts[0]
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	default:
		return "1 = 1"
	}
}
