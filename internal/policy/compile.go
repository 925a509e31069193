package policy

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/shortlist/internal/ir"
)

//go:embed schema.cue
var schemaSrc string

// CompileError reports a policy document problem, with a source position
// when CUE provides one.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// groupDoc mirrors #Group in schema.cue.
type groupDoc struct {
	Name       string   `json:"name"`
	Admins     []string `json:"admins"`
	Categories []string `json:"categories"`
	Schedule   struct {
		DefaultTime string `json:"default_time"`
	} `json:"schedule"`
}

// Compile builds a Policy from the group struct of a policy document.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(src)
//	p, err := Compile(v.LookupPath(cue.ParsePath("group")))
func Compile(v cue.Value) (*Policy, error) {
	if !v.Exists() {
		return nil, &CompileError{Field: "group", Message: "group is required"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("policy schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Group")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc groupDoc
	if err := unified.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Policy{
		Name:        doc.Name,
		Categories:  []string{},
		DefaultTime: doc.Schedule.DefaultTime,
		Admins:      []ir.ActorID{},
	}
	for _, a := range doc.Admins {
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, &CompileError{Field: "admins", Message: "admin names must not be empty", Pos: v.Pos()}
		}
		if !slices.Contains(p.Admins, ir.ActorID(a)) {
			p.Admins = append(p.Admins, ir.ActorID(a))
		}
	}
	for _, c := range doc.Categories {
		if !slices.Contains(p.Categories, c) {
			p.Categories = append(p.Categories, c)
		}
	}
	return p, nil
}

// CompileString compiles a policy document held in memory.
func CompileString(filename, src string) (*Policy, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("group")))
}

// Load compiles the policy at path: a single .cue file, or a directory whose
// .cue files form one package.
func Load(path string) (*Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}

	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load policy: %w", err)
		}
		return CompileString(path, string(src))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load policy: no CUE instances in %s", path)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, fmt.Errorf("load policy: %w", inst.Err)
	}
	v := cuecontext.New().BuildInstance(instances[0])
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("group")))
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
