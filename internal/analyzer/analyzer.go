// Package analyzer loads and type-checks the target program with the
// go/packages front end and adapts its resolved types to the schema
// synthesizer's capability interface.
package analyzer

import (
	"context"
	"fmt"

	"golang.org/x/tools/go/packages"
)

// Severity classifies a compile diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one compiler message with its source location.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location string
}

// LoadError reports a program that could not be loaded at all (bad directory,
// unparseable build configuration). Distinct from compile diagnostics, which
// describe a loadable program with type errors.
type LoadError struct {
	Dir     string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load program in %s: %s", e.Dir, e.Message)
}
func (e *LoadError) Unwrap() error { return e.Cause }

// Program is one loaded, type-checked program.
type Program struct {
	Packages []*packages.Package
	diags    []Diagnostic
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Load resolves patterns (default "./...") relative to dir and type-checks
// the matched packages. Compile errors do not fail the load; they surface as
// diagnostics so the caller decides whether partial type information is
// acceptable.
func Load(ctx context.Context, dir string, patterns []string) (*Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     dir,
		Tests:   false,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, &LoadError{Dir: dir, Message: err.Error(), Cause: err}
	}
	if len(pkgs) == 0 {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("no packages matched %v", patterns)}
	}

	p := &Program{Packages: pkgs}
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		for _, perr := range pkg.Errors {
			p.diags = append(p.diags, Diagnostic{
				Severity: SeverityError,
				Message:  perr.Msg,
				Location: perr.Pos,
			})
		}
	})
	return p, nil
}

// Diagnostics returns all compiler messages collected during the load.
func (p *Program) Diagnostics() []Diagnostic { return p.diags }

// HasErrors reports whether any error-severity diagnostic was collected.
func (p *Program) HasErrors() bool {
	for _, d := range p.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
