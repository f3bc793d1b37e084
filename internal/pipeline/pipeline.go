// Package pipeline runs one generation pass: load and type-check the target
// program, extract annotated routes, synthesize schemas, assemble the
// contract document, and render registration source. Everything is computed
// in memory first; the two output files are written only after both artifacts
// exist, so a failing run never leaves a half-written artifact behind.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/routeforge/routeforge/internal/analyzer"
	"github.com/routeforge/routeforge/internal/assemble"
	"github.com/routeforge/routeforge/internal/codegen"
	"github.com/routeforge/routeforge/internal/extract"
	"github.com/routeforge/routeforge/internal/schema"
)

// DuplicatePolicy decides what happens when two declarations claim the same
// method and path.
type DuplicatePolicy string

const (
	// DuplicateError makes any conflict fatal, naming both declarations.
	DuplicateError DuplicatePolicy = "error"
	// DuplicateFirstWins keeps the first declaration and downgrades the
	// conflict to a warning.
	DuplicateFirstWins DuplicatePolicy = "first-wins"
)

// Config is the fully validated, already-defaulted input to one run.
type Config struct {
	Dir      string
	Patterns []string

	OutPath        string // generated registration source
	Package        string // generated package name
	SelfImportPath string // import path of the generated package, if known

	DocPath string // contract document
	EmitDoc bool

	CheckDiagnostics bool
	Strict           bool // any excluded route fails the run before writing
	Duplicates       DuplicatePolicy

	Metadata assemble.Metadata

	Logger *slog.Logger
}

// Result summarizes a completed run. Excluded holds the per-route errors
// that removed routes from both artifacts; a run with exclusions completes
// with both files written but counts as failed overall unless empty.
type Result struct {
	Routes   int
	Excluded []error
	Warnings []string
	Document []byte
	Source   []byte
}

// DiagnosticsError aborts the run when the analyzed program has compile
// errors and diagnostics checking is enabled.
type DiagnosticsError struct {
	Diagnostics []analyzer.Diagnostic
}

func (e *DiagnosticsError) Error() string {
	lines := make([]string, 0, len(e.Diagnostics)+1)
	lines = append(lines, fmt.Sprintf("program has %d compile error(s):", len(e.Diagnostics)))
	for _, d := range e.Diagnostics {
		lines = append(lines, fmt.Sprintf("  %s: %s", d.Location, d.Message))
	}
	return strings.Join(lines, "\n")
}

// ConflictError aborts the run on duplicate routes under the error policy.
type ConflictError struct {
	Conflicts []*extract.Conflict
}

func (e *ConflictError) Error() string {
	lines := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		lines = append(lines, c.Error())
	}
	return strings.Join(lines, "\n")
}

// StrictError aborts a strict run that would exclude routes.
type StrictError struct {
	Excluded []error
}

func (e *StrictError) Error() string {
	lines := make([]string, 0, len(e.Excluded)+1)
	lines = append(lines, fmt.Sprintf("strict mode: %d route(s) would be excluded:", len(e.Excluded)))
	for _, err := range e.Excluded {
		lines = append(lines, "  "+err.Error())
	}
	return strings.Join(lines, "\n")
}

// Run executes one pipeline pass. Fatal errors return before anything is
// written; per-route exclusions are reported on the Result instead.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	log.Debug("loading program", "dir", cfg.Dir, "patterns", cfg.Patterns)
	prog, err := analyzer.Load(ctx, cfg.Dir, cfg.Patterns)
	if err != nil {
		return nil, err
	}
	if cfg.CheckDiagnostics && prog.HasErrors() {
		return nil, &DiagnosticsError{Diagnostics: prog.Diagnostics()}
	}

	ext := extract.Extract(prog)
	log.Debug("extracted routes", "routes", len(ext.Routes), "errors", len(ext.Errors), "conflicts", len(ext.Conflicts))

	result := &Result{Excluded: ext.Errors}
	if len(ext.Conflicts) > 0 {
		if cfg.Duplicates != DuplicateFirstWins {
			return nil, &ConflictError{Conflicts: ext.Conflicts}
		}
		for _, c := range ext.Conflicts {
			result.Warnings = append(result.Warnings, c.Error())
		}
	}
	if cfg.Strict && len(ext.Errors) > 0 {
		return nil, &StrictError{Excluded: ext.Errors}
	}

	reg := schema.NewRegistry()
	synth := schema.NewSynthesizer(reg)
	for i := range ext.Routes {
		r := &ext.Routes[i]
		if r.RequestType != nil {
			r.RequestSchema = synth.Synthesize(r.RequestType)
		}
		if r.ResponseType != nil {
			r.ResponseSchema = synth.Synthesize(r.ResponseType)
		}
	}
	for _, w := range synth.Warnings() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unsupported type shape degraded to unknown: %s", w.Repr))
	}
	result.Routes = len(ext.Routes)
	log.Debug("synthesized schemas", "components", reg.Len(), "warnings", len(synth.Warnings()))

	doc, err := assemble.Assemble(ctx, ext.Routes, reg, cfg.Metadata)
	if err != nil {
		return nil, err
	}
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	result.Document = append(docJSON, '\n')

	result.Source, err = codegen.Generate(ext.Routes, reg, codegen.Options{
		Package:        cfg.Package,
		SelfImportPath: cfg.SelfImportPath,
	})
	if err != nil {
		return nil, err
	}

	// Both artifacts exist in memory; only now touch the filesystem.
	if err := writeOutputs(cfg, result, log); err != nil {
		return nil, err
	}
	return result, nil
}

func writeOutputs(cfg Config, result *Result, log *slog.Logger) error {
	if cfg.OutPath != "" {
		// Replace a stale generated file with a neutral placeholder first
		// so concurrent tooling never imports outdated registrations.
		if _, err := os.Stat(cfg.OutPath); err == nil {
			if err := writeFileAtomic(cfg.OutPath, codegen.Placeholder(cfg.Package)); err != nil {
				return fmt.Errorf("write placeholder: %w", err)
			}
		}
		if err := writeFileAtomic(cfg.OutPath, result.Source); err != nil {
			return fmt.Errorf("write generated source: %w", err)
		}
		log.Debug("wrote generated source", "path", cfg.OutPath, "bytes", len(result.Source))
	}
	if cfg.EmitDoc && cfg.DocPath != "" {
		if err := writeFileAtomic(cfg.DocPath, result.Document); err != nil {
			return fmt.Errorf("write contract document: %w", err)
		}
		log.Debug("wrote contract document", "path", cfg.DocPath, "bytes", len(result.Document))
	}
	return nil
}

func writeFileAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp-" + time.Now().Format("20060102150405")
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
