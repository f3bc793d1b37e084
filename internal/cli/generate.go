package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/routeforge/routeforge/internal/analyzer"
	"github.com/routeforge/routeforge/internal/assemble"
	"github.com/routeforge/routeforge/internal/pipeline"
)

// GenerateConfig captures all inputs that influence the generate command
// after merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Dir      string
	Patterns []string

	Out            string
	Package        string
	SelfImportPath string
	DocOut         string

	Title       string
	Version     string
	Description string
	Servers     []string
	Security    []string

	CheckDiagnostics bool
	EmitDoc          bool
	Strict           bool
	Duplicates       string

	ConfigPath string
	Verbose    bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		Dir:              ".",
		Out:              "routes_gen.go",
		Package:          "api",
		DocOut:           "openapi.json",
		Title:            "API",
		Version:          "0.0.1",
		CheckDiagnostics: true,
		EmitDoc:          true,
		Duplicates:       string(pipeline.DuplicateError),
	}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Discover annotated routes and emit the contract document and registration source",
		Long: "Discover annotated routes in a Go source tree and emit the OpenAPI contract " +
			"document and validated registration source. Options can be provided via flags, " +
			"config files, or defaults.",
		Example: strings.TrimSpace(`  routeforge generate --dir ./service --out gen/routes_gen.go --doc-out gen/openapi.json
  routeforge --config routeforge.yaml generate --strict`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("dir", "", "Root directory of the program to analyze")
	flags.StringSlice("patterns", nil, "Package patterns to load (defaults to ./...)")
	flags.String("out", "", "Path of the generated registration source file")
	flags.String("package", "", "Package name of the generated source")
	flags.String("self-import", "", "Import path of the generated package (handlers there are referenced unqualified)")
	flags.String("doc-out", "", "Path of the contract document")
	flags.String("title", "", "Document title")
	flags.String("api-version", "", "Document version")
	flags.String("description", "", "Document description")
	flags.StringSlice("server", nil, "Server URLs for the document")
	flags.StringSlice("security", nil, "Security scheme names required by all operations")
	flags.Bool("check-diagnostics", true, "Abort when the analyzed program has compile errors")
	flags.Bool("emit-doc", true, "Write the contract document")
	flags.Bool("strict", false, "Fail before writing when any route would be excluded")
	flags.String("duplicates", "", "Duplicate route policy (error|first-wins)")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	stringFlags := map[string]*string{
		"dir":         &cfg.Dir,
		"out":         &cfg.Out,
		"package":     &cfg.Package,
		"self-import": &cfg.SelfImportPath,
		"doc-out":     &cfg.DocOut,
		"title":       &cfg.Title,
		"api-version": &cfg.Version,
		"description": &cfg.Description,
		"duplicates":  &cfg.Duplicates,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	sliceFlags := map[string]*[]string{
		"patterns": &cfg.Patterns,
		"server":   &cfg.Servers,
		"security": &cfg.Security,
	}
	for name, dst := range sliceFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeList(value)
	}

	boolFlags := map[string]*bool{
		"check-diagnostics": &cfg.CheckDiagnostics,
		"emit-doc":          &cfg.EmitDoc,
		"strict":            &cfg.Strict,
		"verbose":           &cfg.Verbose,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Dir = strings.TrimSpace(c.Dir)
	c.Out = strings.TrimSpace(c.Out)
	c.Package = strings.TrimSpace(c.Package)
	c.DocOut = strings.TrimSpace(c.DocOut)
	c.Title = strings.TrimSpace(c.Title)
	c.Version = strings.TrimSpace(c.Version)
	c.Duplicates = strings.ToLower(strings.TrimSpace(c.Duplicates))
	c.Patterns = sanitizeList(c.Patterns)
	c.Servers = sanitizeList(c.Servers)
	c.Security = sanitizeList(c.Security)
}

func (c *GenerateConfig) validate() error {
	if c.Dir == "" {
		return newUsageError("generate: --dir is required (set via flag or config file)")
	}
	if c.Out == "" {
		return newUsageError("generate: --out is required (set via flag or config file)")
	}
	switch pipeline.DuplicatePolicy(c.Duplicates) {
	case pipeline.DuplicateError, pipeline.DuplicateFirstWins:
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --duplicates %q (allowed: error, first-wins)", c.Duplicates))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	security := make([]map[string][]string, 0, len(cfg.Security))
	for _, name := range cfg.Security {
		security = append(security, map[string][]string{name: {}})
	}

	result, err := pipeline.Run(ctx, pipeline.Config{
		Dir:              cfg.Dir,
		Patterns:         cfg.Patterns,
		OutPath:          cfg.Out,
		Package:          cfg.Package,
		SelfImportPath:   cfg.SelfImportPath,
		DocPath:          cfg.DocOut,
		EmitDoc:          cfg.EmitDoc,
		CheckDiagnostics: cfg.CheckDiagnostics,
		Strict:           cfg.Strict,
		Duplicates:       pipeline.DuplicatePolicy(cfg.Duplicates),
		Metadata: assemble.Metadata{
			Title:       cfg.Title,
			Version:     cfg.Version,
			Description: cfg.Description,
			Servers:     cfg.Servers,
			Security:    security,
		},
		Logger: log,
	})
	if err != nil {
		var loadErr *analyzer.LoadError
		if errors.As(err, &loadErr) {
			return newUsageError(loadErr.Error())
		}
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	fmt.Fprintf(os.Stdout, "Registered %d route(s); wrote %s", result.Routes, cfg.Out)
	if cfg.EmitDoc {
		fmt.Fprintf(os.Stdout, " and %s", cfg.DocOut)
	}
	fmt.Fprintln(os.Stdout)

	if len(result.Excluded) > 0 {
		for _, e := range result.Excluded {
			fmt.Fprintf(os.Stderr, "excluded: %s\n", e)
		}
		return fmt.Errorf("generate: %d route(s) excluded from generation", len(result.Excluded))
	}
	return nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		switch normalized {
		case "dir":
			if err := assignString(&cfg.Dir, key, value); err != nil {
				return err
			}
		case "patterns":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Patterns = sanitizeList(list)
		case "out":
			if err := assignString(&cfg.Out, key, value); err != nil {
				return err
			}
		case "package":
			if err := assignString(&cfg.Package, key, value); err != nil {
				return err
			}
		case "selfimport", "selfimportpath":
			if err := assignString(&cfg.SelfImportPath, key, value); err != nil {
				return err
			}
		case "docout":
			if err := assignString(&cfg.DocOut, key, value); err != nil {
				return err
			}
		case "title":
			if err := assignString(&cfg.Title, key, value); err != nil {
				return err
			}
		case "version", "apiversion":
			if err := assignString(&cfg.Version, key, value); err != nil {
				return err
			}
		case "description":
			if err := assignString(&cfg.Description, key, value); err != nil {
				return err
			}
		case "servers":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Servers = sanitizeList(list)
		case "security":
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			cfg.Security = sanitizeList(list)
		case "checkdiagnostics":
			if err := assignBool(&cfg.CheckDiagnostics, key, value); err != nil {
				return err
			}
		case "emitdoc":
			if err := assignBool(&cfg.EmitDoc, key, value); err != nil {
				return err
			}
		case "strict":
			if err := assignBool(&cfg.Strict, key, value); err != nil {
				return err
			}
		case "duplicates":
			if err := assignString(&cfg.Duplicates, key, value); err != nil {
				return err
			}
		case "verbose":
			if err := assignBool(&cfg.Verbose, key, value); err != nil {
				return err
			}
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
	}

	return nil
}

func assignString(dst *string, key string, value any) error {
	str, err := valueAsString(value)
	if err != nil {
		return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
	}
	*dst = str
	return nil
}

func assignBool(dst *bool, key string, value any) error {
	b, err := valueAsBool(value)
	if err != nil {
		return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
	}
	*dst = b
	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
