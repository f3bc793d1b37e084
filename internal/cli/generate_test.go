package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--verbose",
		"generate",
		"--dir", "./service",
		"--out", "gen/routes_gen.go",
		"--package", "gen",
		"--self-import", "example.com/service/gen",
		"--doc-out", "gen/openapi.json",
		"--title", "Orders API",
		"--api-version", "1.2.0",
		"--server", "https://api.example.com,https://staging.example.com",
		"--security", "bearerAuth",
		"--strict",
		"--duplicates", "first-wins",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}

	if cfg.Dir != "./service" {
		t.Errorf("dir mismatch: got %q", cfg.Dir)
	}
	if cfg.Out != "gen/routes_gen.go" {
		t.Errorf("out mismatch: got %q", cfg.Out)
	}
	if cfg.Package != "gen" {
		t.Errorf("package mismatch: got %q", cfg.Package)
	}
	if cfg.SelfImportPath != "example.com/service/gen" {
		t.Errorf("self-import mismatch: got %q", cfg.SelfImportPath)
	}
	if cfg.DocOut != "gen/openapi.json" {
		t.Errorf("doc-out mismatch: got %q", cfg.DocOut)
	}
	if cfg.Title != "Orders API" || cfg.Version != "1.2.0" {
		t.Errorf("metadata mismatch: got %q %q", cfg.Title, cfg.Version)
	}
	if want := []string{"https://api.example.com", "https://staging.example.com"}; !equalStringSlices(cfg.Servers, want) {
		t.Errorf("servers mismatch: got %v", cfg.Servers)
	}
	if want := []string{"bearerAuth"}; !equalStringSlices(cfg.Security, want) {
		t.Errorf("security mismatch: got %v", cfg.Security)
	}
	if !cfg.Strict {
		t.Errorf("expected strict true")
	}
	if cfg.Duplicates != "first-wins" {
		t.Errorf("duplicates mismatch: got %q", cfg.Duplicates)
	}
	if !cfg.Verbose {
		t.Errorf("expected verbose true")
	}
	if !cfg.CheckDiagnostics || !cfg.EmitDoc {
		t.Errorf("expected diagnostics and doc defaults to stay true")
	}
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`dir: ./from-config
out: config/routes_gen.go
package: cfgapi
docOut: config/openapi.json
title: Config API
version: 9.9.9
servers:
  - https://config.example.com
security: cfgAuth
strict: true
emitDoc: false
duplicates: first-wins
`) + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	var captured *GenerateConfig
	generateRunner = func(ctx context.Context, cfg *GenerateConfig) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })

	root.SetArgs([]string{
		"--config", configPath,
		"generate",
		"--dir", "./from-flag",
		"--title", "Flag API",
		"--strict=false",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}

	// Flags beat the config file.
	if cfg.Dir != "./from-flag" {
		t.Errorf("dir mismatch: got %q", cfg.Dir)
	}
	if cfg.Title != "Flag API" {
		t.Errorf("title mismatch: got %q", cfg.Title)
	}
	if cfg.Strict {
		t.Errorf("expected strict overridden to false")
	}

	// Config file beats defaults.
	if cfg.Out != "config/routes_gen.go" {
		t.Errorf("out mismatch: got %q", cfg.Out)
	}
	if cfg.Package != "cfgapi" {
		t.Errorf("package mismatch: got %q", cfg.Package)
	}
	if cfg.Version != "9.9.9" {
		t.Errorf("version mismatch: got %q", cfg.Version)
	}
	if want := []string{"https://config.example.com"}; !equalStringSlices(cfg.Servers, want) {
		t.Errorf("servers mismatch: got %v", cfg.Servers)
	}
	if want := []string{"cfgAuth"}; !equalStringSlices(cfg.Security, want) {
		t.Errorf("security mismatch: got %v", cfg.Security)
	}
	if cfg.EmitDoc {
		t.Errorf("expected emitDoc false from config")
	}
	if cfg.Duplicates != "first-wins" {
		t.Errorf("duplicates mismatch: got %q", cfg.Duplicates)
	}
}

func TestGenerateConfigUnknownField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("nonsense: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"--config", configPath, "generate"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for unknown config field")
	}
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "nonsense") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func TestGenerateRejectsBadDuplicatesPolicy(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"generate", "--duplicates", "last-wins"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for bad duplicates policy")
	}
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "last-wins") {
		t.Fatalf("unexpected error text: %v", err)
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
