package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexisbeaulieu97/batchflow/internal/domain/scenario"
	"github.com/alexisbeaulieu97/batchflow/internal/infrastructure/logging"
)

const demoScenario = `name: demo
steps:
  - id: setup
    kind: shell
    shell:
      script: echo hi
`

func writeScenario(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestYAMLLoaderLoadSuccess(t *testing.T) {
	loader := newTestLoader()

	s, err := loader.Load(context.Background(), writeScenario(t, "scenario.yaml", demoScenario))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Name != "demo" {
		t.Fatalf("expected name demo, got %s", s.Name)
	}
	if len(s.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(s.Steps))
	}
	shell, ok := s.Steps[0].Kind.(scenario.Shell)
	if !ok || shell.Script != "echo hi" {
		t.Fatalf("expected shell script to be preserved, got %#v", s.Steps[0].Kind)
	}
}

func TestYAMLLoaderLoadMissingFile(t *testing.T) {
	_, err := newTestLoader().Load(context.Background(), "does-not-exist.yaml")
	assertDomainError(t, err, scenario.ErrCodeNotFound)
}

func TestYAMLLoaderLoadParseError(t *testing.T) {
	path := writeScenario(t, "bad.yaml", "name: [")

	_, err := newTestLoader().Load(context.Background(), path)
	assertDomainError(t, err, scenario.ErrCodeValidation)
}

func TestYAMLLoaderLoadSchemaError(t *testing.T) {
	path := writeScenario(t, "schema.yaml", "name: demo\nsteps:\n  - id: a\n    kind: shell\n")

	_, err := newTestLoader().Load(context.Background(), path)
	assertDomainError(t, err, scenario.ErrCodeValidation)

	var domainErr *scenario.DomainError
	errors.As(err, &domainErr)
	if domainErr.Context["field"] != "steps[0].shell" {
		t.Fatalf("expected field context, got %+v", domainErr.Context)
	}
}

func TestYAMLLoaderLoadDomainValidationError(t *testing.T) {
	yamlContent := `name: demo
steps:
  - id: duplicate
    kind: shell
    shell: {script: echo hi}
  - id: duplicate
    kind: shell
    shell: {script: echo bye}
`
	_, err := newTestLoader().Load(context.Background(), writeScenario(t, "invalid.yaml", yamlContent))
	assertDomainError(t, err, scenario.ErrCodeDuplicate)
}

func TestYAMLLoaderLoadCycle(t *testing.T) {
	yamlContent := `name: demo
steps:
  - {id: a, kind: shell, depends_on: [b], shell: {script: "true"}}
  - {id: b, kind: shell, depends_on: [a], shell: {script: "true"}}
`
	_, err := newTestLoader().Load(context.Background(), writeScenario(t, "cycle.yaml", yamlContent))
	assertDomainError(t, err, scenario.ErrCodeCycle)
}

func TestYAMLLoaderLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader().Load(ctx, "whatever.yaml")
	assertDomainError(t, err, scenario.ErrCodeCancelled)
}

func TestYAMLLoaderValidate(t *testing.T) {
	loader := newTestLoader()
	ctx := context.Background()

	if err := loader.Validate(ctx, writeScenario(t, "scenario.yml", demoScenario)); err != nil {
		t.Fatalf("expected validate success, got %v", err)
	}

	assertDomainError(t, loader.Validate(ctx, writeScenario(t, "scenario.json", demoScenario)), scenario.ErrCodeValidation)
	assertDomainError(t, loader.Validate(ctx, t.TempDir()), scenario.ErrCodeValidation)
}

func assertDomainError(t *testing.T, err error, code scenario.ErrorCode) {
	t.Helper()
	var domainErr *scenario.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T (%v)", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s", code, domainErr.Code)
	}
}

func newTestLoader() *YAMLLoader {
	return NewYAMLLoader(logging.NewNoOpLogger())
}

func TestYAMLLoaderLoadsShippedExamples(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "..", "examples", "*.yaml"))
	if err != nil {
		t.Fatalf("glob examples: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("expected example scenarios")
	}

	loader := newTestLoader()
	for _, path := range paths {
		if err := loader.Validate(context.Background(), path); err != nil {
			t.Errorf("%s: %v", filepath.Base(path), err)
		}
	}
}
