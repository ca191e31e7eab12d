package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestInitCreatesFile verifies that init writes a config file that loads back.
func TestInitCreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reponav.yaml")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", path}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	for _, want := range []string{"server:", "root: .", "client:", "timeout: 30s", "log:"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config missing %q:\n%s", want, data)
		}
	}
	if !strings.Contains(stderr.String(), path) {
		t.Errorf("stderr should name the file, got %q", stderr.String())
	}
}

// TestInitDryRun verifies that --dry-run prints the config and writes nothing.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reponav.yaml")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"init", "--dry-run", path}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("--dry-run should not create the file")
	}
	if !strings.Contains(stdout.String(), "server_url: ws://127.0.0.1:8050/ws") {
		t.Errorf("dry-run output:\n%s", stdout.String())
	}
}

// TestInitKeepsExisting verifies that an existing file survives without --force.
func TestInitKeepsExisting(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "reponav.yaml")
	existing := "log:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"init", path}, nil, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected error mentioning --force, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != existing {
		t.Error("existing file must not be modified")
	}

	if err := run([]string{"init", "--force", path}, nil, &stdout, &stderr); err != nil {
		t.Fatalf("init --force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "level: info") {
		t.Errorf("--force should overwrite, got:\n%s", data)
	}
}
