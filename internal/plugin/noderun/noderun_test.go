package noderun

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// fakeNode installs a shell script named node on PATH and returns its
// directory.
func fakeNode(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a Unix shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "node")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestAcquireWithoutRuntime(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewProvider(zap.NewNop()).Acquire(context.Background())
	if err == nil {
		t.Error("Acquire() should fail without a node binary on PATH")
	}
}

func TestAcquireAndLoad(t *testing.T) {
	fakeNode(t, "exit 0")

	loader, err := NewProvider(zap.NewNop()).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	entry := filepath.Join(t.TempDir(), "plugin.js")
	if err := os.WriteFile(entry, []byte("// plugin"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loader.Load(context.Background(), entry); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoadCapturesStderr(t *testing.T) {
	fakeNode(t, `echo "Cannot find module 'uuid'" >&2; exit 1`)

	loader, err := NewProvider(zap.NewNop()).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	entry := filepath.Join(t.TempDir(), "plugin.js")
	if err := os.WriteFile(entry, []byte("// plugin"), 0o644); err != nil {
		t.Fatal(err)
	}

	err = loader.Load(context.Background(), entry)
	if err == nil {
		t.Fatal("Load() should fail when the runtime exits nonzero")
	}
	if !strings.Contains(err.Error(), "Cannot find module") {
		t.Errorf("Load() error %q does not preserve the runtime stderr", err)
	}
}
