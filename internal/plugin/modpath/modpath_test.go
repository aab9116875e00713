package modpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBasePathDevelopment(t *testing.T) {
	ctx := New(HostInfo{Packaged: false}, WithLogger(zap.NewNop()))

	base, err := ctx.BasePath()
	if err != nil {
		t.Fatalf("BasePath() error = %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if base != cwd {
		t.Errorf("BasePath() = %q, want working directory %q", base, cwd)
	}
}

func TestBasePathProduction(t *testing.T) {
	ctx := New(HostInfo{Packaged: true, BundlePath: "/opt/lumen/app.pak"}, WithLogger(zap.NewNop()))

	base, err := ctx.BasePath()
	if err != nil {
		t.Fatalf("BasePath() error = %v", err)
	}
	if base != "/opt/lumen/app.pak.unpacked" {
		t.Errorf("BasePath() = %q, want unpacked sibling", base)
	}

	shared, err := ctx.SharedDependencyPath()
	if err != nil {
		t.Fatalf("SharedDependencyPath() error = %v", err)
	}
	want := filepath.Join(base, DepDirName)
	if shared != want {
		t.Errorf("SharedDependencyPath() = %q, want %q", shared, want)
	}
}

func TestBasePathProductionMissingBundle(t *testing.T) {
	ctx := New(HostInfo{Packaged: true}, WithLogger(zap.NewNop()))

	if _, err := ctx.BasePath(); err == nil {
		t.Error("BasePath() should fail for packaged host without bundle path")
	}
}

func TestCorePackagePath(t *testing.T) {
	ctx := New(HostInfo{Packaged: true, BundlePath: "/opt/lumen/app.pak"},
		WithLogger(zap.NewNop()), WithCorePackage("custom-engine"))

	core, err := ctx.CorePackagePath()
	if err != nil {
		t.Fatalf("CorePackagePath() error = %v", err)
	}
	want := filepath.Join("/opt/lumen/app.pak.unpacked", DepDirName, "custom-engine")
	if core != want {
		t.Errorf("CorePackagePath() = %q, want %q", core, want)
	}
}

func TestConfigureSearchPathPrepends(t *testing.T) {
	t.Setenv(SearchPathVar, "/existing/path")

	ctx := New(HostInfo{Packaged: true, BundlePath: "/opt/lumen/app.pak"}, WithLogger(zap.NewNop()))
	if err := ctx.ConfigureSearchPath(); err != nil {
		t.Fatalf("ConfigureSearchPath() error = %v", err)
	}

	shared, _ := ctx.SharedDependencyPath()
	sep := string(os.PathListSeparator)
	got := os.Getenv(SearchPathVar)
	want := shared + sep + "/existing/path"
	if got != want {
		t.Errorf("%s = %q, want %q", SearchPathVar, got, want)
	}
}

func TestConfigureSearchPathDeduplicates(t *testing.T) {
	t.Setenv(SearchPathVar, "")

	ctx := New(HostInfo{Packaged: true, BundlePath: "/opt/lumen/app.pak"}, WithLogger(zap.NewNop()))
	for i := 0; i < 3; i++ {
		if err := ctx.ConfigureSearchPath(); err != nil {
			t.Fatalf("ConfigureSearchPath() error = %v", err)
		}
	}

	shared, _ := ctx.SharedDependencyPath()
	got := os.Getenv(SearchPathVar)
	if got != shared {
		t.Errorf("%s = %q after repeated calls, want single entry %q", SearchPathVar, got, shared)
	}
	if n := strings.Count(got, shared); n != 1 {
		t.Errorf("shared path occurs %d times, want 1", n)
	}
}

func TestResetRecomputes(t *testing.T) {
	ctx := New(HostInfo{Packaged: true, BundlePath: "/opt/lumen/app.pak"}, WithLogger(zap.NewNop()))

	first, err := ctx.BasePath()
	if err != nil {
		t.Fatal(err)
	}

	ctx.Reset()

	second, err := ctx.BasePath()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("BasePath() after Reset() = %q, want %q", second, first)
	}
}

func TestDiagnostics(t *testing.T) {
	dir := t.TempDir()
	bundle := filepath.Join(dir, "app.pak")
	unpacked := bundle + ".unpacked"

	shared := filepath.Join(unpacked, DepDirName)
	core := filepath.Join(shared, DefaultCorePackage)
	if err := os.MkdirAll(core, 0o755); err != nil {
		t.Fatal(err)
	}

	ctx := New(HostInfo{Packaged: true, BundlePath: bundle}, WithLogger(zap.NewNop()))
	d := ctx.Diagnostics()

	if !d.IsProduction {
		t.Error("Diagnostics().IsProduction = false, want true")
	}
	if d.BasePath != unpacked {
		t.Errorf("Diagnostics().BasePath = %q, want %q", d.BasePath, unpacked)
	}
	if !d.SharedDependencyExists {
		t.Error("Diagnostics().SharedDependencyExists = false, want true")
	}
	if !d.CorePackageExists {
		t.Error("Diagnostics().CorePackageExists = false, want true")
	}
	if d.CorePackagePath != core {
		t.Errorf("Diagnostics().CorePackagePath = %q, want %q", d.CorePackagePath, core)
	}
}

func TestDiagnosticsMissingDirectories(t *testing.T) {
	ctx := New(HostInfo{Packaged: true, BundlePath: "/nonexistent/app.pak"}, WithLogger(zap.NewNop()))
	d := ctx.Diagnostics()

	if d.SharedDependencyExists {
		t.Error("Diagnostics().SharedDependencyExists = true for missing directory")
	}
	if d.CorePackageExists {
		t.Error("Diagnostics().CorePackageExists = true for missing directory")
	}
}
