package importfix

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestRewriter() *Rewriter {
	return NewRewriter(DefaultRules("lumen-engine"), zap.NewNop())
}

func TestFixNoMatchReturnsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.js")
	content := `const engine = require("lumen-engine");
const local = require("./lib/util");
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, rewritten := newTestRewriter().Fix(path)
	if rewritten {
		t.Error("Fix() rewrote clean content")
	}
	if got != path {
		t.Errorf("Fix() = %q, want original %q", got, path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Fix() created files in %v", entries)
	}
}

func TestFixRewritesAllOccurrences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.js")
	content := `const mesh = require("../../lumen-engine/src/mesh");
import gl from '../../../node_modules/lumen-engine/gl';
const ok = require("lumen-engine/core");
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, rewritten := newTestRewriter().Fix(path)
	if !rewritten {
		t.Fatal("Fix() did not rewrite broken specifiers")
	}

	want := filepath.Join(dir, ".plugin.fixed.js")
	if got != want {
		t.Errorf("Fix() = %q, want sibling temp %q", got, want)
	}

	fixed, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	text := string(fixed)
	if !strings.Contains(text, `require("lumen-engine/src/mesh")`) {
		t.Errorf("first specifier not rewritten:\n%s", text)
	}
	if !strings.Contains(text, `from 'lumen-engine/gl'`) {
		t.Errorf("second specifier not rewritten:\n%s", text)
	}
	if strings.Contains(text, "../") {
		t.Errorf("upward traversal survives rewrite:\n%s", text)
	}

	// Original stays byte-for-byte untouched.
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(original) != content {
		t.Error("Fix() mutated the original source file")
	}
}

func TestFixBareCoreSpecifier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "effect.js")
	content := `const e = require("../../lumen-engine");`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, rewritten := newTestRewriter().Fix(path)
	if !rewritten {
		t.Fatal("Fix() did not rewrite bare core specifier")
	}
	if got != filepath.Join(dir, ".effect.fixed.js") {
		t.Errorf("Fix() temp path = %q", got)
	}

	fixed, _ := os.ReadFile(got)
	if !strings.Contains(string(fixed), `require("lumen-engine")`) {
		t.Errorf("bare specifier not rewritten: %s", fixed)
	}
}

func TestFixUnreadableFileReturnsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.js")

	got, rewritten := newTestRewriter().Fix(path)
	if rewritten {
		t.Error("Fix() reported a rewrite for an unreadable file")
	}
	if got != path {
		t.Errorf("Fix() = %q, want original %q", got, path)
	}
}

func TestCustomRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plugin.js")
	content := `const x = require("old-pkg/thing");`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules := []Rule{{
		Pattern: regexp.MustCompile(`old-pkg/`),
		Replace: "new-pkg/",
	}}
	got, rewritten := NewRewriter(rules, zap.NewNop()).Fix(path)
	if !rewritten {
		t.Fatal("Fix() ignored custom rule")
	}
	fixed, _ := os.ReadFile(got)
	if !strings.Contains(string(fixed), "new-pkg/thing") {
		t.Errorf("custom rule not applied: %s", fixed)
	}
}
