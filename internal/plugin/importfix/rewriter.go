// Package importfix repairs broken relative import specifiers in
// plugin source files.
//
// Plugin authors developing against a checkout of the host sometimes
// write relative paths that climb out of the plugin tree into the core
// generation library, where a package-style import was intended. Those
// specifiers break once the plugin is installed. The rewriter detects
// them and produces a disposable rewritten sibling copy; originals are
// never mutated.
package importfix

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Rule rewrites import specifiers matching Pattern with Replace.
// Replace may reference capture groups with ${n}.
type Rule struct {
	Pattern *regexp.Regexp
	Replace string
}

// DefaultRules returns the rules for the standard dependency layout:
// quoted specifiers that traverse upward through ancestor directories
// (optionally through a node_modules segment) into the core package
// are rewritten to package-style specifiers.
func DefaultRules(corePackage string) []Rule {
	quoted := regexp.QuoteMeta(corePackage)
	return []Rule{
		{
			Pattern: regexp.MustCompile(`(['"])(?:\.\./)+(?:node_modules/)?` + quoted + `(/[^'"]*)?(['"])`),
			Replace: `${1}` + corePackage + `${2}${3}`,
		},
	}
}

// Rewriter applies an injectable rule set to plugin source files.
type Rewriter struct {
	rules  []Rule
	logger *zap.Logger
}

// NewRewriter creates a Rewriter with the given rules.
func NewRewriter(rules []Rule, logger *zap.Logger) *Rewriter {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Rewriter{
		rules:  rules,
		logger: logger.With(zap.String("component", "importfix")),
	}
}

// Fix returns the path that should be loaded in place of path. When
// broken specifiers are found, all occurrences are rewritten into a
// sibling temp file whose path is returned along with rewritten=true;
// the caller owns deletion of that file. Any read or write failure is
// logged and the original path returned (best-effort, never fatal).
func (r *Rewriter) Fix(path string) (effective string, rewritten bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("cannot read plugin source, loading as-is",
			zap.String("path", path),
			zap.Error(err))
		return path, false
	}

	content := string(data)
	changed := false
	for _, rule := range r.rules {
		if rule.Pattern.MatchString(content) {
			content = rule.Pattern.ReplaceAllString(content, rule.Replace)
			changed = true
		}
	}
	if !changed {
		return path, false
	}

	temp := tempPath(path)
	if err := os.WriteFile(temp, []byte(content), 0o644); err != nil {
		r.logger.Warn("cannot write rewritten copy, loading original",
			zap.String("path", path),
			zap.Error(err))
		return path, false
	}

	r.logger.Info("rewrote broken import specifiers",
		zap.String("original", path),
		zap.String("rewritten", temp))
	return temp, true
}

// tempPath derives the dot-prefixed sibling name for a rewritten copy:
// plugin.js becomes .plugin.fixed.js.
func tempPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+".fixed"+ext)
}
