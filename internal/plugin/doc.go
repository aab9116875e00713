// Package plugin implements the plugin lifecycle for Lumen.
//
// Plugins are externally installed Node-style packages that extend the
// render pipeline with effects. The lifecycle manager discovers them
// through a configuration collaborator, makes the host's shared
// dependencies resolvable from each plugin's own tree, loads each
// plugin through an injected loader capability, and tracks load state.
//
// # Load pipeline
//
// Each configured plugin runs through a strictly sequential pipeline:
//
//  1. Descriptors marked invalid upstream short-circuit to a failed
//     result without touching the filesystem.
//  2. The entry resolver turns the configured path into a concrete
//     entry file (manifest "main", then the conventional plugin.js).
//  3. The root locator finds the plugin's package boundary.
//  4. The dependency linker grafts the host's shared dependencies into
//     the plugin's node_modules via symlinks (best-effort).
//  5. The import rewriter repairs broken relative specifiers into a
//     disposable sibling copy (best-effort).
//  6. The loader capability executes the resolved entry file.
//
// Per-plugin failures are captured into that plugin's LoadResult and
// never abort the batch. The only batch-fatal condition is failure to
// acquire the loader capability itself. After a batch with at least
// one success the effect registry is refreshed exactly once.
//
// # Process states
//
//	StateUninitialized -> Initialize() -> StateReady
//	StateReady -> UnloadAll() -> StateUninitialized
//
// Process-wide state (the module search path, the initialization flag)
// persists until UnloadAll followed by a fresh Initialize.
//
// # Sub-packages
//
//   - modpath: packaged-vs-development dependency path resolution
//   - entry: entry-point resolution and package boundary location
//   - deplink: shared dependency grafting via symlinks
//   - importfix: broken import specifier repair
//   - noderun: the Node.js loader capability
package plugin
