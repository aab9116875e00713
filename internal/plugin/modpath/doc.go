// Package modpath computes the process-wide paths used to resolve
// plugin dependencies against the host's shared dependency tree.
//
// When Lumen runs from a packaged bundle, code inside the bundle
// cannot serve as the source of dynamically loaded native modules, so
// the unpacked mirror next to the bundle is used instead. In
// development the working directory plays that role.
//
// A Context is constructed once at process start and injected into the
// components that need it. Path resolution is memoized; Reset clears
// the memoized state for tests and for teardown.
package modpath
