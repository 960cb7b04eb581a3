// Package version exposes build metadata for the packaging tool (semantic
// version, commit, build time) injected via ldflags, and attaches the cobra
// `version` subcommand.
package version
