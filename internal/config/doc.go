// Package config defines the build settings used by the packaging pipeline and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type captures the repository layout (source, output, version
// declaration file) and the packaging constants (product name, launcher name,
// install prefix, package identifier).
package config
