// Package builder produces the native macOS .pkg installer for the Azure CLI.
//
// The pipeline runs four strictly ordered phases inside a scoped temporary
// working directory: a build virtual environment is created and the CLI
// components are installed into it, the environment is staged into a tree
// mirroring /usr/local, pkgbuild and productbuild turn the tree into a
// distribution package, and a SHA-256 sidecar is emitted next to the artifact.
//
// Every phase either fully completes or aborts the build; there is no retry
// or partial-success state.
package builder
