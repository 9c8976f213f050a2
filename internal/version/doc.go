// Package version exposes build metadata for the catpoint binaries.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// When they are left at their defaults, the module version and VCS revision
// recorded by the Go toolchain are used instead.
package version
