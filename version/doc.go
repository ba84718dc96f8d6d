// Package version provides build version information for surveypipe.
//
// Version, commit, and build date are injected via -ldflags at release
// builds and fall back to the module build info during development.
package version
