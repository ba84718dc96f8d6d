// Package main provides the surveypipe command-line interface.
//
// surveypipe is a batch pipeline that turns deeply nested archives of
// geospatial survey data into a deduplicated, analysis-ready dataset. The
// pipeline stages compose purely through the filesystem: expand writes the
// tree that convert reads, and two convert output trees feed dedupe.
//
// The main binary supports multiple subcommands:
//   - expand: recursively extract nested survey archives
//   - convert: package raw geometry files via an external converter
//   - dedupe: remove packaged outputs whose decoded content already exists
//   - seed: generate synthetic nested-archive fixtures
//   - count: count files in directory trees
package main
