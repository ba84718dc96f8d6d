// Package expand recursively unpacks nested survey archives into a directory
// hierarchy that mirrors the archive nesting.
//
// Each archive extracts into a directory named after its base name with the
// container suffix stripped. Nested archives discovered inside an extraction
// recurse one depth level down, bounded by Options.MaxDepth. Sibling archives
// at the outermost level fan out across a bounded worker pool; deeper levels
// extract sequentially, matching the expected shape of survey deliveries
// (broad fan-out at the top, narrow nesting below).
//
// Per-archive failures are counted and logged but never abort the run: a
// corrupt archive simply hides whatever it would have contained. The returned
// Stats are final once Expand returns; all workers have joined by then.
package expand
