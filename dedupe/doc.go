// Package dedupe identifies packaged survey outputs in one tree whose
// decoded content already exists at the same relative path in another, and
// removes the redundant copies.
//
// Containers produced by separate conversion runs differ in bytes even when
// logically identical, so comparison works on decoded content: row count,
// column set, coordinate reference system, bounding extent, canonical
// geometry text, and attribute values, cheapest check first. Every mismatch
// short-circuits with a human-readable reason recorded in the verdict;
// silent false-positive deduplication would destroy data, so a comparison
// that fails outright is an error verdict, never a duplicate.
//
// Comparisons run strictly sequentially. File pairs are independent, so the
// loop may be parallelized if the container reader in use is safe for
// concurrent calls.
package dedupe
