// Package geopack reads packaged survey containers (.gpz files).
//
// A container is a zip archive holding two members: meta.json with the
// coordinate reference system, bounding extent, and run-specific metadata,
// and features.json with the attribute column list and the feature rows.
// Containers produced by separate conversion runs are not byte-identical
// even when logically identical, because meta.json embeds the run id and
// creation time; callers comparing containers must compare decoded content.
//
// The package never interprets geometry. It exposes each geometry as a
// canonical text form so that two containers can be compared exactly
// without a geometry engine.
package geopack
