// Package convert walks an extracted survey hierarchy and produces one
// packaged output per raw geometry file, preserving the relative path
// structure under the output root.
//
// The presence of an output file is the completion marker: a run that was
// interrupted can be re-invoked with the same arguments and only performs
// the remaining work. The external converter writes to a partial path that
// is renamed into place only after it reports success, so a killed process
// never leaves a falsely complete marker behind.
package convert
