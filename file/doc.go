// Package file connects pipelines to files and to borrowed io.Reader and
// io.Writer values.
//
// Readers and writers that open a file own it for the duration of a run and
// close it on every exit path. Nodes built over a caller's reader or writer
// never close it.
package file
