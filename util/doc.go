// Package util provides small helpers shared by iopipe packages: optional
// value pointers, human-readable byte sizes, and secret masking for logs.
package util
