// Package errors provides the structured error type shared by every iopipe
// package. Errors carry a machine-readable code, an optional cause, and
// free-form details; errors.Is matches two AppErrors by code.
package errors
