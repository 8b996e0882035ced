// Package version carries the build identity of the iop binary.
//
// Version, commit, branch and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/iopipe/version.Version=1.0.0" ./cmd/iop
//
// Missing values fall back to the VCS stamp Go embeds in the binary.
package version
