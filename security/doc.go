// Package security builds client TLS configurations for the network
// adapters.
package security
