// Package fixtures provides deterministic test data shared across test
// suites.
package fixtures
