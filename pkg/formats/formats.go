// Package formats provides readers and writers for the planet generator's
// binary file formats.
package formats

// Note: PMSH (Planet Mesh) is fully implemented in pmsh.go
