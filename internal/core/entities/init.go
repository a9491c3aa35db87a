// Package entities registers every synchronized entity with the core
// registry. Import it for its side effects before running a sync.
package entities

// Each entity file registers its definitions in init().
