// Package idgen generates the string identifiers used for spaces and saved
// workspaces. The strategy is injected at construction so tests can pin
// IDs.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings;
// time-sortable, so ID order follows creation order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends a fixed prefix to every ID from gen. Space IDs use
// "space_", saved workspace IDs use "saved_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the package-wide default strategy.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
