// Package utils holds small generic helpers shared across packages.
package utils

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

