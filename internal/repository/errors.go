// Package repository holds the storage capabilities of the service: the
// pending reservation store (Redis), the settlement store and the catalog
// (MySQL), plus in-memory implementations of each for tests and local runs.
// Every mutation is a single-key operation; nothing here spans keys in a
// transaction.
package repository

import "errors"

// ErrNotFound is returned when the requested key does not exist. For the
// reservation store it also means "already consumed".
var ErrNotFound = errors.New("not found")

// ErrDuplicateMemo is returned when a reservation or settlement with the
// same memo already exists. Rows are never overwritten.
var ErrDuplicateMemo = errors.New("duplicate memo")
