// Package store declares the persistence contracts for search history and
// audit records. Backends live under internal/storage and report missing
// rows as ErrNotFound.
package store
