// Package store defines the persistence contract the dashboard reads and
// writes through. Implementations live under internal/storage; this package
// must not import database drivers or concrete clients.
package store
