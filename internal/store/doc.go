// Package store defines the table abstraction that article rows are appended
// to. Implementations live in subpackages (sheets, postgres, memory); this
// package must not import database drivers or concrete clients.
package store
