// Package database provides the PostgreSQL connection pool for the
// opportunity journal.
package database
