// Package database manages the PostgreSQL connection pool for the optional
// measurement archive.
package database
