// Package archive persists live weight measurements to PostgreSQL in
// batches. Archiving is optional; when no database is configured, the live
// feed runs without it.
package archive
