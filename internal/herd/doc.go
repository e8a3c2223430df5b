// Package herd maintains an in-memory animal directory synced from the
// backend REST API, for tag resolution and display.
package herd
