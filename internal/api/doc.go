// Package api implements the REST client for the herd backend: animal
// records, stored weight measurements, detection pipeline control, and
// live-stream statistics.
//
// REST failures surface as a single human-readable error (preferring the
// backend's detail message over the HTTP status) and never affect the live
// stream connection.
package api
