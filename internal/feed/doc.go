// Package feed implements the live feed store: a fixed-capacity newest-first
// buffer of recent weight measurements with oldest-entry eviction and a
// time-limited highlight marker for newly arrived entries.
package feed
