// Package model defines the shared domain types: live weight measurements,
// herd animals, and remote pipeline status. These types are plain data with
// no behavior beyond small derived accessors; all I/O lives in the packages
// that produce or consume them.
package model
