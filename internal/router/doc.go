// Package router implements the message router: it parses raw stream frames
// into a closed set of inbound variants and dispatches weight updates to the
// feed store and control frames to the status publisher's liveness records.
package router
