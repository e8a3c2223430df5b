// Package poller periodically polls the backend's pipeline status and
// live-stream statistics over REST for health logging.
package poller
