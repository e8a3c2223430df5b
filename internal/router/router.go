package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/farmsight/herdfeed/internal/feed"
	"github.com/farmsight/herdfeed/internal/model"
)

// Parse failure sentinels.
var (
	ErrUnknownType = errors.New("unknown message type")
	ErrMissingData = errors.New("weight_update frame has no data")
)

// StatusRecorder receives liveness bookkeeping from control frames.
type StatusRecorder interface {
	RecordNotice(status, message string)
	RecordHeartbeat(at time.Time)
}

// Router parses raw stream frames and dispatches them: weight updates go to
// the feed store (and the archive sink when configured), control frames go
// to the status recorder. A malformed frame is counted, logged, and dropped;
// it never changes feed or connection state.
type Router struct {
	store  *feed.Store
	status StatusRecorder
	sink   chan<- model.Measurement // Optional; nil disables archiving
	logger *slog.Logger

	mu          sync.Mutex
	received    int64
	routed      int64
	parseErrors int64
}

// NewRouter creates a Router. sink may be nil.
func NewRouter(store *feed.Store, status StatusRecorder, sink chan<- model.Measurement, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		store:  store,
		status: status,
		sink:   sink,
		logger: logger,
	}
}

// Route classifies and dispatches a single raw frame. Intended to be wired
// as the connection manager's OnMessage handler.
func (r *Router) Route(data []byte) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	msg, err := Parse(data)
	if err != nil {
		r.mu.Lock()
		r.parseErrors++
		r.mu.Unlock()
		r.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	switch m := msg.(type) {
	case WeightUpdate:
		r.store.Append(m.Measurement)
		r.store.MarkNew(m.Measurement.MeasurementID)
		if r.sink != nil {
			select {
			case r.sink <- m.Measurement:
			default:
				r.logger.Warn("archive sink full, dropping measurement",
					"measurement_id", m.Measurement.MeasurementID,
				)
			}
		}

	case ConnectionNotice:
		r.status.RecordNotice(m.Status, m.Message)
		r.logger.Info("server notice", "status", m.Status, "message", m.Message)

	case Heartbeat:
		r.status.RecordHeartbeat(time.Now())
	}

	r.mu.Lock()
	r.routed++
	r.mu.Unlock()
}

// Stats returns router counters.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Received:    r.received,
		Routed:      r.routed,
		ParseErrors: r.parseErrors,
	}
}

// Parse decodes a raw frame into its Inbound variant. Malformed JSON,
// unknown type tags, and non-conforming payloads all return an error;
// Parse never panics.
func Parse(data []byte) (Inbound, error) {
	var envelope messageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch envelope.Type {
	case "connection":
		var wire connectionWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode connection notice: %w", err)
		}
		return ConnectionNotice{
			Status:            wire.Status,
			Message:           wire.Message,
			ActiveConnections: wire.ActiveConnections,
		}, nil

	case "weight_update":
		var wire weightUpdateWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode weight update: %w", err)
		}
		if wire.Data == nil {
			return nil, ErrMissingData
		}
		d := wire.Data
		if d.ConfidenceScore < 0 || d.ConfidenceScore > 1 {
			return nil, fmt.Errorf("confidence %v out of range", d.ConfidenceScore)
		}
		ts, err := parseTimestamp(d.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse measurement timestamp: %w", err)
		}
		return WeightUpdate{
			Measurement: model.Measurement{
				MeasurementID: d.MeasurementID,
				AnimalID:      d.AnimalID,
				TagID:         d.AnimalTagID,
				WeightKg:      d.EstimatedWeightKg,
				Confidence:    d.ConfidenceScore,
				CameraID:      d.CameraID,
				Timestamp:     ts,
			},
		}, nil

	case "heartbeat":
		var wire heartbeatWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("decode heartbeat: %w", err)
		}
		return Heartbeat{
			Timestamp:         wire.Timestamp,
			ActiveConnections: wire.ActiveConnections,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

// parseTimestamp accepts RFC 3339 timestamps, with a fallback for the
// backend's zone-less isoformat output. Zone-less times are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999999", s)
}
