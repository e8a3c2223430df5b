package router

import "github.com/farmsight/herdfeed/internal/model"

// Inbound is a classified stream message. The set of variants is closed:
// only the types in this package implement it, so a type switch over all
// three is exhaustive. Frames with unknown or malformed tags are not
// constructible as Inbound values; Parse rejects them instead.
type Inbound interface {
	inbound()
}

// ConnectionNotice is the server's welcome/acknowledgement frame.
type ConnectionNotice struct {
	Status            string
	Message           string
	ActiveConnections int
}

// WeightUpdate carries a new live measurement.
type WeightUpdate struct {
	Measurement model.Measurement
}

// Heartbeat is a periodic liveness frame. It has no observable effect
// beyond liveness bookkeeping.
type Heartbeat struct {
	Timestamp         float64 // Server clock, seconds
	ActiveConnections int
}

func (ConnectionNotice) inbound() {}
func (WeightUpdate) inbound()     {}
func (Heartbeat) inbound()        {}

// Stats contains router counters.
type Stats struct {
	Received    int64
	Routed      int64
	ParseErrors int64
}

// Wire types for JSON parsing

// messageEnvelope is used for type tag extraction.
type messageEnvelope struct {
	Type string `json:"type"`
}

// connectionWire is the wire format for connection notices.
type connectionWire struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	ActiveConnections int    `json:"active_connections"`
}

// weightUpdateWire is the wire format for weight_update frames.
type weightUpdateWire struct {
	Data *struct {
		MeasurementID     int64   `json:"measurement_id"`
		AnimalID          int64   `json:"animal_id"`
		AnimalTagID       string  `json:"animal_tag_id"`
		EstimatedWeightKg float64 `json:"estimated_weight_kg"`
		ConfidenceScore   float64 `json:"confidence_score"`
		CameraID          string  `json:"camera_id"`
		Timestamp         string  `json:"timestamp"`
	} `json:"data"`
}

// heartbeatWire is the wire format for heartbeat frames.
type heartbeatWire struct {
	Timestamp         float64 `json:"timestamp"`
	ActiveConnections int     `json:"active_connections"`
}
