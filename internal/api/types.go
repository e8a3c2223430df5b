package api

import (
	"time"

	"github.com/farmsight/herdfeed/internal/model"
)

// APIAnimal is the wire format for an animal record.
type APIAnimal struct {
	ID        int64      `json:"id"`
	TagID     string     `json:"tag_id"`
	Name      string     `json:"name"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed"`
	Gender    string     `json:"gender"`
	Status    string     `json:"status"`
	BirthDate *time.Time `json:"birth_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ToModel converts an APIAnimal to the internal model.
func (a APIAnimal) ToModel() model.Animal {
	m := model.Animal{
		ID:        a.ID,
		TagID:     a.TagID,
		Name:      a.Name,
		Species:   a.Species,
		Breed:     a.Breed,
		Gender:    a.Gender,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.BirthDate != nil {
		m.BirthDate = *a.BirthDate
	}
	return m
}

// AnimalListResponse is the paginated list envelope.
type AnimalListResponse struct {
	Items []APIAnimal `json:"items"`
	Total int         `json:"total"`
	Skip  int         `json:"skip"`
	Limit int         `json:"limit"`
}

// AnimalCreate is the request body for creating an animal.
type AnimalCreate struct {
	TagID     string     `json:"tag_id"`
	Name      string     `json:"name,omitempty"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed,omitempty"`
	Gender    string     `json:"gender"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
}

// ListAnimalsOptions filter and page the animal list.
type ListAnimalsOptions struct {
	Skip    int
	Limit   int
	Species string
	Status  string
}

// APIMeasurement is the wire format for a stored weight measurement.
type APIMeasurement struct {
	ID                int64     `json:"id"`
	AnimalID          int64     `json:"animal_id"`
	AnimalTagID       string    `json:"animal_tag_id"`
	EstimatedWeightKg float64   `json:"estimated_weight_kg"`
	ConfidenceScore   float64   `json:"confidence_score"`
	CameraID          string    `json:"camera_id"`
	Timestamp         time.Time `json:"timestamp"`
}

// ToModel converts an APIMeasurement to the internal model.
func (m APIMeasurement) ToModel() model.Measurement {
	return model.Measurement{
		MeasurementID: m.ID,
		AnimalID:      m.AnimalID,
		TagID:         m.AnimalTagID,
		WeightKg:      m.EstimatedWeightKg,
		Confidence:    m.ConfidenceScore,
		CameraID:      m.CameraID,
		Timestamp:     m.Timestamp,
	}
}

// pipelineWire is the wire format for pipeline control responses.
type pipelineWire struct {
	Status string `json:"status"`
	Stats  *struct {
		IsRunning         bool    `json:"is_running"`
		FramesProcessed   int64   `json:"frames_processed"`
		DetectionsTotal   int64   `json:"detections_total"`
		MeasurementsSaved int64   `json:"measurements_saved"`
		Errors            int64   `json:"errors"`
		StartedAt         *string `json:"started_at"`
	} `json:"stats"`
}

// toModel converts a pipeline response to the internal model.
func (p pipelineWire) toModel() model.PipelineStatus {
	out := model.PipelineStatus{
		Running: p.Status == "running" || p.Status == "started",
	}
	if p.Stats != nil {
		out.Running = p.Stats.IsRunning
		out.FramesProcessed = p.Stats.FramesProcessed
		out.Detections = p.Stats.DetectionsTotal
		out.Measurements = p.Stats.MeasurementsSaved
		out.Errors = p.Stats.Errors
		if p.Stats.StartedAt != nil {
			if ts, err := time.Parse(time.RFC3339Nano, *p.Stats.StartedAt); err == nil {
				out.StartedAt = ts
			}
		}
	}
	return out
}

// streamStatsWire is the wire format for live-stream stats.
type streamStatsWire struct {
	ActiveConnections   int   `json:"active_connections"`
	TotalConnections    int64 `json:"total_connections"`
	TotalDisconnections int64 `json:"total_disconnections"`
	TotalMessagesSent   int64 `json:"total_messages_sent"`
}
