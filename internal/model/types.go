package model

import "time"

// -----------------------------------------------------------------------------
// Live Feed Types
// -----------------------------------------------------------------------------

// Measurement is a single AI weight estimate pushed over the live stream.
// Immutable once appended to the feed.
type Measurement struct {
	MeasurementID int64     // Primary key assigned by the backend
	AnimalID      int64     // Foreign key to Animal
	TagID         string    // Animal tag (e.g., "JNV-001"); may be empty on the wire
	WeightKg      float64   // Estimated weight in kilograms
	Confidence    float64   // Model confidence, 0.0-1.0
	CameraID      string    // Source camera (e.g., "CAM-001")
	Timestamp     time.Time // When the measurement was captured
}

// -----------------------------------------------------------------------------
// Relational Types
// -----------------------------------------------------------------------------

// Animal represents a tracked animal in the herd.
type Animal struct {
	ID        int64     // Primary key
	TagID     string    // Unique tag identifier, uppercase (e.g., "JNV-001")
	Name      string    // Optional display name
	Species   string    // Species: cattle, sheep, goat, horse, other
	Breed     string    // Optional breed name
	Gender    string    // male, female, unknown
	Status    string    // Lifecycle status: active, quarantine, sick, sold, deceased, transferred
	BirthDate time.Time // Zero when unknown
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Archived reports whether the animal is in a terminal lifecycle state.
// Archived animals are preserved for audit and never modified.
func (a Animal) Archived() bool {
	return a.Status == StatusSold || a.Status == StatusDeceased
}

// Animal lifecycle statuses.
const (
	StatusActive      = "active"
	StatusQuarantine  = "quarantine"
	StatusSick        = "sick"
	StatusSold        = "sold"
	StatusDeceased    = "deceased"
	StatusTransferred = "transferred"
)

// -----------------------------------------------------------------------------
// Pipeline Types
// -----------------------------------------------------------------------------

// PipelineStatus describes the remote detection pipeline.
type PipelineStatus struct {
	Running         bool
	FramesProcessed int64
	Detections      int64
	Measurements    int64
	Errors          int64
	StartedAt       time.Time // Zero when not running
}

// StreamStats describes the backend's live-stream connection pool.
type StreamStats struct {
	ActiveConnections   int
	TotalConnections    int64
	TotalDisconnections int64
	TotalMessagesSent   int64
}
