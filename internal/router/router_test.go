package router

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/farmsight/herdfeed/internal/feed"
	"github.com/farmsight/herdfeed/internal/model"
)

// recordStatus records liveness bookkeeping calls.
type recordStatus struct {
	mu         sync.Mutex
	notices    []string
	heartbeats int
}

func (r *recordStatus) RecordNotice(status, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, status)
}

func (r *recordStatus) RecordHeartbeat(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
}

const weightFrame = `{
	"type": "weight_update",
	"data": {
		"measurement_id": 42,
		"animal_id": 7,
		"animal_tag_id": "NL-4471",
		"estimated_weight_kg": 612.3,
		"confidence_score": 0.87,
		"camera_id": "barn-east-1",
		"timestamp": "2026-08-30T14:02:11.503201"
	}
}`

func TestParse_WeightUpdate(t *testing.T) {
	msg, err := Parse([]byte(weightFrame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	update, ok := msg.(WeightUpdate)
	if !ok {
		t.Fatalf("expected WeightUpdate, got %T", msg)
	}

	m := update.Measurement
	if m.MeasurementID != 42 {
		t.Errorf("MeasurementID = %d, want 42", m.MeasurementID)
	}
	if m.AnimalID != 7 {
		t.Errorf("AnimalID = %d, want 7", m.AnimalID)
	}
	if m.TagID != "NL-4471" {
		t.Errorf("TagID = %q, want NL-4471", m.TagID)
	}
	if m.WeightKg != 612.3 {
		t.Errorf("WeightKg = %v, want 612.3", m.WeightKg)
	}
	if m.Confidence != 0.87 {
		t.Errorf("Confidence = %v, want 0.87", m.Confidence)
	}
	if m.CameraID != "barn-east-1" {
		t.Errorf("CameraID = %q, want barn-east-1", m.CameraID)
	}
	want := time.Date(2026, 8, 30, 14, 2, 11, 503201000, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, want)
	}
}

func TestParse_WeightUpdateWithZone(t *testing.T) {
	frame := `{"type":"weight_update","data":{"measurement_id":1,"animal_id":1,"animal_tag_id":"T","estimated_weight_kg":400,"confidence_score":0.5,"camera_id":"c","timestamp":"2026-08-30T14:02:11Z"}}`
	msg, err := Parse([]byte(frame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	update := msg.(WeightUpdate)
	want := time.Date(2026, 8, 30, 14, 2, 11, 0, time.UTC)
	if !update.Measurement.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", update.Measurement.Timestamp, want)
	}
}

func TestParse_ConnectionNotice(t *testing.T) {
	frame := `{"type":"connection","status":"connected","message":"welcome","active_connections":3}`
	msg, err := Parse([]byte(frame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	notice, ok := msg.(ConnectionNotice)
	if !ok {
		t.Fatalf("expected ConnectionNotice, got %T", msg)
	}
	if notice.Status != "connected" {
		t.Errorf("Status = %q, want connected", notice.Status)
	}
	if notice.Message != "welcome" {
		t.Errorf("Message = %q, want welcome", notice.Message)
	}
	if notice.ActiveConnections != 3 {
		t.Errorf("ActiveConnections = %d, want 3", notice.ActiveConnections)
	}
}

func TestParse_Heartbeat(t *testing.T) {
	frame := `{"type":"heartbeat","timestamp":1756562531.5,"active_connections":2}`
	msg, err := Parse([]byte(frame))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	hb, ok := msg.(Heartbeat)
	if !ok {
		t.Fatalf("expected Heartbeat, got %T", msg)
	}
	if hb.Timestamp != 1756562531.5 {
		t.Errorf("Timestamp = %v, want 1756562531.5", hb.Timestamp)
	}
	if hb.ActiveConnections != 2 {
		t.Errorf("ActiveConnections = %d, want 2", hb.ActiveConnections)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"invalid json", `{not json`},
		{"unknown type", `{"type":"barn_door_open"}`},
		{"empty type", `{}`},
		{"weight update without data", `{"type":"weight_update"}`},
		{"confidence above one", `{"type":"weight_update","data":{"measurement_id":1,"confidence_score":1.5,"timestamp":"2026-08-30T14:02:11Z"}}`},
		{"negative confidence", `{"type":"weight_update","data":{"measurement_id":1,"confidence_score":-0.1,"timestamp":"2026-08-30T14:02:11Z"}}`},
		{"bad timestamp", `{"type":"weight_update","data":{"measurement_id":1,"confidence_score":0.5,"timestamp":"yesterday"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.frame)); err == nil {
				t.Errorf("expected parse error for %s", tt.name)
			}
		})
	}
}

func TestParse_ErrorSentinels(t *testing.T) {
	if _, err := Parse([]byte(`{"type":"nope"}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Parse([]byte(`{"type":"weight_update"}`)); !errors.Is(err, ErrMissingData) {
		t.Errorf("expected ErrMissingData, got %v", err)
	}
}

func TestRouter_RouteWeightUpdate(t *testing.T) {
	store := feed.NewStore(5, time.Minute)
	status := &recordStatus{}
	sink := make(chan model.Measurement, 1)
	rt := NewRouter(store, status, sink, nil)

	rt.Route([]byte(weightFrame))

	if got := store.Len(); got != 1 {
		t.Fatalf("expected 1 entry in store, got %d", got)
	}
	if id, ok := store.Highlighted(); !ok || id != 42 {
		t.Errorf("expected highlight on 42, got (%d, %v)", id, ok)
	}

	select {
	case m := <-sink:
		if m.MeasurementID != 42 {
			t.Errorf("sink measurement ID = %d, want 42", m.MeasurementID)
		}
	default:
		t.Error("expected measurement on archive sink")
	}

	stats := rt.Stats()
	if stats.Received != 1 || stats.Routed != 1 || stats.ParseErrors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRouter_NilSink(t *testing.T) {
	store := feed.NewStore(5, time.Minute)
	rt := NewRouter(store, &recordStatus{}, nil, nil)

	rt.Route([]byte(weightFrame))

	if got := store.Len(); got != 1 {
		t.Errorf("expected 1 entry in store, got %d", got)
	}
}

func TestRouter_FullSinkDoesNotBlock(t *testing.T) {
	store := feed.NewStore(5, time.Minute)
	sink := make(chan model.Measurement) // Unbuffered, no reader.
	rt := NewRouter(store, &recordStatus{}, sink, nil)

	done := make(chan struct{})
	go func() {
		rt.Route([]byte(weightFrame))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Route blocked on full archive sink")
	}

	if got := store.Len(); got != 1 {
		t.Errorf("feed must be updated even when the sink drops, got %d entries", got)
	}
}

func TestRouter_ControlFrames(t *testing.T) {
	store := feed.NewStore(5, time.Minute)
	status := &recordStatus{}
	rt := NewRouter(store, status, nil, nil)

	rt.Route([]byte(`{"type":"connection","status":"connected","message":"hi"}`))
	rt.Route([]byte(`{"type":"heartbeat","timestamp":1756562531}`))

	status.mu.Lock()
	defer status.mu.Unlock()
	if len(status.notices) != 1 || status.notices[0] != "connected" {
		t.Errorf("unexpected notices: %v", status.notices)
	}
	if status.heartbeats != 1 {
		t.Errorf("expected 1 heartbeat, got %d", status.heartbeats)
	}
	if got := store.Len(); got != 0 {
		t.Errorf("control frames must not touch the feed, got %d entries", got)
	}
}

func TestRouter_MalformedFrameDropped(t *testing.T) {
	store := feed.NewStore(5, time.Minute)
	status := &recordStatus{}
	rt := NewRouter(store, status, nil, nil)

	rt.Route([]byte(`{"type":"weight_update","data":{"confidence_score":2.0,"timestamp":"2026-08-30T14:02:11Z"}}`))
	rt.Route([]byte(`garbage`))

	if got := store.Len(); got != 0 {
		t.Errorf("malformed frames must not reach the feed, got %d entries", got)
	}
	status.mu.Lock()
	noticeCount := len(status.notices)
	hbCount := status.heartbeats
	status.mu.Unlock()
	if noticeCount != 0 || hbCount != 0 {
		t.Error("malformed frames must not touch status bookkeeping")
	}

	stats := rt.Stats()
	if stats.Received != 2 {
		t.Errorf("Received = %d, want 2", stats.Received)
	}
	if stats.ParseErrors != 2 {
		t.Errorf("ParseErrors = %d, want 2", stats.ParseErrors)
	}
	if stats.Routed != 0 {
		t.Errorf("Routed = %d, want 0", stats.Routed)
	}
}
