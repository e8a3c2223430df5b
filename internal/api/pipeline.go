package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/farmsight/herdfeed/internal/model"
)

// StartPipelineOptions configure the remote detection pipeline.
type StartPipelineOptions struct {
	CameraFPS  int // Frames per second the camera captures (0 = backend default)
	SkipFrames int // Process every Nth frame (0 = backend default)
}

// StartPipeline starts the remote detection pipeline.
func (c *Client) StartPipeline(ctx context.Context, opts StartPipelineOptions) (*model.PipelineStatus, error) {
	query := url.Values{}
	if opts.CameraFPS > 0 {
		query.Set("camera_fps", strconv.Itoa(opts.CameraFPS))
	}
	if opts.SkipFrames > 0 {
		query.Set("skip_frames", strconv.Itoa(opts.SkipFrames))
	}

	var resp pipelineWire
	if err := c.post(ctx, "/pipeline/start", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("start pipeline: %w", err)
	}

	status := resp.toModel()
	return &status, nil
}

// StopPipeline stops the remote detection pipeline.
func (c *Client) StopPipeline(ctx context.Context) (*model.PipelineStatus, error) {
	var resp pipelineWire
	if err := c.post(ctx, "/pipeline/stop", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("stop pipeline: %w", err)
	}

	status := resp.toModel()
	return &status, nil
}

// GetPipelineStatus fetches current pipeline status and statistics.
func (c *Client) GetPipelineStatus(ctx context.Context) (*model.PipelineStatus, error) {
	var resp pipelineWire
	if err := c.get(ctx, "/pipeline/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get pipeline status: %w", err)
	}

	status := resp.toModel()
	return &status, nil
}

// GetStreamStats fetches the backend's live-stream connection statistics.
func (c *Client) GetStreamStats(ctx context.Context) (*model.StreamStats, error) {
	var resp streamStatsWire
	if err := c.get(ctx, "/live/stats", nil, &resp); err != nil {
		return nil, fmt.Errorf("get stream stats: %w", err)
	}

	return &model.StreamStats{
		ActiveConnections:   resp.ActiveConnections,
		TotalConnections:    resp.TotalConnections,
		TotalDisconnections: resp.TotalDisconnections,
		TotalMessagesSent:   resp.TotalMessagesSent,
	}, nil
}
