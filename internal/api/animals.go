package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/farmsight/herdfeed/internal/model"
)

// ListAnimals fetches one page of animals.
func (c *Client) ListAnimals(ctx context.Context, opts ListAnimalsOptions) (*AnimalListResponse, error) {
	query := url.Values{}

	if opts.Skip > 0 {
		query.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Species != "" {
		query.Set("species", opts.Species)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	var resp AnimalListResponse
	if err := c.get(ctx, "/animals/", query, &resp); err != nil {
		return nil, fmt.Errorf("list animals: %w", err)
	}

	return &resp, nil
}

// GetAllAnimals fetches every animal matching the options by paginating.
func (c *Client) GetAllAnimals(ctx context.Context, opts ListAnimalsOptions) ([]model.Animal, error) {
	opts.Limit = 100 // Max page size

	var all []model.Animal
	for {
		resp, err := c.ListAnimals(ctx, opts)
		if err != nil {
			return nil, err
		}

		for _, a := range resp.Items {
			all = append(all, a.ToModel())
		}

		opts.Skip += len(resp.Items)
		if len(resp.Items) == 0 || opts.Skip >= resp.Total {
			break
		}
	}

	return all, nil
}

// GetAnimal fetches a single animal by database ID.
func (c *Client) GetAnimal(ctx context.Context, id int64) (*model.Animal, error) {
	var resp APIAnimal
	if err := c.get(ctx, fmt.Sprintf("/animals/%d", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("get animal %d: %w", id, err)
	}
	m := resp.ToModel()
	return &m, nil
}

// GetAnimalByTag fetches a single animal by its tag identifier.
func (c *Client) GetAnimalByTag(ctx context.Context, tagID string) (*model.Animal, error) {
	var resp APIAnimal
	if err := c.get(ctx, "/animals/tag/"+url.PathEscape(tagID), nil, &resp); err != nil {
		return nil, fmt.Errorf("get animal by tag %s: %w", tagID, err)
	}
	m := resp.ToModel()
	return &m, nil
}

// CreateAnimal creates a new animal record.
func (c *Client) CreateAnimal(ctx context.Context, create AnimalCreate) (*model.Animal, error) {
	var resp APIAnimal
	if err := c.post(ctx, "/animals/", nil, create, &resp); err != nil {
		return nil, fmt.Errorf("create animal: %w", err)
	}
	m := resp.ToModel()
	return &m, nil
}

// RecentMeasurements fetches the most recent stored measurements.
func (c *Client) RecentMeasurements(ctx context.Context, limit int) ([]model.Measurement, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp []APIMeasurement
	if err := c.get(ctx, "/weights/recent", query, &resp); err != nil {
		return nil, fmt.Errorf("recent measurements: %w", err)
	}

	out := make([]model.Measurement, 0, len(resp))
	for _, m := range resp {
		out = append(out, m.ToModel())
	}
	return out, nil
}

// AnimalMeasurements fetches stored measurements for one animal.
func (c *Client) AnimalMeasurements(ctx context.Context, animalID int64, limit int) ([]model.Measurement, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp []APIMeasurement
	if err := c.get(ctx, fmt.Sprintf("/weights/animal/%d", animalID), query, &resp); err != nil {
		return nil, fmt.Errorf("animal %d measurements: %w", animalID, err)
	}

	out := make([]model.Measurement, 0, len(resp))
	for _, m := range resp {
		out = append(out, m.ToModel())
	}
	return out, nil
}
