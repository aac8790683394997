// Package client calls the planner HTTP API with an API key.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/arnavshah/course-planner-api/pkg/models"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
	Kind    string
	Course  string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("planner api: %d %s: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("planner api: %d: %s", e.Status, e.Message)
}

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Course string `json:"course"`
}

// Client talks to one planner server
type Client struct {
	http *resty.Client
}

// New creates a client for baseURL authenticating with apiKey
func New(baseURL, apiKey string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(60*time.Second).
		SetHeader("Accept", "application/json").
		SetError(&errorBody{})
	return &Client{http: c}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		Post(path)
	if err != nil {
		return fmt.Errorf("planner api %s: %w", path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode(), Message: resp.Status()}
		if e, ok := resp.Error().(*errorBody); ok && e.Error != "" {
			apiErr.Message, apiErr.Kind, apiErr.Course = e.Error, e.Kind, e.Course
		}
		return apiErr
	}
	return nil
}

// Generate sends an inline pool. A nil budget uses the server default.
func (c *Client) Generate(ctx context.Context, pool []models.CourseSection, budget *int, policy string) (*models.GenerateResponse, error) {
	courses, err := json.Marshal(pool)
	if err != nil {
		return nil, err
	}
	var out models.GenerateResponse
	in := models.GenerateInput{Courses: courses, Budget: budget, Policy: policy}
	if err := c.post(ctx, "/api/generate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RankResponse is the answer of the rank endpoint
type RankResponse struct {
	Policy        string             `json:"policy"`
	Candidates    []models.Candidate `json:"candidates"`
	ConflictFree  []models.Candidate `json:"conflict_free"`
	WithConflicts []models.Candidate `json:"with_conflicts"`
}

// Rank re-orders candidates on the server
func (c *Client) Rank(ctx context.Context, candidates []models.Candidate, policy string) (*RankResponse, error) {
	var out RankResponse
	if err := c.post(ctx, "/api/rank", models.RankInput{Candidates: candidates, Policy: policy}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateResponse is the pool report of the validate endpoint
type ValidateResponse struct {
	Valid  bool           `json:"valid"`
	Error  string         `json:"error"`
	Course string         `json:"course"`
	Stats  map[string]any `json:"stats"`
}

// Validate checks a pool without generating
func (c *Client) Validate(ctx context.Context, pool []models.CourseSection) (*ValidateResponse, error) {
	courses, err := json.Marshal(pool)
	if err != nil {
		return nil, err
	}
	var out ValidateResponse
	if err := c.post(ctx, "/api/validate", models.GenerateInput{Courses: courses}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Grid renders a candidate on the server
func (c *Client) Grid(ctx context.Context, candidate models.Candidate) (*models.GridResponse, error) {
	var out models.GridResponse
	if err := c.post(ctx, "/api/grid", candidate, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
