// Package cluster is the outbound HTTP surface to the cluster REST API. Every request it issues
// passes through the interceptor chain installed as its transport.
package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apierrors "github.com/devrev/flink-dashboard/internal/errors"
	"github.com/devrev/flink-dashboard/internal/interceptor"
	"github.com/devrev/flink-dashboard/internal/model"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config configures a Client.
type Config struct {
	Endpoint   string
	StatusPath string
	Timeout    time.Duration
}

// Client talks to the cluster REST API.
type Client struct {
	rest       *resty.Client
	statusPath string
	logger     *zap.Logger
}

// Response is a raw cluster response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Overview is the cluster summary served at /overview.
type Overview struct {
	TaskManagers   int    `json:"taskmanagers"`
	SlotsTotal     int    `json:"slots-total"`
	SlotsAvailable int    `json:"slots-available"`
	JobsRunning    int    `json:"jobs-running"`
	JobsFinished   int    `json:"jobs-finished"`
	JobsCancelled  int    `json:"jobs-cancelled"`
	JobsFailed     int    `json:"jobs-failed"`
	FlinkVersion   string `json:"flink-version"`
	FlinkCommit    string `json:"flink-commit"`
}

// RequestOption adjusts a single request.
type RequestOption func(*resty.Request)

// IgnoreError marks the request so that its failure raises no operator notification.
func IgnoreError() RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(interceptor.IgnoreErrorHeader, "true")
	}
}

// NewClient creates a client whose transport is chain. Callers cannot bypass the chain.
func NewClient(cfg Config, chain http.RoundTripper, logger *zap.Logger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")).
		SetTransport(chain).
		SetHeader("Accept", "application/json")
	if cfg.Timeout > 0 {
		rest.SetTimeout(cfg.Timeout)
	}

	statusPath := cfg.StatusPath
	if statusPath == "" {
		statusPath = "/config"
	}

	return &Client{
		rest:       rest,
		statusPath: statusPath,
		logger:     logger,
	}
}

// Get issues a GET for path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string, query url.Values, opts ...RequestOption) (*Response, error) {
	req := c.rest.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Get(path)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &apierrors.ClusterError{
			Kind:       apierrors.KindForStatus(resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			Message:    http.StatusText(resp.StatusCode()),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// FetchConfig reads the cluster configuration from the status endpoint.
func (c *Client) FetchConfig(ctx context.Context) (*model.ClusterConfig, error) {
	var cfg model.ClusterConfig
	if err := c.getJSON(ctx, c.statusPath, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Overview reads the cluster summary.
func (c *Client) Overview(ctx context.Context, opts ...RequestOption) (*Overview, error) {
	var ov Overview
	if err := c.getJSON(ctx, "/overview", &ov, opts...); err != nil {
		return nil, err
	}
	return &ov, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}, opts ...RequestOption) error {
	resp, err := c.Get(ctx, path, nil, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		c.logger.Warn("undecodable cluster response", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("decode %s: %w: %v", path, apierrors.ErrMalformedPayload, err)
	}
	return nil
}
