// Package remotejob talks to the remote generation service. The client is a
// thin transport adapter: each method performs exactly one network call and
// none retry internally, so retry and deadline policy stays with the caller.
package remotejob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"regen/internal/domain"
	"regen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("remotejob: api key is required")

// Options configures the generation service client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the generation service's job API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type submitRequest struct {
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type submitResponse struct {
	JobID   string `json:"job_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type statusResponse struct {
	Artifacts []struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		DownloadURL string `json:"download_url"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		SizeBytes   int64  `json:"size_bytes"`
	} `json:"artifacts"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.generation.example.com"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Submit starts a generation job and returns its handle.
func (c *Client) Submit(ctx context.Context, prompt string) (domain.JobHandle, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("remotejob: empty prompt: %w", domain.ErrValidation)
	}
	body, err := json.Marshal(submitRequest{Prompt: prompt, Count: 1})
	if err != nil {
		return "", fmt.Errorf("remotejob: encode submit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("remotejob: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Warn().Int("status", resp.StatusCode).Msg("remotejob: submit rejected")
		return "", &domain.TransportError{Op: "submit", Status: resp.StatusCode}
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.ProtocolError{Op: "submit", Detail: err.Error()}
	}
	if strings.TrimSpace(out.JobID) == "" {
		return "", &domain.ProtocolError{Op: "submit", Detail: "missing job_id"}
	}
	c.logger.Debug().Str("handle", out.JobID).Msg("remotejob: job submitted")
	return domain.JobHandle(out.JobID), nil
}

// Status fetches the current artifact snapshot for a job. An empty snapshot
// is a valid "still nothing" answer, not an error.
func (c *Client) Status(ctx context.Context, handle domain.JobHandle) ([]domain.Artifact, error) {
	if handle.Empty() {
		return nil, fmt.Errorf("remotejob: status needs a handle: %w", domain.ErrValidation)
	}
	url := fmt.Sprintf("%s/v1/jobs/%s/artifacts", c.baseURL, string(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remotejob: build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: "status", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.TransportError{Op: "status", Status: resp.StatusCode}
	}
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.ProtocolError{Op: "status", Detail: err.Error()}
	}
	artifacts := make([]domain.Artifact, 0, len(out.Artifacts))
	for _, a := range out.Artifacts {
		if strings.TrimSpace(a.ID) == "" {
			return nil, &domain.ProtocolError{Op: "status", Detail: "artifact missing id"}
		}
		artifacts = append(artifacts, domain.Artifact{
			ID:          a.ID,
			Readiness:   readinessFromStatus(a.Status),
			DownloadURL: a.DownloadURL,
			Width:       a.Width,
			Height:      a.Height,
			SizeBytes:   a.SizeBytes,
		})
	}
	return artifacts, nil
}

// Delete removes a job from the remote service. Deleting an unknown or
// already-deleted handle returns an error wrapping domain.ErrNotFound; the
// caller decides how severe that is.
func (c *Client) Delete(ctx context.Context, handle domain.JobHandle) error {
	if handle.Empty() {
		return fmt.Errorf("remotejob: delete needs a handle: %w", domain.ErrValidation)
	}
	url := fmt.Sprintf("%s/v1/jobs/%s", c.baseURL, string(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("remotejob: build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: "delete", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("remotejob: delete %s: %w", handle, domain.ErrNotFound)
	case resp.StatusCode >= http.StatusBadRequest:
		return &domain.TransportError{Op: "delete", Status: resp.StatusCode}
	}
	c.logger.Debug().Str("handle", string(handle)).Msg("remotejob: job deleted")
	return nil
}

func readinessFromStatus(status string) domain.Readiness {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ready", "complete", "completed", "succeeded":
		return domain.ReadinessReady
	case "pending", "queued", "running", "processing":
		return domain.ReadinessPending
	default:
		return domain.ReadinessUnknown
	}
}
