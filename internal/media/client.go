package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"portfolioadmin/internal/config"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

type client struct {
	cfg  config.MediaConfig
	http *http.Client
}

// NewHTTPClient returns an instrumented client for talking to the host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewClient validates cfg once and returns a Client bound to it. A missing
// cloud name or upload preset yields a *config.ConfigError.
func NewClient(cfg config.MediaConfig, httpClient *http.Client) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &client{cfg: cfg, http: httpClient}, nil
}

type uploadResponse struct {
	SecureURL    string `json:"secure_url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
}

func (c *client) Upload(ctx context.Context, r io.Reader, filename string) (UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, &UploadError{Err: fmt.Errorf("read file: %w", err)}
	}
	if err := mw.WriteField("upload_preset", c.cfg.UploadPreset); err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}
	if err := mw.WriteField("cloud_name", c.cfg.CloudName); err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}

	endpoint := strings.TrimRight(c.cfg.UploadBaseURL, "/") + "/" + c.cfg.CloudName + "/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return UploadResult{}, &UploadError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.SecureURL == "" || out.PublicID == "" {
		return UploadResult{}, &UploadError{StatusCode: resp.StatusCode, Err: errors.New("response is missing secure_url or public_id")}
	}
	return UploadResult{URL: out.SecureURL, AssetID: out.PublicID, ResourceType: out.ResourceType}, nil
}

type deleteRequest struct {
	PublicID     string       `json:"publicId"`
	ResourceType ResourceType `json:"resourceType"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

func (c *client) Delete(ctx context.Context, assetID string, kind ResourceType) error {
	if assetID == "" {
		return nil
	}
	kind, err := ParseResourceType(string(kind))
	if err != nil {
		return &DeleteError{AssetID: assetID, Err: err}
	}

	payload, err := json.Marshal(deleteRequest{PublicID: assetID, ResourceType: kind})
	if err != nil {
		return &DeleteError{AssetID: assetID, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DeleteEndpoint, bytes.NewReader(payload))
	if err != nil {
		return &DeleteError{AssetID: assetID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &DeleteError{AssetID: assetID, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeleteError{AssetID: assetID, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out deleteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return &DeleteError{AssetID: assetID, Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
	}
	if !out.Success {
		return &DeleteError{AssetID: assetID, Body: string(raw)}
	}
	return nil
}
