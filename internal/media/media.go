// Package media moves image and video assets to and from the hosted media
// service. Uploads go straight to the host with an unsigned preset; deletes
// go through a trusted intermediary that holds the API secret.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ResourceType is the host's asset class.
type ResourceType string

const (
	Image ResourceType = "image"
	Video ResourceType = "video"
)

// ParseResourceType normalizes kind. Empty means Image; anything other
// than image or video is rejected.
func ParseResourceType(kind string) (ResourceType, error) {
	switch ResourceType(strings.ToLower(strings.TrimSpace(kind))) {
	case "", Image:
		return Image, nil
	case Video:
		return Video, nil
	default:
		return "", fmt.Errorf("unsupported resource type %q", kind)
	}
}

// UploadResult describes a stored asset.
type UploadResult struct {
	URL          string `json:"url"`
	AssetID      string `json:"assetId"`
	ResourceType string `json:"resourceType,omitempty"`
}

// UploadError reports a rejected or failed upload. Body holds the host's
// raw response when there was one.
type UploadError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload failed: %v", e.Err)
	}
	return fmt.Sprintf("upload failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError reports a failed delete through the intermediary.
type DeleteError struct {
	AssetID    string
	StatusCode int
	Body       string
	Err        error
}

func (e *DeleteError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("delete %s failed: %v", e.AssetID, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("delete %s failed: status %d: %s", e.AssetID, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("delete %s failed: %s", e.AssetID, e.Body)
	}
}

func (e *DeleteError) Unwrap() error { return e.Err }

// Client uploads and deletes assets.
type Client interface {
	// Upload sends r to the host under filename.
	Upload(ctx context.Context, r io.Reader, filename string) (UploadResult, error)
	// Delete removes assetID. An empty assetID is a no-op.
	Delete(ctx context.Context, assetID string, kind ResourceType) error
}

// Destroyer performs the authenticated deletion behind the intermediary.
// It returns the backend's result string, e.g. "ok" or "not found".
type Destroyer interface {
	Destroy(ctx context.Context, publicID string, kind ResourceType) (string, error)
}
