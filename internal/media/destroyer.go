package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"portfolioadmin/internal/config"
)

// Destroy results treated as success.
const (
	ResultOK       = "ok"
	ResultNotFound = "not found"
)

// CloudinaryDestroyer deletes assets with the host's signed destroy API.
type CloudinaryDestroyer struct {
	cfg  config.MediaConfig
	http *http.Client
	now  func() time.Time
}

// NewCloudinaryDestroyer returns a destroyer using cfg's API credentials.
func NewCloudinaryDestroyer(cfg config.MediaConfig, httpClient *http.Client) *CloudinaryDestroyer {
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &CloudinaryDestroyer{cfg: cfg, http: httpClient, now: time.Now}
}

type destroyResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Destroy calls POST {api}/{cloud}/{kind}/destroy. A "not found" result is
// success so that repeated deletes stay harmless.
func (d *CloudinaryDestroyer) Destroy(ctx context.Context, publicID string, kind ResourceType) (string, error) {
	if publicID == "" {
		return "", fmt.Errorf("public id is required")
	}
	kind, err := ParseResourceType(string(kind))
	if err != nil {
		return "", err
	}

	ts := strconv.FormatInt(d.now().Unix(), 10)
	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", ts)
	form.Set("api_key", d.cfg.APIKey)
	form.Set("signature", sign(map[string]string{"public_id": publicID, "timestamp": ts}, d.cfg.APISecret))

	endpoint := strings.TrimRight(d.cfg.APIBaseURL, "/") + "/" + d.cfg.CloudName + "/" + string(kind) + "/destroy"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("destroy %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var out destroyResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(raw)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("destroy %s: status %d: %s", publicID, resp.StatusCode, msg)
	}

	switch out.Result {
	case ResultOK, ResultNotFound:
		return out.Result, nil
	default:
		return "", fmt.Errorf("destroy %s: unexpected result %q", publicID, out.Result)
	}
}

// sign builds the host's request signature: the params sorted by name,
// joined as k=v with '&', suffixed with the secret, SHA-1 hex encoded.
func sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(secret)

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
