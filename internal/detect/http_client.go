package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vidredact/internal/services"
)

const (
	userAgent   = "vidredact/1.0"
	jpegQuality = 90
)

// HTTPClient calls an inference service that accepts one JPEG frame per
// request and answers with a JSON list of detections.
//
// Request:  POST {url}?model=<model>&threshold=<t>, body image/jpeg
// Response: {"detections":[{"class":"knife","class_id":0,"confidence":0.91,"box":[x1,y1,x2,y2]}]}
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClient returns a client for endpoint with the given per-request timeout.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: timeout},
	}
}

type wireDetection struct {
	Class      string    `json:"class"`
	ClassID    *int      `json:"class_id"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

type wireResponse struct {
	Detections []wireDetection `json:"detections"`
}

// Detect implements Detector.
func (c *HTTPClient) Detect(ctx context.Context, variant Variant, frame image.Image, threshold float64) ([]Detection, error) {
	var body bytes.Buffer
	if err := jpeg.Encode(&body, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "parse url", c.endpoint, err)
	}
	q := target.Query()
	q.Set("model", variant.Model)
	q.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
	target.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &body)
	if err != nil {
		return nil, fmt.Errorf("build detector request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "detect", "request", "detector unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrExternalTool, "detect", "request",
			fmt.Sprintf("detector returned %s: %s", resp.Status, strings.TrimSpace(string(snippet))), nil)
	}

	var payload wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "detect", "decode", "invalid detector response", err)
	}

	detections := make([]Detection, 0, len(payload.Detections))
	for _, d := range payload.Detections {
		label := d.Class
		if label == "" && d.ClassID != nil {
			label, _ = variant.Label(*d.ClassID)
		}
		if label == "" || len(d.Box) != 4 {
			return nil, services.Wrap(services.ErrExternalTool, "detect", "decode",
				fmt.Sprintf("malformed detection %+v", d), nil)
		}
		detections = append(detections, Detection{
			Class:      label,
			Confidence: d.Confidence,
			Box: Box{
				X1: int(d.Box[0]),
				Y1: int(d.Box[1]),
				X2: int(d.Box[2]),
				Y2: int(d.Box[3]),
			},
		})
	}
	return detections, nil
}

// Ping checks the detector answers at all. Any HTTP response counts.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "detect", "ping", "detector unreachable", err)
	}
	_ = resp.Body.Close()
	return nil
}
