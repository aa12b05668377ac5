// Package capture grabs frames from the classroom camera. The camera is
// reached over HTTP so the device binary stays free of camera drivers.
package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Camera produces single frames on demand.
type Camera interface {
	// Grab captures one frame as encoded image bytes.
	Grab(ctx context.Context) ([]byte, error)
	Close() error
}

// SnapshotCamera reads JPEG stills from an IP camera's snapshot endpoint.
type SnapshotCamera struct {
	url    string
	client *http.Client
}

func NewSnapshotCamera(url string, timeout time.Duration) *SnapshotCamera {
	return &SnapshotCamera{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Probe grabs and discards one frame. The device calls it once at startup:
// a camera that cannot deliver a single frame makes the device useless, so
// a Probe failure is fatal while later Grab failures are only retried.
func (c *SnapshotCamera) Probe(ctx context.Context) error {
	if _, err := c.Grab(ctx); err != nil {
		return fmt.Errorf("camera probe failed: %w", err)
	}
	return nil
}

func (c *SnapshotCamera) Grab(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned status %d", resp.StatusCode)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("snapshot body is empty")
	}
	return frame, nil
}

func (c *SnapshotCamera) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
