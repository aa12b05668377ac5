// Package facedet is the client for the external face-detection capability:
// image bytes in, zero or more embedding vectors out, one per detected face.
// Classroom devices use it on camera frames; the central server uses it on
// enrollment photos. The model itself runs in a separate detection service.
package facedet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Detector turns an encoded image into face embeddings.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([][]float64, error)
}

// HTTPDetector talks to a detection service that runs the actual model.
type HTTPDetector struct {
	url    string
	client *http.Client
}

func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Faces []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"faces"`
}

func (d *HTTPDetector) Detect(ctx context.Context, image []byte) ([][]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to build detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect request returned status %d", resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode detect response: %w", err)
	}

	embeddings := make([][]float64, 0, len(parsed.Faces))
	for _, face := range parsed.Faces {
		if len(face.Embedding) == 0 {
			// A face without an embedding is a data error in a single item;
			// the rest of the batch is still usable.
			continue
		}
		embeddings = append(embeddings, face.Embedding)
	}
	return embeddings, nil
}
