// Package models defines the central authority's database entities.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Student is an enrolled person: roster data plus the face embeddings the
// classroom devices match against. Department and AdmissionYear drive the
// graduation cleanup.
type Student struct {
	ID            int64
	Name          string
	Department    string
	AdmissionYear int
	Embeddings    [][]float64
	LastUpdated   time.Time
}

// Schedule is one timetable slot as stored centrally. DayOfWeek counts from
// Monday as 0; StartTime and EndTime are "HH:MM" wall-clock strings.
type Schedule struct {
	ID          int64
	SubjectName string
	DayOfWeek   int
	StartTime   string
	EndTime     string
	LastUpdated time.Time
}

// Notice is an announcement targeted at a department and, optionally, an
// admission year. Year 0 means the notice addresses the whole department.
type Notice struct {
	ID         int64
	Title      string
	Body       string
	Department string
	Year       int
	CreatedAt  time.Time
}

// EncodeEmbeddings serializes embeddings for a JSONB column.
func EncodeEmbeddings(embeddings [][]float64) ([]byte, error) {
	if embeddings == nil {
		embeddings = [][]float64{}
	}
	data, err := json.Marshal(embeddings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode embeddings: %w", err)
	}
	return data, nil
}

// DecodeEmbeddings parses a JSONB embeddings column.
func DecodeEmbeddings(data []byte) ([][]float64, error) {
	if len(data) == 0 {
		return [][]float64{}, nil
	}
	var embeddings [][]float64
	if err := json.Unmarshal(data, &embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}
	return embeddings, nil
}
