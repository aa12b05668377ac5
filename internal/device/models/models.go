// Package models defines the records the device keeps in its local store.
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Identity is a roster entry pulled from the central authority. Devices never
// author or mutate identities locally. An identity with no embeddings can
// never be matched.
type Identity struct {
	ID         int64
	Name       string
	Embeddings [][]float64
}

// ScheduledClass is one timetable slot pulled from the central authority.
// StartTime and EndTime are "HH:MM" local wall-clock strings; DayOfWeek is
// 0 (Monday) through 6 (Sunday).
type ScheduledClass struct {
	ID          int64
	SubjectName string
	DayOfWeek   int
	StartTime   string
	EndTime     string
}

// AttendanceRecord is one locally recorded attendance mark. ID is assigned by
// the local store and is unrelated to any server-side id. Synced is flipped
// once the record has been accepted by the central authority and never
// reverts.
type AttendanceRecord struct {
	ID         int64
	IdentityID int64
	ScheduleID int64
	TakenAt    time.Time
	Synced     bool
}

// EncodeEmbeddings serializes embedding vectors for storage.
// At rest embeddings are a JSON array of float arrays, same shape the sync
// protocol uses.
func EncodeEmbeddings(embeddings [][]float64) (string, error) {
	if embeddings == nil {
		embeddings = [][]float64{}
	}
	b, err := json.Marshal(embeddings)
	if err != nil {
		return "", fmt.Errorf("failed to encode embeddings: %w", err)
	}
	return string(b), nil
}

// DecodeEmbeddings parses embedding vectors stored by EncodeEmbeddings.
func DecodeEmbeddings(data string) ([][]float64, error) {
	var embeddings [][]float64
	if err := json.Unmarshal([]byte(data), &embeddings); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings: %w", err)
	}
	return embeddings, nil
}
