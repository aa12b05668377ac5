// Package faces enrolls students' faces: an uploaded photo is run through
// the detection service, the raw photo goes to object storage, and the
// resulting embedding is appended to the student so devices pull it on their
// next sync.
package faces

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ioehub/campus-attendance/internal/facedet"
)

var (
	// ErrNoFace means the photo contained no detectable face.
	ErrNoFace = errors.New("no face found in photo")
	// ErrMultipleFaces means the photo is ambiguous about whose face to enroll.
	ErrMultipleFaces = errors.New("more than one face in photo")
)

// Roster is the slice of the student store the service needs.
type Roster interface {
	AppendEmbedding(ctx context.Context, id int64, embedding []float64) error
}

// Service ties detection, photo storage and the roster together.
type Service struct {
	roster   Roster
	detector facedet.Detector
	uploader Uploader
}

func NewService(roster Roster, detector facedet.Detector, uploader Uploader) *Service {
	return &Service{roster: roster, detector: detector, uploader: uploader}
}

// Enroll processes one photo for the given student and returns the storage
// key of the archived photo. The embedding is only recorded after the photo
// is stored, so every embedding in the roster has its source photo on file.
func (s *Service) Enroll(ctx context.Context, studentID int64, photo []byte) (string, error) {
	embeddings, err := s.detector.Detect(ctx, photo)
	if err != nil {
		return "", fmt.Errorf("detection failed: %w", err)
	}
	if len(embeddings) == 0 {
		return "", ErrNoFace
	}
	if len(embeddings) > 1 {
		return "", ErrMultipleFaces
	}

	key := fmt.Sprintf("students/%d/%s.jpg", studentID, uuid.NewString())
	if err := s.uploader.Upload(ctx, key, photo, "image/jpeg"); err != nil {
		return "", fmt.Errorf("photo upload failed: %w", err)
	}

	if err := s.roster.AppendEmbedding(ctx, studentID, embeddings[0]); err != nil {
		return "", err
	}
	return key, nil
}
