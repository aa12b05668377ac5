// Package httpapi exposes the authority's HTTP API: the sync endpoints the
// classroom devices talk to, plus thin administrative endpoints for
// enrolling students, editing the timetable and posting notices.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ioehub/campus-attendance/internal/auth"
	"github.com/ioehub/campus-attendance/internal/logging"
	"github.com/ioehub/campus-attendance/internal/server/models"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

// maxPhotoBytes caps enrollment photo uploads.
const maxPhotoBytes = 10 << 20

// AttendanceStore accepts pushed attendance batches.
type AttendanceStore interface {
	InsertBatch(ctx context.Context, deviceID string, records []syncapi.AttendanceRecord) error
}

// StudentStore is the slice of the roster the API needs.
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) (int64, error)
	UpdatedSince(ctx context.Context, since time.Time) ([]models.Student, error)
}

// ScheduleStore is the slice of the timetable the API needs.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *models.Schedule) (int64, error)
	UpdatedSince(ctx context.Context, since time.Time) ([]models.Schedule, error)
}

// NoticeStore persists and lists notices.
type NoticeStore interface {
	Create(ctx context.Context, notice *models.Notice) (int64, error)
	List(ctx context.Context, department string, year int) ([]models.Notice, error)
}

// Enroller processes enrollment photos.
type Enroller interface {
	Enroll(ctx context.Context, studentID int64, photo []byte) (string, error)
}

type Server struct {
	secret     []byte
	attendance AttendanceStore
	students   StudentStore
	schedules  ScheduleStore
	notices    NoticeStore
	enroller   Enroller
	log        logging.Logger
}

func NewServer(secret []byte, attendance AttendanceStore, students StudentStore, schedules ScheduleStore, notices NoticeStore, enroller Enroller, log logging.Logger) *Server {
	return &Server{
		secret:     secret,
		attendance: attendance,
		students:   students,
		schedules:  schedules,
		notices:    notices,
		enroller:   enroller,
		log:        log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.With(s.deviceAuthMiddleware).Post("/sync/attendance", s.handlePushAttendance)
	r.With(s.deviceAuthMiddleware).Get("/sync/updates", s.handlePullUpdates)

	r.Post("/api/students", s.handleCreateStudent)
	r.Post("/api/students/{studentId}/faces", s.handleEnrollFace)
	r.Post("/api/schedules", s.handleCreateSchedule)
	r.Post("/api/notices", s.handleCreateNotice)
	r.Get("/api/notices", s.handleListNotices)

	return r
}

// Auth

type deviceIDKey struct{}

// deviceAuthMiddleware validates the bearer token minted from the shared
// secret and requires the X-Device-ID header to match the token's claim.
func (s *Server) deviceAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		deviceID, err := auth.DeviceIDFromToken(token, s.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		if header := r.Header.Get("X-Device-ID"); header != "" && header != deviceID {
			writeError(w, http.StatusUnauthorized, "device_mismatch")
			return
		}
		ctx := context.WithValue(r.Context(), deviceIDKey{}, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceIDFromContext(ctx context.Context) string {
	value := ctx.Value(deviceIDKey{})
	deviceID, _ := value.(string)
	return deviceID
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
