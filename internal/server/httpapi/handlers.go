package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ioehub/campus-attendance/internal/server/faces"
	"github.com/ioehub/campus-attendance/internal/server/models"
	"github.com/ioehub/campus-attendance/internal/server/store"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

// handlePushAttendance stores a device's batch all-or-nothing. A non-2xx
// response tells the device nothing was accepted, so it keeps the records
// queued and resends the same batch later.
func (s *Server) handlePushAttendance(w http.ResponseWriter, r *http.Request) {
	deviceID := deviceIDFromContext(r.Context())

	var push syncapi.AttendancePush
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body")
		return
	}

	if err := s.attendance.InsertBatch(r.Context(), deviceID, push.Records); err != nil {
		s.log.Error(r.Context(), "failed to store attendance batch",
			"device_id", deviceID, "records", len(push.Records), "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"accepted": len(push.Records)})
}

// handlePullUpdates returns the roster and timetable changes since the
// device's watermark. server_time is captured before the queries run, so a
// row updated while they run lands on the next pull instead of in the gap.
func (s *Server) handlePullUpdates(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed_since")
			return
		}
		since = parsed
	}

	serverTime := time.Now().UTC()

	students, err := s.students.UpdatedSince(r.Context(), since)
	if err != nil {
		s.log.Error(r.Context(), "failed to load roster delta", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}
	schedules, err := s.schedules.UpdatedSince(r.Context(), since)
	if err != nil {
		s.log.Error(r.Context(), "failed to load timetable delta", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	updates := syncapi.Updates{
		Identities: make([]syncapi.Identity, 0, len(students)),
		Schedules:  make([]syncapi.Schedule, 0, len(schedules)),
		ServerTime: serverTime,
	}
	for _, student := range students {
		updates.Identities = append(updates.Identities, syncapi.Identity{
			ID:         student.ID,
			Name:       student.Name,
			Embeddings: student.Embeddings,
		})
	}
	for _, schedule := range schedules {
		updates.Schedules = append(updates.Schedules, syncapi.Schedule{
			ID:          schedule.ID,
			SubjectName: schedule.SubjectName,
			DayOfWeek:   schedule.DayOfWeek,
			StartTime:   schedule.StartTime,
			EndTime:     schedule.EndTime,
		})
	}

	writeJSON(w, http.StatusOK, updates)
}

type createStudentRequest struct {
	Name          string `json:"name"`
	Department    string `json:"department"`
	AdmissionYear int    `json:"admission_year"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body")
		return
	}
	if req.Name == "" || req.Department == "" || req.AdmissionYear == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	id, err := s.students.Create(r.Context(), &models.Student{
		Name:          req.Name,
		Department:    req.Department,
		AdmissionYear: req.AdmissionYear,
	})
	if err != nil {
		s.log.Error(r.Context(), "failed to create student", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleEnrollFace(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed_student_id")
		return
	}

	photo, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "photo_too_large")
		return
	}
	if len(photo) == 0 {
		writeError(w, http.StatusBadRequest, "empty_photo")
		return
	}

	key, err := s.enroller.Enroll(r.Context(), studentID, photo)
	switch {
	case errors.Is(err, faces.ErrNoFace), errors.Is(err, faces.ErrMultipleFaces):
		writeError(w, http.StatusUnprocessableEntity, "unusable_photo")
		return
	case errors.Is(err, store.ErrStudentNotFound):
		writeError(w, http.StatusNotFound, "student_not_found")
		return
	case err != nil:
		s.log.Error(r.Context(), "enrollment failed", "student_id", studentID, "error", err)
		writeError(w, http.StatusInternalServerError, "enrollment_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"photo_key": key})
}

type createScheduleRequest struct {
	SubjectName string `json:"subject_name"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body")
		return
	}
	if req.SubjectName == "" || req.DayOfWeek < 0 || req.DayOfWeek > 6 {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if !validClock(req.StartTime) || !validClock(req.EndTime) {
		writeError(w, http.StatusBadRequest, "malformed_time")
		return
	}

	id, err := s.schedules.Create(r.Context(), &models.Schedule{
		SubjectName: req.SubjectName,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		s.log.Error(r.Context(), "failed to create schedule", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func validClock(value string) bool {
	_, err := time.Parse("15:04", value)
	return err == nil
}

type createNoticeRequest struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Department string `json:"department"`
	Year       int    `json:"year"`
}

func (s *Server) handleCreateNotice(w http.ResponseWriter, r *http.Request) {
	var req createNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed_body")
		return
	}
	if req.Title == "" || req.Department == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	id, err := s.notices.Create(r.Context(), &models.Notice{
		Title:      req.Title,
		Body:       req.Body,
		Department: req.Department,
		Year:       req.Year,
	})
	if err != nil {
		s.log.Error(r.Context(), "failed to create notice", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type noticeResponse struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Department string    `json:"department"`
	Year       int       `json:"year"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleListNotices(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	if department == "" {
		writeError(w, http.StatusBadRequest, "missing_department")
		return
	}
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed_year")
			return
		}
		year = parsed
	}

	notices, err := s.notices.List(r.Context(), department, year)
	if err != nil {
		s.log.Error(r.Context(), "failed to list notices", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed")
		return
	}

	response := make([]noticeResponse, 0, len(notices))
	for _, notice := range notices {
		response = append(response, noticeResponse{
			ID:         notice.ID,
			Title:      notice.Title,
			Body:       notice.Body,
			Department: notice.Department,
			Year:       notice.Year,
			CreatedAt:  notice.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
