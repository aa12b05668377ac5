package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioehub/campus-attendance/internal/auth"
	"github.com/ioehub/campus-attendance/internal/logging"
	"github.com/ioehub/campus-attendance/internal/server/faces"
	"github.com/ioehub/campus-attendance/internal/server/models"
	"github.com/ioehub/campus-attendance/internal/server/store"
	"github.com/ioehub/campus-attendance/internal/syncapi"
)

var testSecret = []byte("test-secret")

type fakeAttendance struct {
	deviceID string
	records  []syncapi.AttendanceRecord
	err      error
}

func (f *fakeAttendance) InsertBatch(_ context.Context, deviceID string, records []syncapi.AttendanceRecord) error {
	if f.err != nil {
		return f.err
	}
	f.deviceID = deviceID
	f.records = records
	return nil
}

type fakeStudents struct {
	created  []models.Student
	students []models.Student
	since    time.Time
	err      error
}

func (f *fakeStudents) Create(_ context.Context, student *models.Student) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, *student)
	return int64(len(f.created)), nil
}

func (f *fakeStudents) UpdatedSince(_ context.Context, since time.Time) ([]models.Student, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.since = since
	return f.students, nil
}

type fakeSchedules struct {
	created   []models.Schedule
	schedules []models.Schedule
}

func (f *fakeSchedules) Create(_ context.Context, schedule *models.Schedule) (int64, error) {
	f.created = append(f.created, *schedule)
	return int64(len(f.created)), nil
}

func (f *fakeSchedules) UpdatedSince(_ context.Context, _ time.Time) ([]models.Schedule, error) {
	return f.schedules, nil
}

type fakeNotices struct {
	created []models.Notice
	notices []models.Notice
}

func (f *fakeNotices) Create(_ context.Context, notice *models.Notice) (int64, error) {
	f.created = append(f.created, *notice)
	return int64(len(f.created)), nil
}

func (f *fakeNotices) List(_ context.Context, _ string, _ int) ([]models.Notice, error) {
	return f.notices, nil
}

type fakeEnroller struct {
	studentID int64
	photo     []byte
	key       string
	err       error
}

func (f *fakeEnroller) Enroll(_ context.Context, studentID int64, photo []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.studentID = studentID
	f.photo = photo
	return f.key, nil
}

type serverFakes struct {
	attendance *fakeAttendance
	students   *fakeStudents
	schedules  *fakeSchedules
	notices    *fakeNotices
	enroller   *fakeEnroller
}

func newTestServer(t *testing.T) (*Server, *serverFakes) {
	t.Helper()
	fakes := &serverFakes{
		attendance: &fakeAttendance{},
		students:   &fakeStudents{},
		schedules:  &fakeSchedules{},
		notices:    &fakeNotices{},
		enroller:   &fakeEnroller{key: "students/7/photo.jpg"},
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := NewServer(testSecret, fakes.attendance, fakes.students, fakes.schedules, fakes.notices, fakes.enroller, log)
	return srv, fakes
}

func deviceRequest(t *testing.T, method, target, deviceID string, body []byte) *http.Request {
	t.Helper()
	token, err := auth.GenerateDeviceToken(deviceID, testSecret, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Device-ID", deviceID)
	return req
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPushAttendance(t *testing.T) {
	srv, fakes := newTestServer(t)

	takenAt := time.Date(2025, 3, 10, 9, 35, 0, 0, time.UTC)
	body, err := json.Marshal(syncapi.AttendancePush{Records: []syncapi.AttendanceRecord{
		{IdentityID: 1, ScheduleID: 5, TakenAt: takenAt},
	}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, deviceRequest(t, http.MethodPost, "/sync/attendance", "room-101", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "room-101", fakes.attendance.deviceID)
	require.Len(t, fakes.attendance.records, 1)
	assert.Equal(t, int64(1), fakes.attendance.records[0].IdentityID)
}

func TestPushAttendance_Auth(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sync/attendance", bytes.NewReader([]byte(`{}`)))
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sync/attendance", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Authorization", "Bearer not-a-token")
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := auth.GenerateDeviceToken("room-101", []byte("other-secret"), time.Minute)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sync/attendance", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Authorization", "Bearer "+token)
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("header does not match claim", func(t *testing.T) {
		req := deviceRequest(t, http.MethodPost, "/sync/attendance", "room-101", []byte(`{}`))
		req.Header.Set("X-Device-ID", "room-202")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPushAttendance_StorageError(t *testing.T) {
	srv, fakes := newTestServer(t)
	fakes.attendance.err = errors.New("db down")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, deviceRequest(t, http.MethodPost, "/sync/attendance", "room-101", []byte(`{"records":[]}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPullUpdates(t *testing.T) {
	srv, fakes := newTestServer(t)
	fakes.students.students = []models.Student{
		{ID: 1, Name: "Alice", Embeddings: [][]float64{{0.1, 0.2}}},
	}
	fakes.schedules.schedules = []models.Schedule{
		{ID: 5, SubjectName: "Databases", DayOfWeek: 0, StartTime: "09:00", EndTime: "10:00"},
	}

	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	target := "/sync/updates?since=" + since.Format(time.RFC3339Nano)

	before := time.Now().UTC()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, deviceRequest(t, http.MethodGet, target, "room-101", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var updates syncapi.Updates
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updates))

	assert.True(t, fakes.students.since.Equal(since))
	require.Len(t, updates.Identities, 1)
	assert.Equal(t, "Alice", updates.Identities[0].Name)
	require.Len(t, updates.Schedules, 1)
	assert.Equal(t, "09:00", updates.Schedules[0].StartTime)
	assert.False(t, updates.ServerTime.Before(before))
}

func TestPullUpdates_NoWatermark(t *testing.T) {
	srv, fakes := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, deviceRequest(t, http.MethodGet, "/sync/updates", "room-101", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fakes.students.since.IsZero())
}

func TestPullUpdates_MalformedSince(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, deviceRequest(t, http.MethodGet, "/sync/updates?since=yesterday", "room-101", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStudent(t *testing.T) {
	srv, fakes := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/students",
		bytes.NewReader([]byte(`{"name":"Alice","department":"CSE","admission_year":2023}`)))
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fakes.students.created, 1)
	assert.Equal(t, "Alice", fakes.students.created[0].Name)
	assert.Equal(t, 2023, fakes.students.created[0].AdmissionYear)
}

func TestCreateStudent_MissingFields(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/students",
		bytes.NewReader([]byte(`{"name":"Alice"}`)))
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollFace(t *testing.T) {
	srv, fakes := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/students/7/faces", bytes.NewReader([]byte("photo")))
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(7), fakes.enroller.studentID)
	assert.Equal(t, []byte("photo"), fakes.enroller.photo)
	assert.Contains(t, rec.Body.String(), "students/7/photo.jpg")
}

func TestEnrollFace_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   []byte
		err    error
		want   int
	}{
		{"no face", "/api/students/7/faces", []byte("photo"), faces.ErrNoFace, http.StatusUnprocessableEntity},
		{"many faces", "/api/students/7/faces", []byte("photo"), faces.ErrMultipleFaces, http.StatusUnprocessableEntity},
		{"unknown student", "/api/students/7/faces", []byte("photo"), store.ErrStudentNotFound, http.StatusNotFound},
		{"bad id", "/api/students/seven/faces", []byte("photo"), nil, http.StatusBadRequest},
		{"empty photo", "/api/students/7/faces", nil, nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fakes := newTestServer(t)
			fakes.enroller.err = tt.err

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.target, bytes.NewReader(tt.body))
			srv.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateSchedule_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"subject_name":"Databases","day_of_week":0,"start_time":"09:00","end_time":"10:00"}`, http.StatusCreated},
		{"bad day", `{"subject_name":"Databases","day_of_week":7,"start_time":"09:00","end_time":"10:00"}`, http.StatusBadRequest},
		{"bad time", `{"subject_name":"Databases","day_of_week":0,"start_time":"9am","end_time":"10:00"}`, http.StatusBadRequest},
		{"no subject", `{"day_of_week":0,"start_time":"09:00","end_time":"10:00"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/schedules", bytes.NewReader([]byte(tt.body)))
			srv.Router().ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNotices(t *testing.T) {
	srv, fakes := newTestServer(t)
	fakes.notices.notices = []models.Notice{
		{ID: 1, Title: "Exam schedule", Department: "CSE", Year: 2023},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/notices",
		bytes.NewReader([]byte(`{"title":"Exam schedule","body":"See board","department":"CSE","year":2023}`)))
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, fakes.notices.created, 1)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/notices?department=CSE&year=2023", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Exam schedule")
}

func TestListNotices_MissingDepartment(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notices", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
