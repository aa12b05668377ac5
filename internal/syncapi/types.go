// Package syncapi declares the JSON wire types exchanged between classroom
// devices and the central authority. Both sides import this package so the
// payload shapes cannot drift apart.
package syncapi

import "time"

// AttendanceRecord is one attendance mark pushed by a device.
type AttendanceRecord struct {
	IdentityID int64     `json:"identity_id"`
	ScheduleID int64     `json:"schedule_id"`
	TakenAt    time.Time `json:"taken_at"`
}

// AttendancePush is the body of POST /sync/attendance.
//
// The server accepts the batch all-or-nothing: a non-2xx response means no
// record was stored and the device may safely resend the same batch.
type AttendancePush struct {
	Records []AttendanceRecord `json:"records"`
}

// Identity is a roster entry with its enrolled face embeddings.
type Identity struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Embeddings [][]float64 `json:"embeddings"`
}

// Schedule is one timetable slot. StartTime and EndTime are local wall-clock
// times with minute precision, formatted "HH:MM".
type Schedule struct {
	ID          int64  `json:"id"`
	SubjectName string `json:"subject_name"`
	DayOfWeek   int    `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Updates is the body of GET /sync/updates responses. ServerTime is the
// authority's own clock at the moment the delta was computed; devices persist
// it as their next watermark so clock skew between device and server never
// opens a gap in the pulled history.
type Updates struct {
	Identities []Identity `json:"identities"`
	Schedules  []Schedule `json:"schedules"`
	ServerTime time.Time  `json:"server_time"`
}
