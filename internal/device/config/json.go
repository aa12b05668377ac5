package config

import (
	"encoding/json"
	"os"

	"github.com/ioehub/campus-attendance/internal/flagx"
	"github.com/ioehub/campus-attendance/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "15m"
// or as integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	DatabaseDSN    string         `json:"database_dsn"`
	CameraURL      string         `json:"camera_url"`
	DetectorURL    string         `json:"detector_url"`
	DeviceID       string         `json:"device_id"`
	SharedSecret   string         `json:"shared_secret"`
	MatchThreshold float64        `json:"match_threshold"`
	ActiveInterval timex.Duration `json:"active_interval"`
	IdleInterval   timex.Duration `json:"idle_interval"`
	SyncInterval   timex.Duration `json:"sync_interval"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file resolved via
// the -c/-config flags. Absent file means no overlay; read or unmarshal
// errors panic (caller should treat a broken config file as fatal).
// Zero-valued JSON fields leave the existing Config values in place.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.CameraURL != "" {
		cfg.CameraURL = jc.CameraURL
	}
	if jc.DetectorURL != "" {
		cfg.DetectorURL = jc.DetectorURL
	}
	if jc.DeviceID != "" {
		cfg.DeviceID = jc.DeviceID
	}
	if jc.SharedSecret != "" {
		cfg.SharedSecret = jc.SharedSecret
	}
	if jc.MatchThreshold > 0 {
		cfg.MatchThreshold = jc.MatchThreshold
	}
	if jc.ActiveInterval.Duration > 0 {
		cfg.ActiveInterval = jc.ActiveInterval.Duration
	}
	if jc.IdleInterval.Duration > 0 {
		cfg.IdleInterval = jc.IdleInterval.Duration
	}
	if jc.SyncInterval.Duration > 0 {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
