// Package config handles configuration for the classroom device agent,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for one classroom device.
//
// Fields:
//   - ServerURL: base URL of the central authority.
//   - DatabaseDSN: path of the local SQLite database.
//   - CameraURL: snapshot endpoint of the classroom IP camera.
//   - DetectorURL: endpoint of the face-detection sidecar.
//   - DeviceID: stable identifier this device authenticates as.
//   - SharedSecret: HMAC secret for minting device tokens.
//   - MatchThreshold: maximum cosine distance accepted as a face match.
//   - ActiveInterval / IdleInterval: recognition cadence in and out of class.
//   - SyncInterval: pause between reconciliation cycles.
//   - RequestTimeout: per-call bound on camera, detector and sync requests.
type Config struct {
	ServerURL      string
	DatabaseDSN    string
	CameraURL      string
	DetectorURL    string
	DeviceID       string
	SharedSecret   string
	MatchThreshold float64
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	SyncInterval   time.Duration
	RequestTimeout time.Duration
}

// LoadDefaults populates c with development defaults.
// NOTE: SharedSecret must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "device.db"
	c.CameraURL = "http://127.0.0.1:8081/snapshot"
	c.DetectorURL = "http://127.0.0.1:8082/detect"
	c.DeviceID = "classroom-device"
	c.SharedSecret = "secretKey"
	c.MatchThreshold = 0.40
	c.ActiveInterval = 3 * time.Second
	c.IdleInterval = 10 * time.Second
	c.SyncInterval = 15 * time.Minute
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
