package config

import (
	"flag"
	"os"
	"time"

	"github.com/ioehub/campus-attendance/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string      base URL of the central authority
//	-d string      path of the local SQLite database
//	-cam string    camera snapshot URL
//	-det string    face-detector URL
//	-id string     device identifier
//	-k string      shared secret for device tokens
//	-m float       match threshold (cosine distance)
//	-i int         sync interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-cam", "-det", "-id", "-k", "-m", "-i"})

	fs := flag.NewFlagSet("device", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the central authority")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local database")
	fs.StringVar(&cfg.CameraURL, "cam", cfg.CameraURL, "camera snapshot URL")
	fs.StringVar(&cfg.DetectorURL, "det", cfg.DetectorURL, "face-detector URL")
	fs.StringVar(&cfg.DeviceID, "id", cfg.DeviceID, "device identifier")
	fs.StringVar(&cfg.SharedSecret, "k", cfg.SharedSecret, "shared secret for device tokens")
	fs.Float64Var(&cfg.MatchThreshold, "m", cfg.MatchThreshold, "match threshold (cosine distance)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
