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
//	-a string    address and port to bind the HTTP API
//	-d string    PostgreSQL DSN
//	-s string    HMAC secret shared with devices
//	-det string  face-detector URL
//	-u string    S3 root user
//	-p string    S3 root password
//	-b string    S3 bucket name
//	-g string    S3 region
//	-e string    S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-j int       cleanup job interval in hours
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-det", "-u", "-p", "-b", "-g", "-e", "-j"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key shared with devices")
	fs.StringVar(&cfg.DetectorURL, "det", cfg.DetectorURL, "face-detector URL")
	fs.StringVar(&cfg.S3RootUser, "u", cfg.S3RootUser, "S3 root user")
	fs.StringVar(&cfg.S3RootPassword, "p", cfg.S3RootPassword, "S3 root password")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	cleanupInterval := fs.Int("j", int(cfg.CleanupInterval.Hours()), "cleanup job interval (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.CleanupInterval = time.Duration(*cleanupInterval) * time.Hour
}
