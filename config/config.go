package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime-tunable setting for the server, loaded from
// environment variables with sensible defaults.
type Config struct {
	Port        string
	StationName string

	// MusicDirs lists one or more roots to scan and overlay into a single
	// library tree (directories sharing a simplified name are merged).
	MusicDirs []string

	// TranscodeDir is where live transcodes write their output files. It
	// must be writable and exclusive to this server instance.
	TranscodeDir string

	// MaxRunningTranscodes is R: the running-retention list capacity.
	// A value of 0 disables transcoding entirely.
	MaxRunningTranscodes int
	// MaxCompletedTranscodes is C: the completed-retention list capacity.
	MaxCompletedTranscodes int

	Bitrate    string
	SampleRate string
	Channels   string

	RescanInterval time.Duration

	CatalogFile string
	WebDir      string

	AdminUsername string
	AdminPassword string
	JWTSecret     string
}

func Load() *Config {
	return &Config{
		Port:                   getEnv("PORT", "8000"),
		StationName:            getEnv("STATION_NAME", "Sonora"),
		MusicDirs:              getEnvAsList("MUSIC_DIRS", []string{"./music"}),
		TranscodeDir:           getEnv("TRANSCODE_DIR", "./data/transcode"),
		MaxRunningTranscodes:   getEnvAsInt("MAX_RUNNING_TRANSCODES", 1),
		MaxCompletedTranscodes: getEnvAsInt("MAX_COMPLETED_TRANSCODES", 20),
		Bitrate:                getEnv("BITRATE", "192k"),
		SampleRate:             getEnv("SAMPLE_RATE", "44100"),
		Channels:               getEnv("CHANNELS", "2"),
		RescanInterval:         getEnvAsDuration("RESCAN_INTERVAL", 5*time.Minute),
		CatalogFile:            getEnv("CATALOG_FILE", "./data/catalog.json"),
		WebDir:                 getEnv("WEB_DIR", "./web/dist"),
		AdminUsername:          getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:          getEnv("ADMIN_PASSWORD", "change-me"),
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production-please"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultVal
}

// getEnvAsList splits a comma-separated env var into a trimmed, non-empty
// slice of strings.
func getEnvAsList(name string, defaultVal []string) []string {
	valueStr, exists := os.LookupEnv(name)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultVal
	}
	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
