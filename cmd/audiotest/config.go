package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type config struct {
	LogLevel     string
	Freqs        []float64
	StepDuration time.Duration
	Pause        time.Duration
	MicFrames    int
}

// loadConfig reads .env if present; real environment variables win.
func loadConfig() config {
	_ = godotenv.Load()
	return config{
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Freqs:        getFloats("AUDIOTEST_FREQS", []float64{440, 880, 1320}),
		StepDuration: getDuration("AUDIOTEST_STEP_DURATION", 2*time.Second),
		Pause:        getDuration("AUDIOTEST_PAUSE", 500*time.Millisecond),
		MicFrames:    getInt("AUDIOTEST_MIC_FRAMES", 32),
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return def
}

func getFloats(key string, def []float64) []float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	var out []float64
	for _, f := range strings.Split(raw, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return def
		}
		out = append(out, v)
	}
	return out
}
