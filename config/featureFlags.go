package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// RunningCustomerCredit makes the auto-assignment pass charge each allocation against a
// running per-customer credit balance instead of the customer's starting credit.
// Off by default: several orders of one customer are each checked against the same credit.
//
// Set via env:
// - ALLOCATION_RUNNING_CREDIT=true
func RunningCustomerCredit() bool {
	return boolFromEnv("ALLOCATION_RUNNING_CREDIT")
}

// SeedFile is the YAML snapshot new sessions start from when the caller sends no body.
//
// Set via env:
// - ALLOCATION_SEED_FILE=./seed/allocation.yaml
func SeedFile() string {
	return strings.TrimSpace(os.Getenv("ALLOCATION_SEED_FILE"))
}

// RateLimitEnabled turns on the redis backed request limiter.
//
// Env:
// - RATE_LIMIT_ENABLED=true
// - RATE_LIMIT_WINDOW_SECONDS=60
// - RATE_LIMIT_MAX_REQUESTS=600
func RateLimitEnabled() bool {
	return boolFromEnv("RATE_LIMIT_ENABLED")
}

func RateLimitMaxRequests() int64 {
	return int64(intFromEnv("RATE_LIMIT_MAX_REQUESTS", 600))
}

func RateLimitWindow() time.Duration {
	return time.Duration(intFromEnv("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
