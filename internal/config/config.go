// Package config loads node configuration from an optional .env file and
// the environment, matching the teacher's common/config.GetEnv pattern
// generalized with godotenv.Load for file-based defaults (spec §6, SPEC_FULL
// §A.2). Per-node CLI flags are parsed by each binary's main, not here.
// Errors here are configuration errors (spec §7 kind 4): they are returned
// to the caller, never panicked.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file if present. A missing file is not an error;
// a malformed one is.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// GetEnv retrieves an environment variable or returns a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Ambient addresses for the optional ambient-stack integrations (consul,
// rabbitmq, redis, otel collector). Every one of these is optional: an
// empty/unreachable address degrades the corresponding ambient feature
// without affecting the core coordination plane.
type Ambient struct {
	ConsulAddr   string
	AMQPUser     string
	AMQPPass     string
	AMQPHost     string
	AMQPPort     string
	RedisAddr    string
	OTLPEndpoint string
	MetricsAddr  string
}

// LoadAmbient reads ambient-stack settings from the environment, applying
// the teacher's defaults (localhost, guest/guest).
func LoadAmbient() Ambient {
	return Ambient{
		ConsulAddr:   GetEnv("CONSUL_ADDR", "localhost:8500"),
		AMQPUser:     GetEnv("AMQP_USER", "guest"),
		AMQPPass:     GetEnv("AMQP_PASS", "guest"),
		AMQPHost:     GetEnv("AMQP_HOST", "localhost"),
		AMQPPort:     GetEnv("AMQP_PORT", "5672"),
		RedisAddr:    GetEnv("REDIS_ADDR", "localhost:6379"),
		OTLPEndpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		MetricsAddr:  GetEnv("METRICS_ADDR", ""),
	}
}
