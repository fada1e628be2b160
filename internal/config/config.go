// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Run modes for the etl binary.
const (
	RunModeServe = "serve" // expose the HTTP trigger and wait
	RunModeOnce  = "once"  // execute one run and exit
)

// Schema variants. See the storage package for the two table shapes.
const (
	SchemaNormalized   = "normalized"
	SchemaDenormalized = "denormalized"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURL     string
	FeedTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RunMode         string
	SchemaVariant   string

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	DBMinConns int32
	DBMaxConns int32

	// Downstream fact sink (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	feedTimeout, err := envDuration("FEED_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	dbPort, err := envInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	minConns, err := envInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	maxConns, err := envInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FeedURL:     envOrDefault("FEED_URL", "https://panynj.gov/bin/portauthority/crossingtimesapi.json"),
		FeedTimeout: feedTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RunMode:         envOrDefault("RUN_MODE", RunModeServe),
		SchemaVariant:   envOrDefault("SCHEMA_VARIANT", SchemaNormalized),

		DBHost:     envOrDefault("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBName:     envOrDefault("DB_NAME", "crossing_times"),
		DBUser:     envOrDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBSSLMode:  envOrDefault("DB_SSLMODE", "disable"),
		DBMinConns: int32(minConns),
		DBMaxConns: int32(maxConns),

		KafkaEnabled:   os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "crossing-status-readings"),
	}

	if cfg.FeedURL == "" {
		return nil, errors.New("FEED_URL is required")
	}
	if cfg.RunMode != RunModeServe && cfg.RunMode != RunModeOnce {
		return nil, fmt.Errorf("invalid RUN_MODE %q", cfg.RunMode)
	}
	if cfg.SchemaVariant != SchemaNormalized && cfg.SchemaVariant != SchemaDenormalized {
		return nil, fmt.Errorf("invalid SCHEMA_VARIANT %q", cfg.SchemaVariant)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
