package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	DatabaseDSN   string
	RedisURL      string
	KafkaBrokers  string
	JWTSigningKey string
	Matching      Matching
	Curator       Curator
}

// Matching holds the score thresholds that drive routing. Values are
// percentages on the 0-100 match score scale.
type Matching struct {
	AutoApprove   float64 // score at or above: approve without review
	CuratorReview float64 // score at or above (below AutoApprove): LLM review
	Floor         float64 // minimum score to count as a match at all
}

// Curator configures the external LLM review endpoint.
type Curator struct {
	Endpoint    string
	Model       string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("MEMORIA_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	dsn := os.Getenv("DATABASE_DSN")

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		DatabaseDSN:   dsn,
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),
		JWTSigningKey: jwtSigningKey,
		Matching: Matching{
			AutoApprove:   envFloat("MATCH_AUTO_APPROVE", 95),
			CuratorReview: envFloat("MATCH_CURATOR_REVIEW", 85),
			Floor:         envFloat("MATCH_FLOOR", 60),
		},
		Curator: Curator{
			Endpoint:    os.Getenv("CURATOR_ENDPOINT"),
			Model:       envString("CURATOR_MODEL", "gpt-4o-mini"),
			APIKey:      os.Getenv("CURATOR_API_KEY"),
			Timeout:     envDuration("CURATOR_TIMEOUT", 30*time.Second),
			MaxAttempts: envInt("CURATOR_MAX_ATTEMPTS", 3),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
