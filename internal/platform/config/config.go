package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Optional backends (postgres,
// redis, SMTP, kafka) fall back to in-memory or logging implementations when
// their settings are empty, so a bare binary still runs for development.
type Server struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration

	PostgresURL string
	RedisURL    string

	SMTP SMTPConfig

	KafkaBrokers []string
	AuditTopic   string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// SMTPConfig configures the OTP delivery channel.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// OTPTTL bounds how long a registration code stays valid.
var OTPTTL = 5 * time.Minute

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VERITAS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	tokenTTL := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			tokenTTL = d
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "veritas.audit"
	}

	adminName := os.Getenv("ADMIN_NAME")
	if adminName == "" {
		adminName = "Admin User"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      tokenTTL,
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		KafkaBrokers:  brokers,
		AuditTopic:    auditTopic,
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     adminName,
	}
}
