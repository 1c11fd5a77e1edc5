package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port           string
	AppURL         string
	MongoURI       string
	MongoDB        string
	RedisURL       string
	SecretKey      string
	CORSOrigins    []string
	TrustedProxies []string
	SecureCookies  bool
	SessionTTL     time.Duration
	Email          EmailConfig
}

type EmailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
	Secure     bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

func Load() (Config, error) {
	mailPort, err := strconv.Atoi(getenvDefault("MAIL_PORT", "587"))
	if err != nil {
		mailPort = 587
	}

	cfg := Config{
		Port:           getenvDefault("PORT", "8080"),
		AppURL:         getenvDefault("APP_URL", "http://localhost:3000"),
		MongoURI:       getenvDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getenvDefault("MONGO_DB", "altarmaker"),
		RedisURL:       getenvDefault("REDIS_URL", "redis://localhost:6379"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		CORSOrigins:    parseList(getenvDefault("CORS_ORIGINS", "*")),
		TrustedProxies: parseList(os.Getenv("TRUSTED_PROXIES")),
		SecureCookies:  parseBool(getenvDefault("SECURE_COOKIES", "false")),
		SessionTTL:     24 * time.Hour,
		Email: EmailConfig{
			Host:       os.Getenv("MAIL_SERVER"),
			Port:       mailPort,
			Username:   os.Getenv("MAIL_USERNAME"),
			Password:   os.Getenv("MAIL_PASSWORD"),
			From:       os.Getenv("MAIL_DEFAULT_SENDER"),
			SenderName: getenvDefault("EMAIL_SENDER_NAME", "AltarMaker"),
			Secure:     parseBool(getenvDefault("MAIL_USE_TLS", os.Getenv("MAIL_USE_SSL"))),
		},
	}

	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("SECRET_KEY is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(val string) bool {
	val = strings.ToLower(strings.TrimSpace(val))
	return val == "1" || val == "true" || val == "yes"
}

func parseList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
