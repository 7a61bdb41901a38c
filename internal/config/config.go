package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	DatabaseURL string
	BotToken    string // пусто — бот не запускается
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string
	Location    *time.Location

	DBMaxConns int32
	DBMinConns int32
	DBTimeout  time.Duration

	Calendar Calendar

	AdminSurname  string
	AdminPassword string // пусто — сгенерируется при первом запуске
}

type Calendar struct {
	Enabled         bool
	CalendarID      string
	CredentialsFile string
	SyncInterval    time.Duration
	MaxAttempts     int
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Europe/Riga")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("TZ: %w", err)
	}

	maxConns, err := intEnv("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := intEnv("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, err
	}
	if maxConns < 1 || minConns < 0 || minConns > maxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS: bad bounds %d/%d", minConns, maxConns)
	}
	dbTimeout, err := durationEnv("DB_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	calEnabled, err := boolEnv("CALENDAR_ENABLED", false)
	if err != nil {
		return nil, err
	}
	syncEvery, err := durationEnv("CALENDAR_SYNC_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, err
	}
	maxAttempts, err := intEnv("CALENDAR_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("CALENDAR_MAX_ATTEMPTS: must be positive, got %d", maxAttempts)
	}

	env := strings.ToLower(getenv("ENV", "dev"))
	if env != "dev" && env != "prod" {
		return nil, fmt.Errorf("ENV: want dev or prod, got %q", env)
	}

	cfg := &Config{
		DatabaseURL: mustEnv("DATABASE_URL"),
		BotToken:    os.Getenv("BOT_TOKEN"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		Env:         env,
		SentryDSN:   os.Getenv("SENTRY_DSN"),
		Location:    loc,
		DBMaxConns:  int32(maxConns),
		DBMinConns:  int32(minConns),
		DBTimeout:   dbTimeout,
		Calendar: Calendar{
			Enabled:         calEnabled,
			CalendarID:      getenv("GOOGLE_CALENDAR_ID", "primary"),
			CredentialsFile: getenv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
			SyncInterval:    syncEvery,
			MaxAttempts:     maxAttempts,
		},
		AdminSurname:  getenv("ADMIN_SURNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	return cfg, nil
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func boolEnv(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", k, v)
	}
	return d, nil
}
