package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health endpoint

	Env      string // "dev" | "prod"
	DBPath   string // e.g. "./data/tagbook.db"
	Store    string // "sqlite" | "memory"
	TZ       string // IANA zone for the school day
	SeedFile string

	PendingTTL      time.Duration
	SweepInterval   time.Duration
	SettingsRefresh time.Duration

	PresentPoints           int
	ReducedAttendancePoints int
	TransportAllowance      int

	RedisAddr    string // empty publishes events to the log only
	RedisChannel string
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("TAGBOOK_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	store := strings.ToLower(getenvDefault("TAGBOOK_STORE", "sqlite"))
	if store != "sqlite" && store != "memory" {
		store = "sqlite"
	}

	refresh := getenvInt("TAGBOOK_SETTINGS_REFRESH_SECONDS", 5)
	if refresh < 1 || refresh > 30 {
		refresh = 5
	}

	return Config{
		HTTPAddr: getenvDefault("TAGBOOK_HTTP_ADDR", ":8080"),
		GRPCAddr: getenvOptional("TAGBOOK_GRPC_ADDR", ":9090"),

		Env:      env,
		DBPath:   getenvDefault("TAGBOOK_DB_PATH", "./data/tagbook.db"),
		Store:    store,
		TZ:       getenvDefault("TAGBOOK_TIMEZONE", "Local"),
		SeedFile: strings.TrimSpace(os.Getenv("TAGBOOK_SEED_FILE")),

		PendingTTL:      seconds(getenvInt("TAGBOOK_PENDING_TTL_SECONDS", 120)),
		SweepInterval:   seconds(getenvInt("TAGBOOK_SWEEP_INTERVAL_SECONDS", 15)),
		SettingsRefresh: seconds(refresh),

		PresentPoints:           getenvInt("TAGBOOK_PRESENT_POINTS", 10),
		ReducedAttendancePoints: getenvInt("TAGBOOK_REDUCED_ATTENDANCE_POINTS", 5),
		TransportAllowance:      getenvInt("TAGBOOK_TRANSPORT_ALLOWANCE", 5000),

		RedisAddr:    strings.TrimSpace(os.Getenv("TAGBOOK_REDIS_ADDR")),
		RedisChannel: getenvDefault("TAGBOOK_REDIS_CHANNEL", "tagbook.events"),
	}
}

// Location resolves TZ.  "Local" and "" mean the process time zone.
func (c Config) Location() (*time.Location, error) {
	if c.TZ == "" || strings.EqualFold(c.TZ, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.TZ, err)
	}
	return loc, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// getenvOptional is like getenvDefault but an explicitly empty value
// ("TAGBOOK_GRPC_ADDR=") turns the feature off.
func getenvOptional(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
