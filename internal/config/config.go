package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	Addr        string
	RosterFile  string
	Prelude     time.Duration
	BidWindow   time.Duration
	Tick        time.Duration
	LogLevel    string
	LogFormat   string // "dev" or "prod"
	CORSOrigins []string
	DatabaseURL string // empty disables the results archive
	NATSURL     string // empty disables the event relay
	NATSSubject string
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, reporting every invalid
// value at once.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	var errs error
	seconds := func(key string, fallback int) time.Duration {
		n, err := strconv.Atoi(get(key, strconv.Itoa(fallback)))
		if err != nil || n <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s must be a positive integer", key))
			return time.Duration(fallback) * time.Second
		}
		return time.Duration(n) * time.Second
	}

	cfg := Config{
		Addr:        get("ADDR", ":8080"),
		RosterFile:  get("ROSTER_FILE", ""),
		Prelude:     seconds("PRELUDE_SEC", 5),
		BidWindow:   seconds("BID_WINDOW_SEC", 15),
		LogLevel:    get("LOG_LEVEL", "info"),
		LogFormat:   get("LOG_FORMAT", "prod"),
		DatabaseURL: get("DATABASE_URL", ""),
		NATSURL:     get("NATS_URL", ""),
		NATSSubject: get("NATS_SUBJECT", "auction.events"),
	}

	tickMS, err := strconv.Atoi(get("TICK_MS", "1000"))
	if err != nil || tickMS <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("TICK_MS must be a positive integer"))
		tickMS = 1000
	}
	cfg.Tick = time.Duration(tickMS) * time.Millisecond

	for _, o := range strings.Split(get("CORS_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch cfg.LogFormat {
	case "dev", "prod":
	default:
		errs = multierr.Append(errs, fmt.Errorf("LOG_FORMAT must be dev or prod, got %q", cfg.LogFormat))
	}
	return cfg, errs
}
