package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings splits list-valued variables
	"time"    // time parses duration-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Lock and reaper timings are durations so
// deployments can tune them without code changes.
type Config struct {
	Env              string        // application environment (e.g. "dev", "prod")
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	JWTSecret        string        // secret used to verify access tokens
	LockTTL          time.Duration // seat lock time-to-live
	MaxSeatsPerLock  int           // per-lock seat cap
	ReaperInterval   time.Duration // how often expired locks are swept
	LockStoreTimeout time.Duration // per-call deadline for the fast lock store
	PaymentMethods   []string      // accepted payment methods
	Currency         string        // house currency charged by the gateway
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message; the tunables fall
// back to sane defaults.
func Load() Config {
	return Config{
		Env:              must("APP_ENV"),    // environment (dev/test/prod)
		Port:             must("APP_PORT"),   // port to bind the HTTP server
		DBUser:           must("DB_USER"),    // database user
		DBPass:           os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:           must("DB_HOST"),    // database host
		DBPort:           must("DB_PORT"),    // database port
		DBName:           must("DB_NAME"),    // database name
		JWTSecret:        must("JWT_SECRET"), // secret used for verifying JWTs
		LockTTL:          dur("LOCK_TTL", 5*time.Minute),
		MaxSeatsPerLock:  num("MAX_SEATS_PER_LOCK", 8),
		ReaperInterval:   dur("REAPER_INTERVAL", 30*time.Second),
		LockStoreTimeout: dur("LOCK_STORE_TIMEOUT", 2*time.Second),
		PaymentMethods:   list("PAYMENT_METHODS", "CARD,WALLET,BANK_TRANSFER"),
		Currency:         str("CURRENCY", "USD"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// str retrieves an optional string variable with a default.
func str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// num retrieves an optional integer variable; malformed values are fatal
// rather than silently defaulted.
func num(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}

// dur retrieves an optional duration variable in time.ParseDuration
// syntax ("5m", "30s").
func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}

// list retrieves an optional comma-separated variable, trimming blanks.
func list(key, def string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
