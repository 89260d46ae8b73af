package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses the sweep interval duration
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  The types reflect how the
// values are used in the application: strings for identifiers and
// secrets, ints and durations for TTLs and schedules.
type Config struct {
    Env              string        // application environment (e.g. "dev", "prod")
    Port             string        // HTTP port to listen on
    DBUser           string        // database username
    DBPass           string        // database password (optional)
    DBHost           string        // database host address
    DBPort           string        // database port number
    DBName           string        // database name
    JWTSecret        string        // secret used to sign portal session tokens
    PortalTokenTTLMin int          // portal token time-to-live in minutes
    AdminUser        string        // basic-auth username for admin endpoints
    AdminPassHash    string        // bcrypt hash of the admin password
    SweepInterval    time.Duration // how often the expiry sweeper runs
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:              must("APP_ENV"),                     // environment (dev/test/prod)
        Port:             must("APP_PORT"),                    // port to bind the HTTP server
        DBUser:           must("DB_USER"),                     // database user
        DBPass:           os.Getenv("DB_PASS"),                // database password (empty allowed)
        DBHost:           must("DB_HOST"),                     // database host
        DBPort:           must("DB_PORT"),                     // database port
        DBName:           must("DB_NAME"),                     // database name
        JWTSecret:        must("JWT_SECRET"),                  // secret used for signing portal tokens
        PortalTokenTTLMin: mustInt("PORTAL_TOKEN_TTL_MIN"),    // TTL for portal tokens in minutes
        AdminUser:        must("ADMIN_USER"),                  // admin basic-auth username
        AdminPassHash:    must("ADMIN_PASS_HASH"),             // bcrypt hash of the admin password
        SweepInterval:    mustDur("SWEEP_INTERVAL"),           // expiry sweeper cadence (e.g. "1m")
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// mustDur is like must() but parses the value as a Go duration string.
func mustDur(key string) time.Duration {
    s := must(key)
    d, err := time.ParseDuration(s)
    if err != nil || d <= 0 {
        log.Fatalf("invalid duration for %s: %q", key, s)
    }
    return d
}
