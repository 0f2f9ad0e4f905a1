package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string         // application environment (e.g. "dev", "prod")
	Port           string         // HTTP port to listen on
	DBUser         string         // database username
	DBPass         string         // database password (optional)
	DBHost         string         // database host address
	DBPort         string         // database port number
	DBName         string         // database name
	JWTSecret      string         // secret used to sign JWTs
	AccessTTLMin   int            // access token time-to-live in minutes
	RefreshTTLDays int            // refresh token time-to-live in days
	BcryptCost     int            // bcrypt cost for password hashing
	Location       *time.Location // zone used to interpret booking dates
	SlotFirstHour  int            // first bookable hour (inclusive)
	SlotLastHour   int            // last bookable hour (inclusive)
	LogLevel       string         // logrus level name
	LogFile        string         // optional rotating log file path
	AutoMigrate    bool           // create tables at startup
	CORSOrigins    []string       // origins allowed to call the API (WordPress site)
}

// Production reports whether internal error detail must be hidden.
func (c Config) Production() bool { return c.Env == "prod" || c.Env == "production" }

// LoadDotEnv loads a .env file when present. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("config: .env not loaded")
	}
}

// Load reads configuration values from environment variables. Required
// variables are enforced by must() and missing values terminate the process.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		Location:       loadLocation(envStr("APP_TIMEZONE", "UTC")),
		SlotFirstHour:  envInt("SLOT_FIRST_HOUR", 8),
		SlotLastHour:   envInt("SLOT_LAST_HOUR", 17),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFile:        os.Getenv("LOG_FILE"),
		AutoMigrate:    envBool("DB_AUTO_MIGRATE", true),
		CORSOrigins:    splitList(envStr("CORS_ALLOW_ORIGINS", "*")),
	}
	if cfg.SlotFirstHour < 0 || cfg.SlotLastHour > 23 || cfg.SlotFirstHour > cfg.SlotLastHour {
		log.Fatalf("invalid business hours: %d..%d", cfg.SlotFirstHour, cfg.SlotLastHour)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid APP_TIMEZONE %q: %v", name, err)
	}
	return loc
}
