package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr       string
	StorageDriver  string
	DB             DBConfig
	RedisAddr      string
	KafkaBrokers   []string
	ServiceName    string
	OrderTimeout   time.Duration
	ReportCacheTTL time.Duration
	RestockGroup   string
	RestockWorkers int
	LogLevel       string
	LogFormat      string
}

// DBConfig carries the connection parts; DSN, when set, wins over the rest.
type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Name     string
	DSN      string
}

func Load() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":5000"),
		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", DriverPostgres)),
		DB: DBConfig{
			User:     getenv("DB_USER", "inventory_user"),
			Password: getenv("DB_PASSWORD", "inventory_pass"),
			Host:     getenv("DB_HOST", "127.0.0.1"),
			Port:     getint("DB_PORT", 5432),
			Name:     getenv("DB_NAME", "inventory_db"),
			DSN:      os.Getenv("POSTGRES_DSN"),
		},
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitCSV(os.Getenv("KAFKA_BROKERS")),
		ServiceName:    getenv("SERVICE_NAME", "inventory-api"),
		OrderTimeout:   getduration("ORDER_TIMEOUT", 10*time.Second),
		ReportCacheTTL: getduration("REPORT_CACHE_TTL", 5*time.Second),
		RestockGroup:   getenv("RESTOCK_GROUP", "inventory-restocker"),
		RestockWorkers: getint("RESTOCK_WORKERS", 4),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "json"),
	}
}

// PostgresDSN builds a URL-style DSN, escaping credentials.
func (c DBConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// RequireDriver fails when the configured storage driver is not one of
// allowed. Processes that must share state with the API accept only
// DriverPostgres; a memory store would be private to that process.
func (c Config) RequireDriver(allowed ...string) error {
	for _, d := range allowed {
		if c.StorageDriver == d {
			return nil
		}
	}
	return fmt.Errorf("STORAGE_DRIVER %q not supported here (want %s)", c.StorageDriver, strings.Join(allowed, " or "))
}
