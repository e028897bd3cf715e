package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"planlux/hale-sync/log"

	"github.com/alexflint/go-arg"
)

const (
	SQLite   DbDriver = "sqlite"
	MySQL    DbDriver = "mysql"
	Postgres DbDriver = "postgres"
)

type DbDriver string

var supportedDbTypes = map[DbDriver]bool{
	SQLite:   true,
	Postgres: true,
	MySQL:    true,
}

type Config struct {
	DBDriver               DbDriver `arg:"--db-driver,env:DB_DRIVER"`
	DBPath                 string   `arg:"--db-path,env:DB_PATH"`
	DBHost                 string   `arg:"--db-host,env:DB_HOST"`
	DBPort                 uint32   `arg:"--db-port,env:DB_PORT"`
	DBUser                 string   `arg:"--db-user,env:DB_USER"`
	DBPass                 string   `arg:"--db-pass,env:DB_PASS"`
	DBSchema               string   `arg:"--db-schema,env:DB_SCHEMA"`
	SkipMigrations         bool     `arg:"--skip-migrations,env:SKIP_MIGRATIONS"`
	DataDir                string   `arg:"--data-dir,env:DATA_DIR"`
	PdfOutputDir           string   `arg:"--pdf-output-dir,env:PDF_OUTPUT_DIR"`
	APIBaseURL             string   `arg:"--api-base-url,env:API_BASE_URL,required"`
	APIToken               string   `arg:"--api-token,env:API_TOKEN"`
	APITimeoutMs           int      `arg:"--api-timeout-ms,env:API_TIMEOUT_MS"`
	APIRequestsPerSecond   float64  `arg:"--api-requests-per-second,env:API_REQUESTS_PER_SECOND"`
	ProbeURL               string   `arg:"--probe-url,env:PROBE_URL"`
	ProbeTimeoutMs         int      `arg:"--probe-timeout-ms,env:PROBE_TIMEOUT_MS"`
	FlushIntervalMs        int      `arg:"--flush-interval-ms,env:FLUSH_INTERVAL_MS"`
	HousekeepingIntervalMs int      `arg:"--housekeeping-interval-ms,env:HOUSEKEEPING_INTERVAL_MS"`
	OutboxMaxRetries       int      `arg:"--outbox-max-retries,env:OUTBOX_MAX_RETRIES"`
	AppVersion             string   `arg:"--app-version,env:APP_VERSION"`
	UserID                 string   `arg:"--user-id,env:USER_ID"`
	AdminAddr              string   `arg:"--admin-addr,env:ADMIN_ADDR"`
	RunCleanup             bool     `arg:"--cleanup,env:RUN_CLEANUP"`
	RunOptimize            bool     `arg:"--optimize,env:RUN_OPTIMIZE"`
	CleanupRetentionHours  int      `arg:"--cleanup-retention-hours,env:CLEANUP_RETENTION_HOURS"`
}

func NewConfig() (*Config, error) {
	c := &Config{
		DBDriver:               SQLite,
		DBPath:                 "planlux-hale.db",
		DataDir:                ".",
		PdfOutputDir:           "pdf",
		APITimeoutMs:           15000,
		APIRequestsPerSecond:   2,
		ProbeURL:               "https://clients3.google.com/generate_204",
		ProbeTimeoutMs:         5000,
		FlushIntervalMs:        15000,
		HousekeepingIntervalMs: 90000,
		OutboxMaxRetries:       5,
		AppVersion:             "dev",
		AdminAddr:              "127.0.0.1:9464",
		CleanupRetentionHours:  720,
	}
	arg.MustParse(c)

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) validate() error {
	if !supportedDbTypes[c.DBDriver] {
		return fmt.Errorf("the DB_DRIVER provided (%s) is not supported", c.DBDriver)
	}

	if !c.DBDriver.SQLite() && (c.DBHost == "" || c.DBSchema == "") {
		return fmt.Errorf("DB_HOST and DB_SCHEMA are required for the %s driver", c.DBDriver)
	}

	if c.OutboxMaxRetries < 1 {
		return fmt.Errorf("OUTBOX_MAX_RETRIES must be at least 1, got %d", c.OutboxMaxRetries)
	}

	positive := []struct {
		key   string
		value int
	}{
		{"FLUSH_INTERVAL_MS", c.FlushIntervalMs},
		{"HOUSEKEEPING_INTERVAL_MS", c.HousekeepingIntervalMs},
		{"API_TIMEOUT_MS", c.APITimeoutMs},
		{"PROBE_TIMEOUT_MS", c.ProbeTimeoutMs},
		{"CLEANUP_RETENTION_HOURS", c.CleanupRetentionHours},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", p.key, p.value)
		}
	}

	return nil
}

func (c *Config) GetFlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

func (c *Config) GetHousekeepingInterval() time.Duration {
	return time.Duration(c.HousekeepingIntervalMs) * time.Millisecond
}

func (c *Config) GetAPITimeout() time.Duration {
	return time.Duration(c.APITimeoutMs) * time.Millisecond
}

func (c *Config) GetProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

func (c *Config) GetCleanupRetention() time.Duration {
	return time.Duration(c.CleanupRetentionHours) * time.Hour
}

func (c *Config) GetDeviceIDPath() string {
	return filepath.Join(c.DataDir, "device-id")
}

// GetDSN returns the data source name in the format the registered
// database/sql driver for DBDriver expects.
func (c *Config) GetDSN() string {
	switch c.DBDriver {
	case SQLite:
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", c.DBPath)
	case MySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBSchema)
	case Postgres:
		return fmt.Sprintf("%s://%s@%s:%d/%s?sslmode=disable", c.DBDriver, url.UserPassword(c.DBUser, c.DBPass), c.DBHost, c.DBPort, c.DBSchema)
	default:
		log.Logger.Fatalf("the DB driver configured (%s) is not supported", c.DBDriver)
		return ""
	}
}

// GetDatabaseName is the name golang-migrate records the schema version under.
func (c *Config) GetDatabaseName() string {
	if c.DBDriver.SQLite() {
		return filepath.Base(c.DBPath)
	}
	return c.DBSchema
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"DBDriver":               c.DBDriver,
		"DBPath":                 c.DBPath,
		"DBHost":                 c.DBHost,
		"DBPort":                 c.DBPort,
		"DBUser":                 c.DBUser,
		"DBPass":                 "xxxxx",
		"DBSchema":               c.DBSchema,
		"SkipMigrations":         c.SkipMigrations,
		"DataDir":                c.DataDir,
		"PdfOutputDir":           c.PdfOutputDir,
		"APIBaseURL":             c.APIBaseURL,
		"APIToken":               "xxxxx",
		"APITimeoutMs":           c.APITimeoutMs,
		"APIRequestsPerSecond":   c.APIRequestsPerSecond,
		"ProbeURL":               c.ProbeURL,
		"ProbeTimeoutMs":         c.ProbeTimeoutMs,
		"FlushIntervalMs":        c.FlushIntervalMs,
		"HousekeepingIntervalMs": c.HousekeepingIntervalMs,
		"OutboxMaxRetries":       c.OutboxMaxRetries,
		"AppVersion":             c.AppVersion,
		"UserID":                 c.UserID,
		"AdminAddr":              c.AdminAddr,
		"RunCleanup":             c.RunCleanup,
		"RunOptimize":            c.RunOptimize,
		"CleanupRetentionHours":  c.CleanupRetentionHours,
	})
}

func (d DbDriver) SQLite() bool {
	return d == SQLite
}

func (d DbDriver) MySQL() bool {
	return d == MySQL
}

func (d DbDriver) Postgres() bool {
	return d == Postgres
}

// SqlDriverName is the name the driver registers itself under with database/sql.
func (d DbDriver) SqlDriverName() string {
	if d.Postgres() {
		return "pgx"
	}
	return string(d)
}

func (d DbDriver) String() string {
	return string(d)
}
