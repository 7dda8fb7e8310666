package config

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	AI       AIConfig       `yaml:"ai"`
	Sync     SyncConfig     `yaml:"sync"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json or text
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql or sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	SuperAdminEmails []string      `yaml:"super_admin_emails"`
}

type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	ScratchpadDebounce time.Duration `yaml:"scratchpad_debounce"`
	StaleTimerAfter    time.Duration `yaml:"stale_timer_after"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 9871, CORSOrigins: []string{"*"}},
		Log:      LogConfig{Level: "info", Format: "json", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Driver: "mysql", Port: 3306, Name: "taskflow"},
		Auth:     AuthConfig{TokenTTL: 7 * 24 * time.Hour},
		AI:       AIConfig{Model: "gpt-4o-mini", Timeout: 60 * time.Second},
		Sync:     SyncConfig{ScratchpadDebounce: time.Second, StaleTimerAfter: 12 * time.Hour},
	}
}

func Load(configFile string) *Config {
	c := Default()

	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	paths := []string{"etc/config-dev.yaml", "/etc/taskflow/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, c)
			break
		}
	}

	envOverride(&c.Database.Driver, "DB_DRIVER")
	envOverride(&c.Database.Host, "DB_HOST")
	envOverride(&c.Database.User, "DB_USER")
	envOverride(&c.Database.Password, "DB_PASS")
	envOverride(&c.Database.Name, "DB_NAME")
	envOverride(&c.Database.Path, "DB_PATH")
	envOverride(&c.Auth.JWTSecret, "JWT_SECRET")
	envOverride(&c.AI.BaseURL, "AI_BASE_URL")
	envOverride(&c.AI.APIKey, "AI_API_KEY")
	envOverride(&c.AI.Model, "AI_MODEL")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.Format, "LOG_FORMAT")
	envOverride(&c.Log.File, "LOG_FILE")
	envOverrideInt(&c.Server.Port, "PORT")
	envOverrideInt(&c.Database.Port, "DB_PORT")
	envOverrideList(&c.Auth.SuperAdminEmails, "SUPER_ADMIN_EMAILS")
	envOverrideDuration(&c.Sync.ScratchpadDebounce, "SCRATCHPAD_DEBOUNCE")

	return c
}

// MissingRequired names the required settings that are absent. A non-empty result puts the
// server into setup-required mode.
func (c *Config) MissingRequired() []string {
	var missing []string
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			missing = append(missing, "DB_PATH")
		}
	default:
		if c.Database.Host == "" {
			missing = append(missing, "DB_HOST")
		}
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	return missing
}

func (c *Config) AIEnabled() bool { return c.AI.BaseURL != "" && c.AI.APIKey != "" }

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) OpenGormDB() (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}

	if c.Database.Driver == "sqlite" {
		if dir := filepath.Dir(c.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := gorm.Open(sqlite.Open(c.Database.Path+"?_foreign_keys=on&_busy_timeout=5000"), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, nil
	}

	cfg := gomysql.NewConfig()
	cfg.User = c.Database.User
	cfg.Passwd = c.Database.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
	cfg.DBName = c.Database.Name
	cfg.ParseTime = true
	// RowsAffected counts matched rows, not only changed ones.
	cfg.ClientFoundRows = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("create connector: %w", err)
	}
	sqlDB := sql.OpenDB(connector)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), gcfg)
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

func envOverrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
