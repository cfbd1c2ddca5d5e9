// Package config loads portfolio server configuration via Viper. A .env file
// in the working directory is loaded first, so its values feed the
// environment lookups below.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"

	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

// Config captures all server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Course   CourseConfig   `mapstructure:"course"`
	Scroll   ScrollConfig   `mapstructure:"scroll"`
	Content  ContentConfig  `mapstructure:"content"`
	DB       DBConfig       `mapstructure:"db"`
	Events   EventsConfig   `mapstructure:"events"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Tracking TrackingConfig `mapstructure:"tracking"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CourseConfig is the marathon the page is scrolled along.
type CourseConfig struct {
	TotalDistanceKm float64           `mapstructure:"total_distance_km"`
	Sections        []tracker.Section `mapstructure:"sections"`
}

// ScrollConfig tunes the live progress stream.
type ScrollConfig struct {
	Frame time.Duration `mapstructure:"frame"`
}

// ContentConfig points at an optional portfolio YAML file.
type ContentConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// DBConfig locates the SQLite analytics database.
type DBConfig struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// EventsConfig sizes the race event hub.
type EventsConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	LogEvents      bool          `mapstructure:"log_events"`
}

// SMTPConfig delivers contact form messages.
type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
	To   string `mapstructure:"to"`
}

// AdminConfig holds dashboard credentials.
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// TrackingConfig toggles visitor tracking.
type TrackingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// legacyEnv maps the site's original environment variables onto config keys.
var legacyEnv = map[string]string{
	"server.port":    "PORT",
	"smtp.host":      "SMTP_HOST",
	"smtp.port":      "SMTP_PORT",
	"smtp.user":      "SMTP_USER",
	"smtp.pass":      "SMTP_PASS",
	"smtp.to":        "TO_EMAIL",
	"admin.username": "ADMIN_USERNAME",
	"admin.password": "ADMIN_PASSWORD",
}

// Load builds a Config from defaults, an optional file at path, and the
// environment (PORTFOLIO_* or the legacy names).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "PORTFOLIO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Course.Sections) == 0 {
		cfg.Course.Sections = tracker.DefaultSections()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")
	v.SetDefault("logging.development", false)
	v.SetDefault("course.total_distance_km", tracker.MarathonKm)
	v.SetDefault("scroll.frame", 16*time.Millisecond)
	v.SetDefault("content.watch", true)
	v.SetDefault("db.path", "portfolio.db")
	v.SetDefault("db.retention", 365*24*time.Hour)
	v.SetDefault("events.buffer_size", 1024)
	v.SetDefault("events.max_batch_events", 256)
	v.SetDefault("events.max_batch_wait", time.Second)
	v.SetDefault("events.log_events", false)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", "587")
	v.SetDefault("tracking.enabled", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Scroll.Frame < 0 {
		return fmt.Errorf("scroll.frame must be >= 0")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if _, err := c.Track(); err != nil {
		return err
	}
	if c.Content.Path != "" {
		if _, err := os.Stat(c.Content.Path); err != nil {
			return fmt.Errorf("content.path: %w", err)
		}
	}
	return nil
}

// Track builds the tracker course from the course settings.
func (c Config) Track() (tracker.Course, error) {
	course, err := tracker.NewCourse(c.Course.TotalDistanceKm, c.Course.Sections)
	if err != nil {
		return tracker.Course{}, fmt.Errorf("course: %w", err)
	}
	return course, nil
}
