package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Countdown CountdownConfig `yaml:"countdown"`
	Photos    PhotosConfig    `yaml:"photos"`
	AWS       AWSConfig       `yaml:"aws"`
	Push      PushConfig      `yaml:"push"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds the local SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// CountdownConfig holds countdown and time store settings
type CountdownConfig struct {
	DefaultTimezone string        `yaml:"default_timezone"`
	DefaultTime     string        `yaml:"default_time"`
	Timezones       []string      `yaml:"timezones"`
	TickInterval    time.Duration `yaml:"tick_interval"`
}

// PhotoEntry is one catalog entry of the photo-order puzzle
type PhotoEntry struct {
	ID      string `yaml:"id"`
	URL     string `yaml:"url"`
	Key     string `yaml:"key"` // object key in the photo bucket, overrides URL when AWS is configured
	Caption string `yaml:"caption"`
	Date    string `yaml:"date"`
}

// PhotosConfig holds the photo puzzle settings
type PhotosConfig struct {
	RoundSize int           `yaml:"round_size"`
	RoundTTL  time.Duration `yaml:"round_ttl"`
	Catalog   []PhotoEntry  `yaml:"catalog"`
}

// AWSConfig holds the optional photo bucket configuration
type AWSConfig struct {
	Region    string        `yaml:"region"`
	S3Bucket  string        `yaml:"s3_bucket"`
	AccessKey string        `yaml:"access_key"`
	SecretKey string        `yaml:"secret_key"`
	Endpoint  string        `yaml:"endpoint"`
	URLExpiry time.Duration `yaml:"url_expiry"`
}

// Enabled reports whether photo URLs should be presigned from the bucket
func (c *AWSConfig) Enabled() bool {
	return c.S3Bucket != ""
}

// PushConfig holds the optional APNs configuration for the arrival notification
type PushConfig struct {
	AuthKeyPath  string   `yaml:"auth_key_path"`
	KeyID        string   `yaml:"key_id"`
	TeamID       string   `yaml:"team_id"`
	Topic        string   `yaml:"topic"`
	DeviceTokens []string `yaml:"device_tokens"`
	Production   bool     `yaml:"production"`
}

// Enabled reports whether APNs pushes are configured
func (c *PushConfig) Enabled() bool {
	return c.AuthKeyPath != "" && len(c.DeviceTokens) > 0
}

// DefaultTimezones is the closed list of selectable fixed UTC offsets
var DefaultTimezones = []string{
	"-12:00", "-11:00", "-10:00", "-09:30", "-09:00", "-08:00", "-07:00",
	"-06:00", "-05:00", "-04:00", "-03:30", "-03:00", "-02:00", "-01:00",
	"+00:00", "+01:00", "+02:00", "+03:00", "+03:30", "+04:00", "+04:30",
	"+05:00", "+05:30", "+05:45", "+06:00", "+06:30", "+07:00", "+08:00",
	"+08:45", "+09:00", "+09:30", "+10:00", "+10:30", "+11:00", "+12:00",
	"+12:45", "+13:00", "+14:00",
}

// DefaultCatalog is the built-in set of puzzle photos
var DefaultCatalog = []PhotoEntry{
	{ID: "photo1", URL: "https://via.placeholder.com/300x200/ffb3c6/ffffff?text=Trip+1", Caption: "Trip 1", Date: "2023-01-01"},
	{ID: "photo2", URL: "https://via.placeholder.com/300x200/fcc2ff/ffffff?text=Trip+2", Caption: "Trip 2", Date: "2023-05-10"},
	{ID: "photo3", URL: "https://via.placeholder.com/300x200/bde0fe/ffffff?text=Trip+3", Caption: "Trip 3", Date: "2023-08-20"},
	{ID: "photo4", URL: "https://via.placeholder.com/300x200/a3c4f3/ffffff?text=Trip+4", Caption: "Trip 4", Date: "2023-11-02"},
	{ID: "photo5", URL: "https://via.placeholder.com/300x200/caf0f8/ffffff?text=Date+Night", Caption: "Date night", Date: "2024-02-14"},
	{ID: "photo6", URL: "https://via.placeholder.com/300x200/ffd6a5/ffffff?text=Summer", Caption: "Summer", Date: "2024-07-01"},
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
// A missing file is not an error: the defaults are used instead.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "reunion.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if len(c.Countdown.Timezones) == 0 {
		c.Countdown.Timezones = append([]string(nil), DefaultTimezones...)
	}
	if c.Countdown.DefaultTimezone == "" {
		c.Countdown.DefaultTimezone = "+09:00"
	}
	if c.Countdown.DefaultTime == "" {
		c.Countdown.DefaultTime = "12:00"
	}
	if c.Countdown.TickInterval <= 0 {
		c.Countdown.TickInterval = time.Second
	}
	if c.Photos.RoundSize == 0 {
		c.Photos.RoundSize = 4
	}
	if c.Photos.RoundTTL <= 0 {
		c.Photos.RoundTTL = 24 * time.Hour
	}
	if len(c.Photos.Catalog) == 0 {
		c.Photos.Catalog = append([]PhotoEntry(nil), DefaultCatalog...)
	}
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}
	if c.AWS.URLExpiry <= 0 {
		c.AWS.URLExpiry = 15 * time.Minute
	}
}

var (
	ErrInvalidOffset = errors.New("timezone offset must be in ±HH:MM format")
	ErrInvalidClock  = errors.New("time must be in HH:MM 24-hour format")
)

// ParseOffset converts a strict "±HH:MM" offset into signed total minutes
func ParseOffset(offset string) (int, error) {
	if len(offset) != 6 || (offset[0] != '+' && offset[0] != '-') {
		return 0, fmt.Errorf("%q: %w", offset, ErrInvalidOffset)
	}
	hours, minutes, ok := twoDigitPair(offset[1:])
	if !ok || hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("%q: %w", offset, ErrInvalidOffset)
	}

	total := hours*60 + minutes
	if offset[0] == '-' {
		total = -total
	}
	return total, nil
}

// ParseClock reads a strict "HH:MM" 24-hour wall-clock time
func ParseClock(clock string) (hour, minute int, err error) {
	hour, minute, ok := twoDigitPair(clock)
	if !ok || hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%q: %w", clock, ErrInvalidClock)
	}
	return hour, minute, nil
}

// twoDigitPair splits "DD:DD"
func twoDigitPair(s string) (int, int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, 0, false
		}
	}
	a, _ := strconv.Atoi(s[:2])
	b, _ := strconv.Atoi(s[3:])
	return a, b, true
}

// Validate checks cross-field constraints the defaults cannot fix
func (c *Config) Validate() error {
	for _, tz := range c.Countdown.Timezones {
		if _, err := ParseOffset(tz); err != nil {
			return fmt.Errorf("countdown timezone list: %w", err)
		}
	}
	if _, _, err := ParseClock(c.Countdown.DefaultTime); err != nil {
		return fmt.Errorf("countdown default time: %w", err)
	}

	found := false
	for _, tz := range c.Countdown.Timezones {
		if tz == c.Countdown.DefaultTimezone {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("default timezone %q is not in the timezone list", c.Countdown.DefaultTimezone)
	}

	if c.Photos.RoundSize < 1 || c.Photos.RoundSize > len(c.Photos.Catalog) {
		return fmt.Errorf("photo round size %d must be between 1 and %d", c.Photos.RoundSize, len(c.Photos.Catalog))
	}

	ids := make(map[string]struct{}, len(c.Photos.Catalog))
	dates := make(map[string]struct{}, len(c.Photos.Catalog))
	for _, p := range c.Photos.Catalog {
		if p.ID == "" {
			return fmt.Errorf("photo catalog entry without id")
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate photo id %q", p.ID)
		}
		ids[p.ID] = struct{}{}
		if _, err := time.Parse("2006-01-02", p.Date); err != nil {
			return fmt.Errorf("photo %q has invalid date %q: %w", p.ID, p.Date, err)
		}
		// the correct order must be unambiguous
		if _, dup := dates[p.Date]; dup {
			return fmt.Errorf("photo %q shares date %q with another photo", p.ID, p.Date)
		}
		dates[p.Date] = struct{}{}
	}

	return nil
}

// Addr returns the listen address of the HTTP server
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
