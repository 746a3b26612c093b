package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// DefaultProfile is used when DOOR_PROFILE is unset.
const DefaultProfile = "standard"

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Profile  string
	Access   AccessConfig
	Gallery  GalleryConfig
	Actuator ActuatorConfig
	Database DatabaseConfig
	MariaDB  MariaDBConfig
	Audit    AuditConfig
	Web      WebConfig
	LogLevel string
}

// AccessConfig holds the matching and timing policy of the door controller.
type AccessConfig struct {
	MatchThreshold        float64       `yaml:"match_threshold"`
	StabilityFramesNeeded int           `yaml:"stability_frames_needed"`
	ConfirmationTimeout   time.Duration `yaml:"confirmation_timeout"`
	CooldownDuration      time.Duration `yaml:"cooldown_duration"`
	CountdownSeconds      int           `yaml:"countdown_seconds"`
}

type GalleryConfig struct {
	Dim            int    // embedding dimension, validated against every sample
	Index          string // linear or hnsw
	Centroid       bool   // collapse identities to their centroid at load time
	Candidates     int    // HNSW candidates re-ranked per query
	EnrollmentPath string // JSON enrollment file
}

type ActuatorConfig struct {
	Kind string // log, serial or http
	Addr string // serial bridge host:port or controller base URL
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type MariaDBConfig struct {
	DSN string // e.g. door:door@tcp(mariadb:3306)/door?parseTime=true
}

type AuditConfig struct {
	SQLitePath string // local audit database, empty disables it
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins; localhost is always allowed
}

// Addr returns the listen address.
func (w WebConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}

type profilesFile struct {
	Profiles map[string]AccessConfig `yaml:"profiles"`
}

func loadProfiles() map[string]AccessConfig {
	var f profilesFile
	if err := yaml.Unmarshal(profilesYAML, &f); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded profiles.yaml: " + err.Error())
	}
	return f.Profiles
}

// Profiles returns the names of the embedded presets.
func Profiles() []string {
	profiles := loadProfiles()
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
		return f
	}
	return defaultVal
}

// envDuration reads a positive Go duration ("10s", "1m30s"), falling back to defaultVal.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envBool reads a boolean ("1", "true", "yes"), falling back to defaultVal.
func envBool(key string, defaultVal bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds the configuration from the selected profile and the environment.
// Only an unknown profile is an error here; call Validate for range checks.
func Load() (*Config, error) {
	profile := envString("DOOR_PROFILE", DefaultProfile)
	base, ok := loadProfiles()[profile]
	if !ok {
		return nil, fmt.Errorf("%w: unknown profile %q (available: %s)",
			ErrInvalidConfig, profile, strings.Join(Profiles(), ", "))
	}

	return &Config{
		Profile: profile,
		Access: AccessConfig{
			MatchThreshold:        envFloat("MATCH_THRESHOLD", base.MatchThreshold),
			StabilityFramesNeeded: envInt("STABILITY_FRAMES_NEEDED", base.StabilityFramesNeeded),
			ConfirmationTimeout:   envDuration("CONFIRMATION_TIMEOUT", base.ConfirmationTimeout),
			CooldownDuration:      envDuration("COOLDOWN_DURATION", base.CooldownDuration),
			CountdownSeconds:      envInt("COUNTDOWN_SECONDS", base.CountdownSeconds),
		},
		Gallery: GalleryConfig{
			Dim:            envInt("EMBEDDING_DIM", 128),
			Index:          envString("GALLERY_INDEX", "linear"),
			Centroid:       envBool("GALLERY_CENTROID", false),
			Candidates:     envInt("GALLERY_CANDIDATES", 32),
			EnrollmentPath: envString("ENROLLMENT_PATH", "embeddings.json"),
		},
		Actuator: ActuatorConfig{
			Kind: envString("ACTUATOR_KIND", "log"),
			Addr: os.Getenv("ACTUATOR_ADDR"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Audit: AuditConfig{
			SQLitePath: envString("AUDIT_SQLITE_PATH", "audit.db"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}, nil
}

// Validate checks value ranges. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	a := c.Access
	check(a.MatchThreshold > 0 && !math.IsNaN(a.MatchThreshold), "match_threshold must be positive, got %v", a.MatchThreshold)
	check(a.StabilityFramesNeeded >= 1, "stability_frames_needed must be at least 1, got %d", a.StabilityFramesNeeded)
	check(a.ConfirmationTimeout > 0, "confirmation_timeout must be positive, got %s", a.ConfirmationTimeout)
	check(a.CooldownDuration >= 0, "cooldown_duration must not be negative, got %s", a.CooldownDuration)
	check(a.CountdownSeconds >= 0, "countdown_seconds must not be negative, got %d", a.CountdownSeconds)
	check(time.Duration(a.CountdownSeconds)*time.Second <= a.ConfirmationTimeout,
		"countdown_seconds (%d) must not exceed confirmation_timeout (%s)", a.CountdownSeconds, a.ConfirmationTimeout)

	check(c.Gallery.Dim >= 1, "embedding_dimension must be at least 1, got %d", c.Gallery.Dim)
	check(c.Gallery.Index == "linear" || c.Gallery.Index == "hnsw", "gallery index must be linear or hnsw, got %q", c.Gallery.Index)

	switch strings.ToLower(c.Actuator.Kind) {
	case "log":
	case "serial", "http":
		check(c.Actuator.Addr != "", "actuator %s requires ACTUATOR_ADDR", c.Actuator.Kind)
	default:
		errs = append(errs, fmt.Errorf("unknown actuator kind %q", c.Actuator.Kind))
	}

	check(c.Web.Port > 0 && c.Web.Port < 65536, "web port out of range: %d", c.Web.Port)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
