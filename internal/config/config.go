// Package config loads the web server settings from the environment and an
// optional .env file.
package config

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	envPrefix = "NAJI_WEB_"

	defaultPort               = "8080"
	defaultEnv                = "local"
	defaultLogLevel           = "info"
	defaultLocalesDir         = "locales"
	defaultLang               = "ja"
	defaultReadTimeout        = 10 * time.Second
	defaultWriteTimeout       = 15 * time.Second
	defaultIdleTimeout        = 60 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultSessionIdleTimeout = 30 * time.Minute
	defaultSweepInterval      = time.Minute
	defaultMaxViews           = 10000
	defaultPhilosophyInterval = 10 * time.Second
	defaultMenuInterval       = 5 * time.Second
	defaultDragSensitivity    = 2.0
)

// Config holds the runtime settings for the site.
type Config struct {
	Server    ServerConfig
	Env       string
	LogLevel  string
	Dev       bool
	BaseURL   string
	Locales   LocalesConfig
	Session   SessionConfig
	Carousel  CarouselConfig
	Analytics AnalyticsConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LocalesConfig points at the locale files. An empty Dir means the embedded
// copies are used.
type LocalesConfig struct {
	Dir         string
	DefaultLang string
}

// SessionConfig configures visitor sessions. Keys are hex encoded in the
// environment; empty keys are generated at startup.
type SessionConfig struct {
	HashKey       []byte
	BlockKey      []byte
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxViews      int
	Secure        bool
}

// CarouselConfig holds the rotator intervals and drag amplification.
type CarouselConfig struct {
	PhilosophyInterval time.Duration
	MenuInterval       time.Duration
	DragSensitivity    float64
}

// AnalyticsConfig holds the client instrumentation IDs rendered into the
// page head. Empty IDs disable the snippet.
type AnalyticsConfig struct {
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// Option customises how configuration is loaded.
type Option func(*loadOptions)

type loadOptions struct {
	envFile   string
	envMap    map[string]string
	systemEnv bool
}

// WithEnvFile sets the .env path. Pass "" to skip the file.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithEnvMap supplies values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loadOptions) {
		if o.envMap == nil {
			o.envMap = make(map[string]string, len(values))
		}
		for k, v := range values {
			o.envMap[k] = v
		}
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loadOptions) { o.systemEnv = false }
}

// ValidationError lists the fields that were missing or malformed.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns the offending field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// Load resolves configuration. Precedence: WithEnvMap values, the process
// environment, then the .env file.
func Load(opts ...Option) (Config, error) {
	o := loadOptions{envFile: ".env", systemEnv: true}
	for _, opt := range opts {
		opt(&o)
	}

	dotenv, err := loadDotEnv(o.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		full := envPrefix + key
		if v, ok := o.envMap[full]; ok {
			return v, true
		}
		if o.systemEnv {
			if v, ok := os.LookupEnv(full); ok {
				return v, true
			}
		}
		v, ok := dotenv[full]
		return v, ok
	}

	var invalid []string
	p := parser{lookup: lookup, invalid: &invalid}

	env := strings.ToLower(p.string("ENV", defaultEnv))
	cfg := Config{
		Env:      env,
		LogLevel: strings.ToLower(p.string("LOG_LEVEL", defaultLogLevel)),
		Dev:      p.bool("DEV", env == "local"),
		BaseURL:  strings.TrimRight(p.string("BASE_URL", ""), "/"),
		Server: ServerConfig{
			Addr:            resolveAddr(lookup, o.systemEnv),
			ReadTimeout:     p.duration("READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    p.duration("WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     p.duration("IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Locales: LocalesConfig{
			Dir:         p.string("LOCALES_DIR", ""),
			DefaultLang: strings.ToLower(p.string("DEFAULT_LANG", defaultLang)),
		},
		Session: SessionConfig{
			HashKey:       p.hexKey("SESSION_HASH_KEY", 32, 64),
			BlockKey:      p.hexKey("SESSION_BLOCK_KEY", 16, 24, 32),
			IdleTimeout:   p.duration("SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
			SweepInterval: p.duration("SESSION_SWEEP_INTERVAL", defaultSweepInterval),
			MaxViews:      p.int("SESSION_MAX_VIEWS", defaultMaxViews),
			Secure:        p.bool("SESSION_SECURE", env != "local"),
		},
		Carousel: CarouselConfig{
			PhilosophyInterval: p.duration("PHILOSOPHY_INTERVAL", defaultPhilosophyInterval),
			MenuInterval:       p.duration("MENU_INTERVAL", defaultMenuInterval),
			DragSensitivity:    p.float("DRAG_SENSITIVITY", defaultDragSensitivity),
		},
		Analytics: AnalyticsConfig{
			GA4MeasurementID: p.string("GA_MEASUREMENT_ID", ""),
			GTMContainerID:   p.string("GTM_CONTAINER_ID", ""),
			Debug:            p.bool("ANALYTICS_DEBUG", false),
		},
	}

	if cfg.Dev && cfg.Locales.Dir == "" {
		cfg.Locales.Dir = defaultLocalesDir
	}

	if err := validate(cfg, invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveAddr(lookup func(string) (string, bool), systemEnv bool) string {
	if v, ok := lookup("ADDR"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	port := defaultPort
	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		port = strings.TrimSpace(v)
	} else if v, ok := os.LookupEnv("PORT"); systemEnv && ok && strings.TrimSpace(v) != "" {
		// Cloud Run style platforms inject an unprefixed PORT.
		port = strings.TrimSpace(v)
	}
	return ":" + port
}

func validate(cfg Config, invalid []string) error {
	fields := append([]string(nil), invalid...)

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		fields = append(fields, "LogLevel")
	}
	if cfg.BaseURL != "" && !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		fields = append(fields, "BaseURL")
	}
	if cfg.Locales.DefaultLang == "" {
		fields = append(fields, "Locales.DefaultLang")
	}
	if cfg.Session.IdleTimeout <= 0 {
		fields = append(fields, "Session.IdleTimeout")
	}
	if cfg.Session.SweepInterval <= 0 {
		fields = append(fields, "Session.SweepInterval")
	}
	if cfg.Session.MaxViews <= 0 {
		fields = append(fields, "Session.MaxViews")
	}
	if len(cfg.Session.BlockKey) > 0 && len(cfg.Session.HashKey) == 0 {
		fields = append(fields, "Session.HashKey")
	}
	if cfg.Carousel.PhilosophyInterval <= 0 {
		fields = append(fields, "Carousel.PhilosophyInterval")
	}
	if cfg.Carousel.MenuInterval <= 0 {
		fields = append(fields, "Carousel.MenuInterval")
	}
	if cfg.Carousel.DragSensitivity <= 0 {
		fields = append(fields, "Carousel.DragSensitivity")
	}

	if len(fields) > 0 {
		return &ValidationError{fields: dedupe(fields)}
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, f := range in {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// parser reads typed values and records keys that were set but malformed,
// so a typo never silently turns into the default.
type parser struct {
	lookup  func(string) (string, bool)
	invalid *[]string
}

func (p parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p parser) fail(key string) { *p.invalid = append(*p.invalid, envPrefix+key) }

func (p parser) string(key, fallback string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return fallback
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key)
		return fallback
	}
	return d
}

func (p parser) float(key string, fallback float64) float64 {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key)
		return fallback
	}
	return f
}

func (p parser) int(key string, fallback int) int {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key)
		return fallback
	}
	return n
}

func (p parser) bool(key string, fallback bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	p.fail(key)
	return fallback
}

func (p parser) hexKey(key string, sizes ...int) []byte {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		p.fail(key)
		return nil
	}
	for _, n := range sizes {
		if len(b) == n {
			return b
		}
	}
	p.fail(key)
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}
