package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxCodeTTL acota la vida de un código de consola.
const MaxCodeTTL = 5 * time.Minute

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		Driver         string `yaml:"driver"` // postgres | memory
		DSN            string `yaml:"dsn"`
		MaxOpenConns   int    `yaml:"max_open_conns"`
		MaxIdleConns   int    `yaml:"max_idle_conns"`
		MigrateOnStart bool   `yaml:"migrate_on_start"`
	} `yaml:"storage"`

	// Codes: dónde viven los códigos de consola y cuánto duran.
	Codes struct {
		Backend       string        `yaml:"backend"` // store | redis
		TTL           time.Duration `yaml:"ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		Bytes         int           `yaml:"bytes"`
	} `yaml:"codes"`

	Cache struct {
		Kind           string        `yaml:"kind"` // memory | redis
		PermissionsTTL time.Duration `yaml:"permissions_ttl"`
	} `yaml:"cache"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	JWT struct {
		Issuer      string        `yaml:"issuer"`
		KID         string        `yaml:"kid"`
		SigningSeed string        `yaml:"signing_seed"`
		AccessTTL   time.Duration `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Rate struct {
		Enabled  bool       `yaml:"enabled"`
		Mint     RateWindow `yaml:"mint"`
		Exchange RateWindow `yaml:"exchange"`
	} `yaml:"rate"`

	Cookies struct {
		Enabled  bool   `yaml:"enabled"`
		Domain   string `yaml:"domain"`
		Secure   bool   `yaml:"secure"`
		SameSite string `yaml:"same_site"` // lax | strict | none
	} `yaml:"cookies"`

	Bootstrap struct {
		PlatformAdmins []string `yaml:"platform_admins"`
	} `yaml:"bootstrap"`
}

// RateWindow límite fijo por ventana.
type RateWindow struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// Load lee el YAML (si path no está vacío), aplica defaults y overrides de env.
// No valida: llamar Validate() después.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

// Default retorna la config sin archivo ni env (tests, herramientas).
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) IsProd() bool { return c.App.Env == "prod" }

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Codes.Backend == "" {
		c.Codes.Backend = "store"
	}
	if c.Codes.TTL == 0 {
		c.Codes.TTL = 30 * time.Second
	}
	if c.Codes.SweepInterval == 0 {
		c.Codes.SweepInterval = time.Minute
	}
	if c.Codes.Bytes == 0 {
		c.Codes.Bytes = 32
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.PermissionsTTL == 0 {
		c.Cache.PermissionsTTL = 30 * time.Second
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "cg"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "http://localhost:8080"
	}
	if c.JWT.KID == "" {
		c.JWT.KID = "console-1"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.Rate.Mint.Limit == 0 {
		c.Rate.Mint.Limit = 20
	}
	if c.Rate.Mint.Window == 0 {
		c.Rate.Mint.Window = time.Minute
	}
	if c.Rate.Exchange.Limit == 0 {
		c.Rate.Exchange.Limit = 30
	}
	if c.Rate.Exchange.Window == 0 {
		c.Rate.Exchange.Window = time.Minute
	}
	if c.Cookies.SameSite == "" {
		c.Cookies.SameSite = "lax"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// applyEnvOverrides pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE_ON_START"); ok {
		c.Storage.MigrateOnStart = v
	}

	// CODES
	if v, ok := getEnvStr("CODES_BACKEND"); ok {
		c.Codes.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvDur("CODES_TTL"); ok {
		c.Codes.TTL = v
	}
	if v, ok := getEnvDur("CODES_SWEEP_INTERVAL"); ok {
		c.Codes.SweepInterval = v
	}

	// CACHE / REDIS
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvDur("CACHE_PERMISSIONS_TTL"); ok {
		c.Cache.PermissionsTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_KID"); ok {
		c.JWT.KID = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_SEED"); ok {
		c.JWT.SigningSeed = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvBool("COOKIES_ENABLED"); ok {
		c.Cookies.Enabled = v
	}
	if v, ok := getEnvBool("COOKIES_SECURE"); ok {
		c.Cookies.Secure = v
	}
	if v, ok := getEnvCSV("BOOTSTRAP_PLATFORM_ADMINS"); ok {
		c.Bootstrap.PlatformAdmins = v
	}
}

// NeedsRedis reporta si algún componente está configurado sobre redis.
func (c *Config) NeedsRedis() bool {
	return c.Codes.Backend == "redis" || c.Cache.Kind == "redis" || c.Rate.Enabled && c.Redis.Addr != ""
}

// Validate valida valores críticos. Retorna todos los problemas juntos.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	if c.Codes.Backend != "store" && c.Codes.Backend != "redis" {
		errs = append(errs, fmt.Errorf("codes.backend %q not supported", c.Codes.Backend))
	}
	if c.Codes.TTL <= 0 || c.Codes.TTL > MaxCodeTTL {
		errs = append(errs, fmt.Errorf("codes.ttl must be in (0, %s]", MaxCodeTTL))
	}
	if c.Codes.Bytes < 16 {
		errs = append(errs, errors.New("codes.bytes must be >= 16"))
	}
	if c.Cache.Kind != "memory" && c.Cache.Kind != "redis" {
		errs = append(errs, fmt.Errorf("cache.kind %q not supported", c.Cache.Kind))
	}
	if (c.Codes.Backend == "redis" || c.Cache.Kind == "redis") && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when a redis backend is selected"))
	}
	if c.JWT.AccessTTL <= 0 {
		errs = append(errs, errors.New("jwt.access_ttl must be positive"))
	}
	if c.IsProd() && len(c.JWT.SigningSeed) < 32 {
		errs = append(errs, errors.New("jwt.signing_seed must be at least 32 bytes in prod"))
	}
	switch strings.ToLower(c.Cookies.SameSite) {
	case "lax", "strict", "none":
	default:
		errs = append(errs, fmt.Errorf("cookies.same_site %q not supported", c.Cookies.SameSite))
	}

	return errors.Join(errs...)
}
