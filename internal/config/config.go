package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "RELATED_POSTS_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	redisDBEnv        = "REDIS_DB"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging         LoggingConfig         `yaml:"logging"`
	Database        DatabaseConfig        `yaml:"database"`
	Cache           CacheConfig           `yaml:"cache"`
	Recommendations RecommendationsConfig `yaml:"recommendations"`
	Scheduler       SchedulerConfig       `yaml:"scheduler"`
}

// LoggingConfig selects slog level and output format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the catalog connection; Driver is postgres or sqlite.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CacheConfig points at the Redis server holding ranked lists.
// An empty RedisAddr disables caching.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	KeyPrefix     string        `yaml:"keyPrefix"`
	TTL           time.Duration `yaml:"ttl"`
}

// Enabled reports whether a cache server is configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// RecommendationsConfig tunes the related-posts lists.
type RecommendationsConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
}

// SchedulerConfig defines when the cache warmer should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if cfg.Recommendations.DefaultLimit <= 0 {
		cfg.Recommendations.DefaultLimit = defaultConfig().Recommendations.DefaultLimit
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.RedisAddr = v
	}

	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Cache.RedisPassword = v
	}

	if v := os.Getenv(redisDBEnv); v != "" {
		if db, err := strconv.Atoi(v); err != nil {
			log.Printf("config: invalid %s=%q, keeping %d", redisDBEnv, v, c.Cache.RedisDB)
		} else {
			c.Cache.RedisDB = db
		}
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Cache.RedisAddr != "" {
		base.Cache.RedisAddr = override.Cache.RedisAddr
		base.Cache.RedisPassword = override.Cache.RedisPassword
		base.Cache.RedisDB = override.Cache.RedisDB
	}
	if override.Cache.KeyPrefix != "" {
		base.Cache.KeyPrefix = override.Cache.KeyPrefix
	}
	if override.Cache.TTL > 0 {
		base.Cache.TTL = override.Cache.TTL
	}

	if override.Recommendations.DefaultLimit != 0 {
		base.Recommendations.DefaultLimit = override.Recommendations.DefaultLimit
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "data/blog.db"},
		Cache: CacheConfig{
			RedisAddr: "",
			KeyPrefix: "relatedposts:",
			TTL:       15 * time.Minute,
		},
		Recommendations: RecommendationsConfig{DefaultLimit: 3},
		Scheduler:       SchedulerConfig{CronExpression: "*/15 * * * *", Timezone: defaultTimezone, location: tz},
	}
}
