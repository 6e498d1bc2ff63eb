package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting of the API server, read from the environment.
type Config struct {
	Host string `envconfig:"VOGDB_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"VOGDB_PORT" default:"8000"`

	LogLevel  string `envconfig:"VOGDB_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"VOGDB_LOG_FORMAT" default:"console"` // console or json

	DBDriver          string        `envconfig:"VOGDB_DB_DRIVER" default:"sqlite"` // sqlite or postgres
	DBDSN             string        `envconfig:"VOGDB_DB_DSN"`
	DBMaxOpenConns    int           `envconfig:"VOGDB_DB_MAX_OPEN_CONNS" default:"16"`
	DBMaxIdleConns    int           `envconfig:"VOGDB_DB_MAX_IDLE_CONNS" default:"4"`
	DBConnMaxLifetime time.Duration `envconfig:"VOGDB_DB_CONN_MAX_LIFETIME" default:"30m"`
	DBInitSchema      bool          `envconfig:"VOGDB_DB_INIT_SCHEMA" default:"false"`
	QueryTimeout      time.Duration `envconfig:"VOGDB_QUERY_TIMEOUT" default:"20s"`

	// Same variable names as the loader scripts use.
	DataDir string `envconfig:"VOG_DATA" default:"./data"`
	NCBIDir string `envconfig:"NCBI_DATA" default:"./data/ncbi"`

	ProfileBackend string `envconfig:"VOGDB_PROFILE_BACKEND" default:"file"` // file or s3
	S3Bucket       string `envconfig:"VOGDB_S3_BUCKET"`
	S3Prefix       string `envconfig:"VOGDB_S3_PREFIX"`
	S3Region       string `envconfig:"VOGDB_S3_REGION" default:"us-east-1"`
	S3Endpoint     string `envconfig:"VOGDB_S3_ENDPOINT"`
	S3PathStyle    bool   `envconfig:"VOGDB_S3_PATH_STYLE" default:"false"`
	S3AccessKey    string `envconfig:"VOGDB_S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"VOGDB_S3_SECRET_KEY"`

	TaxonomySource      string        `envconfig:"VOGDB_TAXONOMY_SOURCE" default:"sqlite"` // sqlite (ete3 taxa.sqlite) or nodes (nodes.dmp)
	TaxonomyPath        string        `envconfig:"VOGDB_TAXONOMY_PATH"`
	TaxonomyCacheSize   int           `envconfig:"VOGDB_TAXONOMY_CACHE_SIZE" default:"4096"`
	TaxonomyCacheTTL    time.Duration `envconfig:"VOGDB_TAXONOMY_CACHE_TTL" default:"24h"`
	TaxonomyRefreshCron string        `envconfig:"VOGDB_TAXONOMY_REFRESH_CRON" default:"0 3 * * 0"`
	TaxonomyWatch       bool          `envconfig:"VOGDB_TAXONOMY_WATCH" default:"false"`

	RateLimitRPS   float64 `envconfig:"VOGDB_RATE_LIMIT_RPS" default:"9"`
	RateLimitBurst int     `envconfig:"VOGDB_RATE_LIMIT_BURST" default:"9"`
	TrustProxy     bool    `envconfig:"VOGDB_TRUST_PROXY" default:"false"`
	RedisAddr      string  `envconfig:"VOGDB_REDIS_ADDR"`
	RedisPassword  string  `envconfig:"VOGDB_REDIS_PASSWORD"`
	RedisDB        int     `envconfig:"VOGDB_REDIS_DB" default:"0"`

	ShutdownTimeout time.Duration `envconfig:"VOGDB_SHUTDOWN_TIMEOUT" default:"15s"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("fail to read config: %w", err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) fillDefaults() {
	if c.DBDSN == "" && c.DBDriver == "sqlite" {
		c.DBDSN = c.DataDir + "/vogdb.sqlite"
	}
	if c.TaxonomyPath == "" {
		switch c.TaxonomySource {
		case "sqlite":
			c.TaxonomyPath = c.NCBIDir + "/taxa.sqlite"
		case "nodes":
			c.TaxonomyPath = c.NCBIDir + "/nodes.dmp"
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown VOGDB_DB_DRIVER %q", c.DBDriver))
	}
	if c.DBDSN == "" {
		errs = append(errs, errors.New("VOGDB_DB_DSN is required"))
	}
	switch c.ProfileBackend {
	case "file":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("VOGDB_S3_BUCKET is required for the s3 profile backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VOGDB_PROFILE_BACKEND %q", c.ProfileBackend))
	}
	switch c.TaxonomySource {
	case "sqlite", "nodes":
	default:
		errs = append(errs, fmt.Errorf("unknown VOGDB_TAXONOMY_SOURCE %q", c.TaxonomySource))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid VOGDB_PORT %d", c.Port))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	if c.QueryTimeout <= 0 {
		errs = append(errs, errors.New("VOGDB_QUERY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
