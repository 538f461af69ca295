// Package config loads the service configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Storage drivers selectable through storage.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

var (
	ErrInvalidEnv      = errors.New("invalid env")
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidValue    = errors.New("invalid value")
)

type Config struct {
	Env             string        `yaml:"env" validate:"oneof=dev stage prod"`
	LogLevel        string        `yaml:"log_level"`
	BaseURL         string        `yaml:"base_url" validate:"omitempty,url"`
	ShortCodeLength int           `yaml:"short_code_length" validate:"gt=0"`
	MaxRetries      int           `yaml:"max_retries" validate:"gt=0"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	HTTPServer      `yaml:"http_server"`
	CORS            `yaml:"cors"`
	Storage         `yaml:"storage"`
	Postgres        `yaml:"postgres"`
	SQLite          `yaml:"sqlite"`
	Redis           `yaml:"redis"`
	Mongo           `yaml:"mongo"`
}

// Level returns the parsed log_level. Load has already validated it.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}

type HTTPServer struct {
	Port           int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           3000,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   10 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Storage struct {
	Driver string `yaml:"driver" validate:"oneof=sqlite postgres redis mongo"`
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type SQLite struct {
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

var defaultSQLite = SQLite{
	Path:        "database.sqlite",
	BusyTimeout: 5 * time.Second,
}

type Redis struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PoolSize     int           `yaml:"pool_size"`
}

var defaultRedis = Redis{
	Addr:         "localhost:6379",
	DialTimeout:  5 * time.Second,
	ReadTimeout:  3 * time.Second,
	WriteTimeout: 3 * time.Second,
}

type Mongo struct {
	URI            string        `yaml:"uri"`
	Database       string        `yaml:"database"`
	Collection     string        `yaml:"collection"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

var defaultMongo = Mongo{
	URI:            "mongodb://localhost:27017",
	Database:       "url_shortener",
	Collection:     "urls",
	ConnectTimeout: 10 * time.Second,
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}
	defer f.Close()

	var cfg Config
	setDefaults(&cfg)

	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.LogLevel = "info"
	cfg.ShortCodeLength = 5
	cfg.MaxRetries = 5
	cfg.StoreTimeout = 3 * time.Second
	cfg.HTTPServer = defaultHTTPServer
	cfg.CORS = CORS{AllowedOrigins: []string{"http://localhost:5173"}}
	cfg.Storage = Storage{Driver: DriverSQLite}
	cfg.Postgres = defaultPostgres
	cfg.SQLite = defaultSQLite
	cfg.Redis = defaultRedis
	cfg.Mongo = defaultMongo
}

var configValidator = validator.New()

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) || len(errs) == 0 {
			return err
		}

		fe := errs[0]
		switch fe.StructNamespace() {
		case "Config.Env":
			return fmt.Errorf("%w: %q", ErrInvalidEnv, c.Env)
		case "Config.Storage.Driver":
			return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
		default:
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidValue, fe.Namespace(), fe.Tag())
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
