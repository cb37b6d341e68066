package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the full process configuration, parsed from the environment.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Geocode  GeocodeConfig
	Relay    RelayConfig

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// CompanyLocalityField is the companies document field paired with the
	// address when building the geocoding query.
	CompanyLocalityField string `env:"COMPANY_LOCALITY_FIELD" envDefault:"cep"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `env:"PROSPECTOR_ADDR" envDefault:":8080"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"prospector"`
	JWTAudience   string        `env:"JWT_AUDIENCE" envDefault:"prospector-api"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
}

type PostgresConfig struct {
	URL          string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	// GeocodeCacheTTL bounds how long a resolved address is reused.
	GeocodeCacheTTL time.Duration `env:"GEOCODE_CACHE_TTL" envDefault:"720h"`
}

type KafkaConfig struct {
	Brokers           []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic             string   `env:"KAFKA_CHANGES_TOPIC" envDefault:"document-changes"`
	ConsumerGroup     string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"prospector-enrichment"`
	Partitions        int32    `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"6"`
	ReplicationFactor int16    `env:"KAFKA_TOPIC_REPLICATION" envDefault:"1"`
}

type GeocodeConfig struct {
	APIKey  string        `env:"GEOCODE_API_KEY"`
	BaseURL string        `env:"GEOCODE_BASE_URL" envDefault:"https://maps.googleapis.com/maps/api/geocode/json"`
	Timeout time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"10s"`
}

type RelayConfig struct {
	PollInterval time.Duration `env:"RELAY_POLL_INTERVAL" envDefault:"500ms"`
	BatchSize    int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
}

// Load reads optional .env files and then parses the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to serve traffic.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if c.Geocode.APIKey == "" {
		errs = append(errs, errors.New("GEOCODE_API_KEY is required"))
	}
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.CompanyLocalityField == "" {
		errs = append(errs, errors.New("COMPANY_LOCALITY_FIELD must not be empty"))
	}
	return errors.Join(errs...)
}
