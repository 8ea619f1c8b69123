package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"agri-insights/pkg/database"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	Estimator EstimatorConfig
	Kafka     KafkaConfig
	InfluxDB  InfluxDBConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Connection converts the settings to the database package's connection config
func (d DatabaseConfig) Connection() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// StorageConfig selects the prediction history backend
type StorageConfig struct {
	Driver string
}

// EstimatorConfig holds estimator configuration.
// RandomSeed 0 draws the random factor from the process-wide generator.
type EstimatorConfig struct {
	CoefficientsPath string
	RandomSeed       uint64
}

// KafkaConfig holds prediction event publishing configuration
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// InfluxDBConfig holds energy assessment time series configuration
type InfluxDBConfig struct {
	Enabled bool
	URL     string
	Org     string
	Token   string
	Bucket  string
}

// LoadConfig loads configuration from environment variables.
// A .env file in the working directory is applied first when present; real environment variables win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	seed, err := strconv.ParseUint(getEnv("ESTIMATOR_RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ESTIMATOR_RANDOM_SEED: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "agri_insights"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", time.Minute),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		},
		Estimator: EstimatorConfig{
			CoefficientsPath: getEnv("ESTIMATOR_COEFFICIENTS_PATH", ""),
			RandomSeed:       seed,
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "yield-predictions"),
			Timeout: getEnvDuration("KAFKA_TIMEOUT", 5*time.Second),
		},
		InfluxDB: InfluxDBConfig{
			Enabled: getEnvBool("INFLUXDB_ENABLED", false),
			URL:     getEnv("INFLUXDB_URL", "http://localhost:8086"),
			Org:     getEnv("INFLUXDB_ORG", "agri"),
			Token:   getEnv("INFLUXDB_TOKEN", ""),
			Bucket:  getEnv("INFLUXDB_BUCKET", "energy-assessments"),
		},
	}, nil
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka topic is required when kafka is enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "" || c.InfluxDB.Org == "" {
			return fmt.Errorf("influxdb url, org and bucket are required when influxdb is enabled")
		}
	}

	return nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
