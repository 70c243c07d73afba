package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGateCount        = 20
	DefaultSeatHoldSeconds  = 30
	DefaultFlightsCacheTTL  = 60
	DefaultRateLimitRPS     = 20
	DefaultRateLimitBurst   = 40
	DefaultReadMaxOpenConns = 10
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address     string          `yaml:"address"`
	SwaggerDir  string          `yaml:"swagger_dir"`
	CORSOrigins []string        `yaml:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"rps"`
	Burst             int     `yaml:"burst"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	// ReplicaDSN feeds the read model; empty means the primary.
	ReplicaDSN      string `yaml:"replica_dsn"`
	ReadMaxOpen     int    `yaml:"read_max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
	Migrate         bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d DatabaseConfig) ReadDSN() string {
	if d.ReplicaDSN != "" {
		return d.ReplicaDSN
	}
	return d.DSN()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	SeatHoldSeconds int `yaml:"seat_hold_seconds"`
	FlightsCacheTTL int `yaml:"flights_cache_ttl_seconds"`
	GateCount       int `yaml:"gate_count"`
	// TicketSeed starts the ticket sequence on an empty database.
	TicketSeed string `yaml:"ticket_seed"`
}

func (b BookingConfig) SeatHold() time.Duration {
	return time.Duration(b.SeatHoldSeconds) * time.Second
}

func (b BookingConfig) FlightsCache() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadEnv reads a .env file when one exists; a missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadConfig parses the YAML file at path after expanding ${VAR} references.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate fills defaults and rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Database.Host == "" && c.Database.ReplicaDSN == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.ReadMaxOpen == 0 {
		c.Database.ReadMaxOpen = DefaultReadMaxOpenConns
	}
	if c.Booking.GateCount == 0 {
		c.Booking.GateCount = DefaultGateCount
	}
	if c.Booking.GateCount < 0 {
		return errors.New("booking.gate_count must be positive")
	}
	if c.Booking.SeatHoldSeconds == 0 {
		c.Booking.SeatHoldSeconds = DefaultSeatHoldSeconds
	}
	if c.Booking.FlightsCacheTTL == 0 {
		c.Booking.FlightsCacheTTL = DefaultFlightsCacheTTL
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimit.RequestsPerSecond == 0 {
		c.HTTP.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = DefaultRateLimitBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	return nil
}
