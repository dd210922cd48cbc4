package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/kafka"
	"github.com/kambaexpress/backoffice/internal/order"
)

const DefaultTimezone = "Africa/Luanda"

// placeholderSecret is the value .example.env ships for secrets.
const placeholderSecret = "change-me"

type Config struct {
	HTTP      HTTPConfig            `yaml:"http"`
	Log       LogConfig             `yaml:"log"`
	DB        db.Config             `yaml:"db"`
	Kafka     KafkaConfig           `yaml:"kafka"`
	Auth      AuthConfig            `yaml:"auth"`
	Estimator order.EstimatorConfig `yaml:"estimator"`
	Timezone  string                `yaml:"timezone"`
}

type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type KafkaConfig struct {
	Brokers   []string              `yaml:"brokers"`
	Topic     string                `yaml:"topic"`
	GroupID   string                `yaml:"group_id"`
	Publisher kafka.PublisherConfig `yaml:"publisher"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:            "9000",
			ShutdownTimeout: 5 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		DB: db.Config{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Name:     "backoffice",
			MaxConns: 10,
		},
		Kafka: KafkaConfig{
			Topic:   "order_changes",
			GroupID: "backoffice-realtime",
			Publisher: kafka.PublisherConfig{
				PollInterval: time.Second,
				BatchSize:    50,
				MaxAttempts:  5,
				LeaseTimeout: time.Minute,
			},
		},
		Estimator: order.DefaultEstimatorConfig(),
		Timezone:  DefaultTimezone,
	}
}

// LoadEnv loads the first .env found in the working directory or up to two
// parents. .example.env is a template and is never loaded. Returns the file
// used, if any.
func LoadEnv() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for _, dir := range []string{wd, filepath.Join(wd, ".."), filepath.Join(wd, "..", "..")} {
		path := filepath.Join(dir, ".env")
		if err := godotenv.Load(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the optional YAML file at path, then applies environment
// overrides. A missing file means defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.DB.Host, "DB_HOST")
	setString(&c.DB.User, "POSTGRES_USER")
	setString(&c.DB.Password, "POSTGRES_PASSWORD")
	setString(&c.DB.Name, "POSTGRES_DB")
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.DB.Port = port
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.GroupID, "KAFKA_GROUP_ID")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPassword, "ADMIN_PASSWORD")

	setString(&c.HTTP.Port, "HTTP_PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Timezone, "TIMEZONE")

	if v := os.Getenv("EXCHANGE_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid EXCHANGE_RATE %q: %w", v, err)
		}
		c.Estimator.ExchangeRate = rate
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks what the server needs to start.
func (c *Config) Validate() error {
	var errs []error
	switch c.Auth.JWTSecret {
	case "":
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	case placeholderSecret:
		errs = append(errs, errors.New("JWT_SECRET still has the example value"))
	}
	if c.Auth.AdminUsername == "" || c.Auth.AdminPassword == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set"))
	} else if c.Auth.AdminPassword == placeholderSecret {
		errs = append(errs, errors.New("ADMIN_PASSWORD still has the example value"))
	}
	if c.Kafka.Publisher.PollInterval <= 0 || c.Kafka.Publisher.BatchSize <= 0 || c.Kafka.Publisher.MaxAttempts <= 0 ||
		c.Kafka.Publisher.LeaseTimeout <= 0 {
		errs = append(errs, errors.New("kafka publisher settings must be positive"))
	}
	if c.Estimator.ExchangeRate <= 0 {
		errs = append(errs, errors.New("estimator exchange rate must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location is the business timezone used for day boundaries in reports.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
