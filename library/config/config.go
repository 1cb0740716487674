package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/ibd-library/library-service/pkg/kafka"
	"github.com/ibd-library/library-service/pkg/logger"
	"github.com/ibd-library/library-service/pkg/postgres"
	"github.com/ibd-library/library-service/pkg/sqlite"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8000"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE"`
}

type Database struct {
	Driver   string `envconfig:"DB_DRIVER" default:"postgres"`
	Postgres postgres.Config
	SQLite   sqlite.Config
}

type Assistant struct {
	APIKey   string        `envconfig:"GEMINI_API_KEY" json:"-"`
	Model    string        `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	Endpoint string        `envconfig:"GEMINI_ENDPOINT" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout  time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

type Notify struct {
	OverdueSchedule string `envconfig:"OVERDUE_SCHEDULE" default:"0 9 * * *"`
}

type Seed struct {
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:"admin@library.local"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" json:"-"`
	AdminName     string `envconfig:"ADMIN_NAME" default:"Librarian"`
}

type Config struct {
	Server    HTTPServer `yaml:"server"`
	Database  Database
	Auth      auth.Config
	Redis     auth.RedisConfig
	Kafka     kafka.Config
	Assistant Assistant
	Notify    Notify
	Seed      Seed
	Log       logger.Log `yaml:"log"`
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
