package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis    Redis  `yaml:"redis"`
	Sync     Sync   `yaml:"sync"`
}

type Redis struct {
	Host      string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port      string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key-prefix" env:"REDIS_KEY_PREFIX" env-default:"ttt:"`
	// RoomTTL - retention of room and session records, zero keeps them until the host leaves.
	RoomTTL time.Duration `yaml:"room-ttl" env:"REDIS_ROOM_TTL" env-default:"0s"`
}

type Sync struct {
	JoinTimeout         time.Duration `yaml:"join-timeout" env:"SYNC_JOIN_TIMEOUT" env-default:"10s"`
	WriteAttempts       uint64        `yaml:"write-attempts" env:"SYNC_WRITE_ATTEMPTS" env-default:"3"`
	RetryInterval       time.Duration `yaml:"retry-interval" env:"SYNC_RETRY_INTERVAL" env-default:"200ms"`
	CodeAttempts        int           `yaml:"code-attempts" env:"SYNC_CODE_ATTEMPTS" env-default:"10"`
	ResubscribeAttempts uint64        `yaml:"resubscribe-attempts" env:"SYNC_RESUBSCRIBE_ATTEMPTS" env-default:"5"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// LoadEnv - load configuration from environment variables only.
func LoadEnv() (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("unable to read environment: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
