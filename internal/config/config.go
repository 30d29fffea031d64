package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	ContextStoreMemory = "memory"
	ContextStoreRedis  = "redis"
)

type Config struct {
	LogLevel     string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Device       Device `yaml:"device"`
	Peer         Peer   `yaml:"peer"`
	ContextStore string `yaml:"context-store" env:"CONTEXT_STORE" env-default:"memory"`
	Redis        Redis  `yaml:"redis"`
}

type Device struct {
	Role string `yaml:"role" env:"DEVICE_ROLE" env-default:"primary"`
	ID   string `yaml:"id" env:"DEVICE_ID" env-default:""`
}

type Peer struct {
	ListenAddr           string        `yaml:"listen-addr" env:"PEER_LISTEN_ADDR" env-default:":9191"`
	URL                  string        `yaml:"url" env:"PEER_URL" env-default:"ws://localhost:9191/peer"`
	SendBuffer           int           `yaml:"send-buffer" env:"PEER_SEND_BUFFER" env-default:"16"`
	MaxReconnectInterval time.Duration `yaml:"max-reconnect-interval" env:"PEER_MAX_RECONNECT_INTERVAL" env-default:"5s"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
