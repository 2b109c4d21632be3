package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Host string `envconfig:"E2E_HOST" default:"127.0.0.1"`

	DefaultRoom  string        `envconfig:"E2E_DEFAULT_ROOM" default:"general"`
	HistoryLimit int           `envconfig:"E2E_HISTORY_LIMIT" default:"50"`
	BusBuffer    int           `envconfig:"E2E_BUS_BUFFER" default:"100"`
	QueueLimit   int           `envconfig:"E2E_QUEUE_LIMIT" default:"1024"`
	WriteTimeout time.Duration `envconfig:"E2E_WRITE_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"E2E_READ_TIMEOUT" default:"3s"`
	AdminUsers   string        `envconfig:"E2E_ADMIN_USERS" default:"admin"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
