package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	DefaultRoom     string        `env:"DEFAULT_ROOM,default=general"`
	HistoryLimit    int           `env:"HISTORY_LIMIT,default=50"`
	BusBufferSize   int           `env:"BUS_BUFFER_SIZE,default=100"`
	QueueLimit      int           `env:"QUEUE_LIMIT,default=1024"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	AdminUsers      string        `env:"ADMIN_USERS,default=admin"`
	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
}

// Admins splits the configured allow-list into usernames.
func (c Config) Admins() []string {
	return lo.FilterMap(strings.Split(c.AdminUsers, ","), func(name string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(name)
		return trimmed, trimmed != ""
	})
}

// CharacterRune enforces that the moderation replacement is one character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
