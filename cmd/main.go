package main

import (
	"chat-relay/moderation"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/server"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components and manages the server lifecycle. The
// pattern keeps defers running on the way out and decouples initialization
// from the process entry point.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation (embedded word lists, Aho-Corasick automaton)
	loader := moderation.NewLoader(moderation.Wordlists)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return fmt.Errorf("loading censored words: %w", err)
	}
	log.Info(fmt.Sprintf("%d censored words loaded [%s]",
		len(data.Words), strings.Join(data.Languages, ",")))

	replacement, err := CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(data.Words, replacement, log)
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}

	// 3. Routing state, explicitly constructed and handed down
	registry := runtime.NewRegistry()
	bus := runtime.NewBus(log, config.BusBufferSize)
	history := runtime.NewHistoryStore(config.HistoryLimit)

	srv := server.NewServer(log, registry, bus, history, &moderator, server.Options{
		Host:         config.Host,
		Port:         config.Port,
		DefaultRoom:  config.DefaultRoom,
		WriteTimeout: config.WriteTimeout,
		QueueLimit:   config.QueueLimit,
		AdminUsers:   config.Admins(),
	})
	reporter := workers.NewReporterWorker(log, registry, bus, config.ReportInterval)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	banner(srv.Addr())

	// 5. Supervised execution; blocks until shutdown
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(srv, reporter)
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

func banner(addr string) {
	color.Cyan.Println("╔══════════════════════════════════════════════╗")
	color.Cyan.Printf("║   Chat relay listening on %-19s║\n", addr)
	color.Cyan.Println("╚══════════════════════════════════════════════╝")
}
