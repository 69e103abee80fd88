package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Zhima-Mochi/minishop-assistant/internal/app"
	"github.com/Zhima-Mochi/minishop-assistant/internal/config"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	chatpresentation "github.com/Zhima-Mochi/minishop-assistant/internal/presentation/chat"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Keep stdout for the conversation unless a log file was chosen.
	if os.Getenv("LOG_LEVEL") == "" && os.Getenv("LOG_FILE") == "" {
		_ = os.Setenv("LOG_LEVEL", "error")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if cfg.ChatServeHTTP {
		go func() {
			if err := a.Serve(ctx); err != nil {
				a.Logger.Error("chat_http_backend_failed", observability.F("error", err))
			}
		}()
	}

	sid := id.NewUUIDGenerator().NewID()
	return chatpresentation.NewREPL(a.Conversation, sid, os.Stdin, os.Stdout, a.Logger).Run(ctx)
}
