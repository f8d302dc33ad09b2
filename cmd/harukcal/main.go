/*
Package main is the harukcal command line client.

It keeps the signed-in member's session in a cookie jar (file, memory or Redis) and talks to
the Member Service with cookie credentials only. Logs go to stderr; command output goes to
stdout.

Usage:

	harukcal <command> [flags]

Commands: signup, login, logout, whoami, nickname, profile, photo, cache.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"harukcal/internal/configs"
	"harukcal/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jar, closeJar, err := openJar(ctx, cfg)
	if err != nil {
		logx.Error(err, "Failed to open cookie jar", "backend", cfg.CookieJar)
		os.Exit(1)
	}

	a, err := newApp(ctx, cfg, jar)
	if err != nil {
		logx.Error(err, "Failed to initialize client")
		os.Exit(1)
	}
	if closeJar != nil {
		a.closers = append(a.closers, closeJar)
	}

	code := run(ctx, a, os.Args[1:], os.Stdout)
	if err := a.Close(); err != nil {
		logx.Error(err, "Failed to close client")
	}
	os.Exit(code)
}
