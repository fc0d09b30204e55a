package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/backend"
	"github.com/claude/liftlog/internal/config"
	liftmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/workouts"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	serverURL := flag.String("server", "", "LiftLog server URL (remote mode, e.g. http://liftlog.tail1234.ts.net)")
	userID := flag.String("user", liftmcp.DefaultUserID, "user whose data is served")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*configPath == "") == (*serverURL == "") {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-mcp (-config config.yaml | -server <URL>) [-user id]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var ds liftmcp.DataSource
	if *serverURL != "" {
		ds = liftmcp.NewHTTPClient(*serverURL)
		log.Info("remote mode", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, closeDB, err := backend.Open(context.Background(), cfg.Database, log)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer closeDB()
		ds = workouts.NewService(db, db, log)
	}

	s := liftmcp.New(ds, Version, log)
	user := *userID
	err := server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return liftmcp.WithUserID(ctx, user)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
