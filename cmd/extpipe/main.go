// CLAUDE:SUMMARY Entry point for the extraction pipeline server — chi router, run log, optional MCP stdio.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/extpipe/dbopen"
	"github.com/hazyhaar/extpipe/httpapi"
	"github.com/hazyhaar/extpipe/pipeline"
	"github.com/hazyhaar/extpipe/runlog"
)

func main() {
	port := env("PORT", "8086")
	configPath := env("CONFIG", "")
	runlogPath := env("RUNLOG_DB", "db/runs.db")
	engineURL := env("ENGINE_URL", "")
	authPassword := os.Getenv("AUTH_PASSWORD")
	mcpTransport := env("MCP_TRANSPORT", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run log DB.
	runDB, err := dbopen.Open(runlogPath, dbopen.WithMkdirAll())
	if err != nil {
		slog.Error("runlog db", "error", err)
		os.Exit(1)
	}
	defer runDB.Close()
	runs := runlog.NewStore(runDB)
	if err := runs.Init(); err != nil {
		slog.Error("runlog init", "error", err)
		os.Exit(1)
	}
	defer runs.Close()

	// Pipeline config.
	cfg := pipeline.Config{Logger: logger, RunLog: runs}
	if configPath != "" {
		fileCfg, err := pipeline.LoadConfigFile(configPath)
		if err != nil {
			slog.Error("config", "path", configPath, "error", err)
			os.Exit(1)
		}
		cfg.MaxInputSize = fileCfg.MaxInputSize
	}

	// Extraction collaborator.
	extract := pipeline.ExtractFunc(passthroughExtract)
	if engineURL != "" {
		extract = newRemoteEngine(engineURL).Extract
		slog.Info("using remote engine", "url", engineURL)
	} else {
		slog.Info("no ENGINE_URL set, using plain-text passthrough engine")
	}

	pipe, err := pipeline.New(extract, cfg)
	if err != nil {
		slog.Error("pipeline", "error", err)
		os.Exit(1)
	}

	// Stock plugins from the same config file.
	if configPath != "" {
		plugCfg, err := loadPluginsConfig(configPath)
		if err != nil {
			slog.Error("plugins config", "path", configPath, "error", err)
			os.Exit(1)
		}
		if err := registerPlugins(pipe.Registry(), plugCfg); err != nil {
			slog.Error("register plugins", "error", err)
			os.Exit(1)
		}
	}

	// Optional Basic Auth.
	var authHash string
	if authPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(authPassword), bcrypt.DefaultCost)
		if err != nil {
			slog.Error("auth hash", "error", err)
			os.Exit(1)
		}
		authHash = string(hash)
	}

	// Optional MCP over stdio. In stdio mode the MCP session owns the
	// process lifetime; the HTTP server still runs alongside.
	if mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "extpipe",
			Version: "1.0.0",
		}, nil)
		pipe.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("MCP stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
			cancel()
		}()
	}

	api := httpapi.New(pipe, httpapi.Options{
		Runs:     runs,
		AuthHash: authHash,
		Logger:   logger,
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
