package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/network/netpoll"
	"github.com/spf13/cobra"

	"github.com/realcbb/Dify2OpenAI/internal/config"
	"github.com/realcbb/Dify2OpenAI/internal/handler"
	"github.com/realcbb/Dify2OpenAI/internal/infrastructure/dify"
	"github.com/realcbb/Dify2OpenAI/internal/router"
	"github.com/realcbb/Dify2OpenAI/internal/usecase"
	"github.com/realcbb/Dify2OpenAI/pkg/logger"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "dify2openai",
	Short: "OpenAI-compatible gateway for Dify workflows",
	Long: `Dify2OpenAI is a protocol-translation gateway built with the Hertz framework.
It exposes an OpenAI-style chat-completion API and re-expresses requests as
Dify workflow executions, translating blocking and streaming responses back
into the chat-completion wire format.`,
	Version: version,
	Run:     runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	slog.Info("dify2openai starting...",
		"version", version,
		"backend", cfg.Dify.BaseURL,
	)

	// Route Hertz framework logs through slog
	hertzLogger := logger.NewHertzSlogAdapter(slog.Default())
	hlog.SetLogger(hertzLogger)
	if cfg.Server.Mode == "debug" {
		hlog.SetLevel(hlog.LevelDebug)
	} else {
		hlog.SetLevel(hlog.LevelWarn)
	}

	// Initialize workflow backend client
	difyClient, err := dify.NewClient(cfg.Dify, slog.Default())
	if err != nil {
		slog.Error("failed to create dify client", "error", err)
		os.Exit(1)
	}

	// Initialize chat components
	chatUsecase := usecase.NewChatUsecase(difyClient, cfg.Dify, slog.Default())
	chatHandler := handler.NewChatHandler(chatUsecase, cfg.Dify.Model, slog.Default())
	modelsHandler := handler.NewModelsHandler(cfg.Dify.Model)
	healthHandler := handler.NewHealthHandler(cfg.Dify.BaseURL)

	slog.Info("handlers initialized")

	// Create Hertz server with performance optimization
	h := server.Default(
		server.WithHostPorts(cfg.GetServerAddr()),
		server.WithReadTimeout(cfg.GetReadTimeout()),
		server.WithWriteTimeout(cfg.GetWriteTimeout()),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodySize*1024*1024),
		server.WithTransport(netpoll.NewTransporter),
	)

	// Setup routes
	router.Setup(h, chatHandler, modelsHandler, healthHandler)

	slog.Info("server started successfully",
		"address", cfg.GetServerAddr(),
		"mode", cfg.Server.Mode,
	)

	// Graceful shutdown
	go func() {
		if err := h.Run(); err != nil {
			slog.Error("server run failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
