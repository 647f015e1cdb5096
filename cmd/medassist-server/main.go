package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medassist/internal/config"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/prompts"
	serverApp "medassist/internal/server/app"
	serverHTTP "medassist/internal/server/http"
	"medassist/internal/session"
	"medassist/internal/tools"
	"medassist/internal/tools/browser"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "medassist-server",
		Short: "Medical information assistant workflow server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve() error {
	logger := logging.NewComponentLogger("Main")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	logger.Info("Starting medassist server on port %s", cfg.Port)
	logger.Info("Basic model: %s, reasoning model: %s, vision model: %s",
		cfg.Basic.Model, cfg.Reasoning.Model, cfg.Vision.Model)

	store, err := session.OpenSQLStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Closing session store: %v", err)
		}
	}()

	models, err := llm.NewResolver(cfg)
	if err != nil {
		return fmt.Errorf("configuring models: %w", err)
	}

	loader, err := prompts.NewLoader()
	if err != nil {
		return fmt.Errorf("loading prompt templates: %w", err)
	}

	browserManager := browser.NewManager(browser.Config{
		Headless:      cfg.ChromeHeadless,
		ChromePath:    cfg.ChromeInstancePath,
		HistoryDir:    cfg.BrowserHistoryDir,
		PoolSize:      cfg.BrowserPoolSize,
		TextOnly:      cfg.BrowserTextOnly,
		ProxyServer:   cfg.ChromeProxyServer,
		ProxyUsername: cfg.ChromeProxyUsername,
		ProxyPassword: cfg.ChromeProxyPassword,
	})
	defer browserManager.Close()

	registry, err := buildToolRegistry(cfg, models, browserManager)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	orchestrator := serverApp.NewOrchestrator(store, loader, models, registry, cfg.WorkflowTimeout)
	router := serverHTTP.NewRouter(orchestrator, store, serverHTTP.RouterConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		BrowserHistoryDir: cfg.BrowserHistoryDir,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		// SSE streams stay open for the length of a run.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// buildToolRegistry wires every tool the workers may call. The browser tool
// needs the vision-class model to drive page interaction.
func buildToolRegistry(cfg *config.Config, models *llm.Resolver, manager *browser.Manager) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	registry.Register(tools.NewWebSearch(cfg.TavilyAPIKey, cfg.TavilyMaxResults))
	registry.Register(tools.NewCrawl())
	registry.Register(tools.NewAbstractSearch())
	registry.Register(tools.NewPythonExec())
	registry.Register(tools.NewBashExec())

	visionClient, err := models.ClientFor(llm.ClassVision)
	if err != nil {
		return nil, err
	}
	registry.Register(tools.NewBrowserTool(manager, visionClient))

	return registry, nil
}
