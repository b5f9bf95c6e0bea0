package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/vaidya/internal/api/handlers"
	"github.com/cloo-solutions/vaidya/internal/config"
	"github.com/cloo-solutions/vaidya/internal/jobs"
	"github.com/cloo-solutions/vaidya/internal/server"
	"github.com/cloo-solutions/vaidya/internal/telemetry"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the vaidya API server and the background ingest worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides VAIDYA_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not start the ingest worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: tracesSampleRate(cfg.Environment),
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	_, pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Println("connected to database")

	a, err := newApp(ctx, cfg, pool)
	if err != nil {
		return err
	}

	var worker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		worker = jobs.NewWorker(jobs.NewIngestWorker(a.ingestJobs, a.ingest), cfg.IngestPollInterval)
		go worker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		MedicalHandler:  handlers.NewMedicalHandler(a.rag, a.symptoms),
		DocumentHandler: handlers.NewDocumentHandler(a.search, a.ingest, a.searchLogs),
		AdminToken:      cfg.AdminToken,
		Database:        pool,
	})
	if cfg.AdminToken == "" {
		log.Println("VAIDYA_ADMIN_TOKEN not set: document maintenance routes disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
	log.Println("shutting down...")

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// tracesSampleRate samples everything in development and 10% elsewhere.
func tracesSampleRate(environment string) float64 {
	if environment == "" || environment == "development" {
		return 1.0
	}
	return 0.1
}
