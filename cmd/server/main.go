package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"symptom-checker/internal/config"
	"symptom-checker/internal/consultation"
	"symptom-checker/internal/facility"
	"symptom-checker/internal/platform/database"
	"symptom-checker/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "symptom-checker",
		Short:        "Symptom checker API server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	for _, dir := range []database.Direction{database.Up, database.Down} {
		short := "Apply pending migrations"
		if dir == database.Down {
			short = "Roll back the last migration"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   string(dir),
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if !cfg.Persistent() {
					return errors.New("DATABASE_URL is required for migrations")
				}
				return database.Migrate(cfg.MigrationsDir, cfg.DatabaseURL, dir, newLogger(cfg))
			},
		})
	}
	return cmd
}

func checkCmd() *cobra.Command {
	var (
		city     string
		lat, lon float64
		sortBy   string
	)
	cmd := &cobra.Command{
		Use:   `check "<symptom description>"`,
		Short: "Assess a symptom description and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Never touch the database from the one-shot command.
			cfg.DatabaseURL = ""
			cfg.TelegramToken = ""

			// Only warnings, so the JSON on stdout stays readable.
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg).Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}
			defer a.Close()

			req := consultation.Request{Text: args[0], City: city, SortBy: facility.SortBy(sortBy)}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon") {
				req.Lat, req.Lon = &lat, &lon
			}

			c, err := a.service.Assess(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(c)
		},
	}
	cmd.Flags().StringVar(&city, "city", "", "Restrict facilities to a city")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Your latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Your longitude")
	cmd.Flags().StringVar(&sortBy, "sort", "distance", "Facility order: distance or rating")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer a.Close()

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a.health())
	})
	r.Handle("/metrics", a.metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultation.NewHandler(a.service))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
