package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/domain/admission"
	"github.com/ehr/records/internal/domain/chart"
	"github.com/ehr/records/internal/domain/patient"
	"github.com/ehr/records/internal/domain/recordnumber"
	"github.com/ehr/records/internal/domain/timeline"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/metrics"
	"github.com/ehr/records/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "records-server",
		Short: "Patient records API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(refreshProjectionsCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the records API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func refreshProjectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-projections",
		Short: "Recompute the denormalized state of every patient from the ledgers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := buildService(pool, cfg, logger)
			count, err := svc.RefreshAllProjections(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Refreshed %d patient projection(s).\n", count)
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with generated patients and admission history",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("patients")
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := newPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := buildService(pool, cfg, logger)
			if err := seed(ctx, svc, n); err != nil {
				return err
			}
			fmt.Printf("Seeded %d patient(s).\n", n)
			return nil
		},
	}
	cmd.Flags().Int("patients", 25, "Number of patients to generate")
	return cmd
}

// seed generates patients with a record number and zero or more completed
// admission stays, leaving some patients currently admitted.
func seed(ctx context.Context, svc *chart.Service, n int) error {
	faker := gofakeit.New(0)
	types := []string{admission.TypeEmergency, admission.TypeScheduled, admission.TypeTransfer}
	dischargeTypes := []string{admission.DischargeMedical, admission.DischargeAdministrative, admission.DischargeTransferOut}

	for i := 0; i < n; i++ {
		p, err := svc.RegisterPatient(ctx, uuid.Nil, faker.Name())
		if err != nil {
			return err
		}

		mrn := fmt.Sprintf("MRN-%06d", faker.Number(100000, 999999))
		if _, err := svc.SetRecordNumber(ctx, p.ID, mrn, nil, nil, "seed"); err != nil {
			return err
		}

		stays := faker.Number(0, 3)
		at := time.Now().AddDate(0, -6, 0)
		for s := 0; s < stays; s++ {
			at = at.Add(time.Duration(faker.Number(24, 24*30)) * time.Hour)
			bed := fmt.Sprintf("%d%s", faker.Number(1, 9), faker.LetterN(1))
			diagnosis := faker.LoremIpsumSentence(4)
			adm, err := svc.AdmitPatient(ctx, p.ID, types[faker.Number(0, len(types)-1)], at, &bed, &diagnosis, "seed")
			if err != nil {
				return err
			}

			// Leave roughly one in five final stays open.
			if s == stays-1 && faker.Number(0, 4) == 0 {
				break
			}

			at = at.Add(time.Duration(faker.Number(6, 24*14)) * time.Hour)
			if _, err := svc.DischargePatient(ctx, adm.ID, dischargeTypes[faker.Number(0, len(dischargeTypes)-1)], at, &bed, nil, "seed"); err != nil {
				return err
			}
		}
	}
	return nil
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, db.PoolConfig{
		URL:              cfg.DatabaseURL,
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		StatementTimeout: cfg.DBStatementTimeout,
		LockTimeout:      cfg.DBLockTimeout,
	})
}

func buildService(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger) *chart.Service {
	patientRepo := patient.NewRepo(pool)
	recordNumberLedger := recordnumber.NewLedger(recordnumber.NewRepo(pool))
	admissionLedger := admission.NewLedger(admission.NewRepo(pool), cfg.AdmitClockSkew, cfg.AdmitPastHorizon)
	eventRepo := timeline.NewRepo(pool)
	emitter := timeline.NewEmitter(eventRepo)
	return chart.NewService(pool, patientRepo, recordNumberLedger, admissionLedger, emitter, eventRepo, logger)
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx := context.Background()
	pool, err := newPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	m, registry := metrics.New()
	svc := buildService(pool, cfg, logger)
	handler := chart.NewHandler(svc, m)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Unauthenticated operational endpoints
	e.GET("/healthz", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(registry)))

	// Authenticated API
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() && cfg.AuthSecret == "" {
		logger.Warn().Msg("AUTH_SECRET not set; running with development identity")
		apiV1.Use(auth.DevMiddleware())
	} else {
		apiV1.Use(auth.Middleware(auth.Config{
			Secret:   cfg.AuthSecret,
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
		}))
	}
	handler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
