package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/config"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/admin"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/consultation"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/domain/patient"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/gateway"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/auth"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/db"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/metrics"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/middleware"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/reqctx"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/rpc"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/platform/tenant"
	"github.com/GrupoDistribuidas/GestionHospitalariaBackend/internal/remote"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hospital",
		Short: "Hospital management backend",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(tenantsCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "serve <service>",
		Short:     "Start one service: gateway, consultations, administration or patients",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{config.ServiceGateway, config.ServiceConsultations, config.ServiceAdministration, config.ServicePatients},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(args[0])
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
			return forEachMigrator(cmd, func(ctx context.Context, conn string, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed on %s: %w", conn, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %d migration(s).\n", conn, count)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return forEachMigrator(cmd, func(ctx context.Context, conn string, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status on %s: %w", conn, err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Migration status for connection: %s\n", conn)
				fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("service", config.ServiceConsultations, "Service whose migrations to run")
		c.Flags().Int("tenant", 0, "Medical center to migrate (0 = every configured one)")
		cmd.AddCommand(c)
	}
	return cmd
}

func forEachMigrator(cmd *cobra.Command, fn func(ctx context.Context, conn string, m *db.Migrator) error) error {
	service, _ := cmd.Flags().GetString("service")
	medicalCenterID, _ := cmd.Flags().GetInt("tenant")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	conns, err := migrationTargets(service, medicalCenterID, tenant.DefaultRoutingTable(), cfg.ConnectionStrings())
	if err != nil {
		return err
	}

	ctx := context.Background()
	dir := filepath.Join(cfg.MigrationsDir, service)
	for _, conn := range conns {
		pool, err := db.NewPool(ctx, cfg.ConnectionStrings()[conn], cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return fmt.Errorf("connection %s: %w", conn, err)
		}
		err = fn(ctx, conn, db.NewMigrator(pool, dir))
		pool.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// migrationTargets lists the connections a service's migrations apply to.
// Administration data lives in the primary database only; consultations
// and patients exist in every medical center.
func migrationTargets(service string, medicalCenterID int, routing tenant.RoutingTable, dsns map[string]string) ([]string, error) {
	var candidates []string
	switch service {
	case config.ServiceAdministration:
		candidates = []string{tenant.ConnPrimary}
	case config.ServiceConsultations, config.ServicePatients:
		if medicalCenterID > 0 {
			candidates = []string{routing.ConnectionName(medicalCenterID)}
			break
		}
		seen := map[string]bool{}
		for _, id := range routing.Tenants() {
			name := routing.ConnectionName(id)
			if !seen[name] {
				seen[name] = true
				candidates = append(candidates, name)
			}
		}
	default:
		return nil, fmt.Errorf("service %q has no database", service)
	}

	var out []string
	for _, name := range candidates {
		if _, ok := dsns[name]; ok {
			out = append(out, name)
		} else if medicalCenterID > 0 || name == tenant.ConnPrimary {
			return nil, fmt.Errorf("no database configured for connection %q", name)
		}
	}
	return out, nil
}

func tenantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List medical centers and the database each one routes to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			printTenants(cmd.OutOrStdout(), tenant.DefaultRoutingTable(), cfg.ConnectionStrings())
			return nil
		},
	}
}

func printTenants(w io.Writer, routing tenant.RoutingTable, dsns map[string]string) {
	fmt.Fprintf(w, "%-16s %-12s %s\n", "MEDICAL CENTER", "CONNECTION", "CONFIGURED")
	for _, id := range routing.Tenants() {
		name := routing.ConnectionName(id)
		_, ok := dsns[name]
		fmt.Fprintf(w, "%-16d %-12s %t\n", id, name, ok)
	}
}

func newLogger(cfg *config.Config, service string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}

func runServer(service string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg, service)
	if err := cfg.Validate(service); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx := context.Background()
	e, cleanup, err := newServer(ctx, service, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		return err
	}
	defer cleanup()

	go func() {
		addr := cfg.ListenAddr(service)
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
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance for service. The returned cleanup
// closes whatever the service opened.
func newServer(ctx context.Context, service string, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = rpc.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.Metrics(service))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/metrics"))

	e.GET("/metrics", metrics.Handler())

	switch service {
	case config.ServiceGateway:
		mountGateway(e, cfg, logger)
		return e, func() {}, nil
	case config.ServiceConsultations:
		return mountConsultations(ctx, e, cfg, logger)
	case config.ServiceAdministration:
		return mountAdministration(ctx, e, cfg, logger)
	case config.ServicePatients:
		return mountPatients(ctx, e, cfg, logger)
	}
	return nil, nil, fmt.Errorf("unknown service %q", service)
}

func mountGateway(e *echo.Echo, cfg *config.Config, logger zerolog.Logger) {
	if cfg.IsDev() && cfg.JWTKey == "" {
		logger.Warn().Msg("no JWT_KEY in development: requests without a token act as Admin")
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			SigningKey: []byte(cfg.JWTKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": config.ServiceGateway,
		})
	})

	gw := gateway.New(
		rpc.NewClient(cfg.ConsultationsURL, cfg.RPCTimeout),
		rpc.NewClient(cfg.AdministrationURL, cfg.RPCTimeout),
		rpc.NewClient(cfg.PatientsURL, cfg.RPCTimeout),
		logger,
	)
	gw.RegisterRoutes(e.Group("/api"))
}

func mountConsultations(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	pools, err := db.OpenPools(ctx, cfg.ConnectionStrings(), cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Int("connections", len(pools)).Msg("connected to databases")

	routing := tenant.DefaultRoutingTable()
	resolver := tenant.NewResolver(routing, pools, logger)
	patients := remote.NewPatientsClient(rpc.NewClient(cfg.PatientsURL, cfg.RPCTimeout))
	administration := remote.NewAdministrationClient(rpc.NewClient(cfg.AdministrationURL, cfg.RPCTimeout))

	validator := remote.NewValidator(patients, administration, routing, logger)
	validator.SetFanOutLimit(cfg.FanOutConcurrency)

	svc := consultation.NewService(resolver, consultation.NewRepo, validator, remote.NewDirectory(patients, administration), logger)
	svc.SetFanOutLimit(cfg.FanOutConcurrency)

	e.GET("/health", db.HealthHandler(config.ServiceConsultations, pools))
	e.Use(reqctx.Middleware())
	consultation.NewHandler(svc).RegisterRoutes(e.Group("/v1"))
	return e, pools.Close, nil
}

func mountAdministration(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	pools := db.Pools{tenant.ConnPrimary: pool}
	logger.Info().Msg("connected to database")

	svc := admin.NewService(admin.NewDoctorRepo(pool), admin.NewSpecialtyRepo(pool), admin.NewUserRepo(pool), logger)

	e.GET("/health", db.HealthHandler(config.ServiceAdministration, pools))
	e.Use(reqctx.Middleware())
	admin.NewHandler(svc).RegisterRoutes(e.Group("/v1"))
	return e, pools.Close, nil
}

func mountPatients(ctx context.Context, e *echo.Echo, cfg *config.Config, logger zerolog.Logger) (*echo.Echo, func(), error) {
	pools, err := db.OpenPools(ctx, cfg.ConnectionStrings(), cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Int("connections", len(pools)).Msg("connected to databases")

	svc := patient.NewService(tenant.NewResolver(tenant.DefaultRoutingTable(), pools, logger), patient.NewRepo, logger)
	svc.SetFanOutLimit(cfg.FanOutConcurrency)

	e.GET("/health", db.HealthHandler(config.ServicePatients, pools))
	e.Use(reqctx.Middleware())
	patient.NewHandler(svc).RegisterRoutes(e.Group("/v1"))
	return e, pools.Close, nil
}
