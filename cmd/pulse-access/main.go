package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/darkwavepulse/pulse-access/internal/app"
	"github.com/darkwavepulse/pulse-access/internal/config"
	"github.com/darkwavepulse/pulse-access/internal/domain"
	"github.com/darkwavepulse/pulse-access/internal/health"
	"github.com/darkwavepulse/pulse-access/internal/http/handler"
	"github.com/darkwavepulse/pulse-access/internal/http/router"
	"github.com/darkwavepulse/pulse-access/internal/observability"
	"github.com/darkwavepulse/pulse-access/internal/repository"
	"github.com/darkwavepulse/pulse-access/internal/security"
	"github.com/darkwavepulse/pulse-access/internal/service"
	"github.com/darkwavepulse/pulse-access/internal/tools/common"
	"github.com/darkwavepulse/pulse-access/internal/tools/loadgen"
	"github.com/darkwavepulse/pulse-access/internal/tools/ui"
	"github.com/darkwavepulse/pulse-access/internal/vault"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "pulse-access",
		Short: "Session lifecycle and access-control service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return common.LoadEnvFile(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (missing file is ignored)")
	root.AddCommand(newServeCommand(), newSweepCommand(), newTokenCommand(), newLoadgenCommand())
	return root
}

type stack struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *gorm.DB
	sessions *service.SessionService
	access   *service.AccessService
	wallets  *service.WalletService
}

func buildStack(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stack, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		dialector = sqlite.Open(cfg.DatabaseURL)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.WhitelistEntry{}, &domain.Wallet{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	var cache service.NegativeTokenCacheStore
	if cfg.RedisEnabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, negative token cache falls back to in-memory", "error", err)
			cache = service.NewInMemoryNegativeTokenCacheStore()
		} else {
			cache = service.NewRedisNegativeTokenCacheStore(client, "pulse_access")
		}
	} else {
		cache = service.NewInMemoryNegativeTokenCacheStore()
	}

	sessionRepo := repository.NewSessionRepository(db)
	whitelistRepo := repository.NewWhitelistRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	sessions := service.NewSessionService(sessionRepo, cache, logger)
	identity := security.NewIdentityVerifier(cfg.IdentityIssuer, cfg.IdentityAudience, cfg.IdentitySecret)
	access := service.NewAccessService(sessions, whitelistRepo, identity, cfg.AccessCodeHash, logger)
	v := vault.New(func() string { return cfg.MasterEncryptionKey })
	wallets := service.NewWalletService(walletRepo, v)

	return &stack{cfg: cfg, logger: logger, db: db, sessions: sessions, access: access, wallets: wallets}, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			logger, loggerProvider, err := observability.NewLogger(ctx, cfg)
			if err != nil {
				return err
			}
			runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
			if err != nil {
				return err
			}

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}

			sqlDB, err := st.db.DB()
			if err != nil {
				return fmt.Errorf("unwrap database handle: %w", err)
			}
			readiness := health.NewProbeRunner(2*time.Second, 5*time.Second,
				health.DatabasePinger("database", sqlDB.PingContext),
			)

			h := router.NewRouter(router.Dependencies{
				AccessHandler:      handler.NewAccessHandler(st.access, st.sessions),
				WalletHandler:      handler.NewWalletHandler(st.wallets),
				Sessions:           st.sessions,
				CORSOrigins:        cfg.CORSOrigins,
				AccessRateLimitRPM: 30,
				APIRateLimitRPM:    600,
				Readiness:          readiness,
				EnableOTelHTTP:     cfg.OTELTracesEnabled,
			})

			server := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           h,
				ReadHeaderTimeout: 5 * time.Second,
			}
			sweeper := service.NewSweeper(st.sessions, cfg.SessionSweepInterval, logger)

			a := app.New(cfg, logger, server, runtime, sweeper, readiness, nil)
			return a.Run(ctx)
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired sessions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			logger, _, err := observability.NewLogger(ctx, cfg)
			if err != nil {
				return err
			}
			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			purged, err := st.sessions.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			logger.Info("sweep complete", "purged", purged)
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		userID      string
		email       string
		premium     bool
		accessLevel string
		assertion   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a dev session token or identity assertion",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if cfg.Profile == "prod" {
				return fmt.Errorf("token minting is disabled in prod")
			}
			logger, _, err := observability.NewLogger(ctx, cfg)
			if err != nil {
				return err
			}

			if assertion {
				identity := security.NewIdentityVerifier(cfg.IdentityIssuer, cfg.IdentityAudience, cfg.IdentitySecret)
				signed, err := identity.Sign(userID, email, premium, accessLevel, time.Hour)
				if err != nil {
					return err
				}
				fmt.Println(signed)
				return nil
			}

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			token, err := st.sessions.Issue(ctx, service.IssueParams{
				UserID:      userID,
				Email:       email,
				Premium:     premium,
				AccessLevel: accessLevel,
			})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "dev-user", "principal user id")
	cmd.Flags().StringVar(&email, "email", "", "principal email")
	cmd.Flags().BoolVar(&premium, "premium", false, "mark the principal premium")
	cmd.Flags().StringVar(&accessLevel, "access-level", "", "explicit access level (premium, admin, owner)")
	cmd.Flags().BoolVar(&assertion, "assertion", false, "print a signed identity assertion instead of a session token")
	return cmd
}

func newLoadgenCommand() *cobra.Command {
	var (
		baseURL     string
		profile     string
		duration    time.Duration
		rps         int
		concurrency int
		seed        int64
		accessCode  string
	)
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate synthetic session traffic against a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ui.Run("pulse-access loadgen", func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, loadgen.Config{
					BaseURL:     baseURL,
					Profile:     profile,
					Duration:    duration,
					RPS:         rps,
					Concurrency: concurrency,
					Seed:        seed,
					AccessCode:  accessCode,
				})
				if err != nil {
					return nil, err
				}
				details := []string{
					fmt.Sprintf("total=%d failures=%d elapsed=%s", res.TotalRequests, res.Failures, res.Elapsed.Round(time.Millisecond)),
				}
				for class, n := range res.StatusClasses {
					details = append(details, fmt.Sprintf("status %s: %d", class, n))
				}
				return details, nil
			})
			return err
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: mixed, access, verify")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "run duration")
	cmd.Flags().IntVar(&rps, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "worker count")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&accessCode, "access-code", "", "real access code for positive-path traffic")
	return cmd
}
