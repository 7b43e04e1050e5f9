package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Totarae/YotpoBridge/internal/auth"
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/database"
	"github.com/Totarae/YotpoBridge/internal/grpc/health"
	"github.com/Totarae/YotpoBridge/internal/job"
	"github.com/Totarae/YotpoBridge/internal/metrics"
	"github.com/Totarae/YotpoBridge/internal/migrations"
	"github.com/Totarae/YotpoBridge/internal/pipeline"
	"github.com/Totarae/YotpoBridge/internal/registry"
	"github.com/Totarae/YotpoBridge/internal/render"
	"github.com/Totarae/YotpoBridge/internal/repositories"
	"github.com/Totarae/YotpoBridge/internal/router"
	"github.com/Totarae/YotpoBridge/internal/storage"
	"github.com/Totarae/YotpoBridge/internal/storefront"
	"github.com/Totarae/YotpoBridge/internal/yotpo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Инициализация конфигурации
	cfg, err := config.Load(os.Args[1:])
	if cfg == nil {
		log.Fatalf("Ошибка разбора аргументов: %v", err)
	}

	logger, lerr := newLogger(cfg.LogLevel)
	if lerr != nil {
		log.Fatalf("Ошибка создания логгера: %v", lerr)
	}
	defer logger.Sync()

	if err != nil {
		logger.Fatal("Некорректная конфигурация", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Сервис остановлен с ошибкой", zap.Error(err))
	}
	logger.Info("Сервис остановлен")
}

// newLogger создаёт логгер. Для debug используется режим разработки, иначе production с уровнем level.
func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// stores: хранилища выбранного режима.
type stores struct {
	orders  storage.Orders
	history storage.History
	db      storefront.Pinger
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.Mode {
	case config.ModeDatabase:
		if cfg.PgMigrations {
			if err := migrations.Up(cfg.DatabaseDSN, logger); err != nil {
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		return &stores{
			orders:  repositories.NewOrderRepository(db),
			history: repositories.NewJobRunRepository(db),
			db:      db,
			close:   db.Close,
		}, nil

	case config.ModeFile:
		return &stores{
			orders:  storage.NewOrderStore(),
			history: storage.NewHistoryStore(cfg.JobHistoryPath, logger),
			close:   func() {},
		}, nil

	default:
		return &stores{
			orders:  storage.NewOrderStore(),
			history: storage.NewHistoryStore("", logger),
			close:   func() {},
		}, nil
	}
}

func loyaltyEnabled(locales []config.LocaleConfig) bool {
	for _, lc := range locales {
		if lc.LoyaltyEnabled {
			return true
		}
	}
	return false
}

// yotpoClients: клиенты Yotpo. loyalty равен nil, если Loyalty не включён ни в одной локали.
type yotpoClients struct {
	settings *yotpo.Settings
	exporter *yotpo.Exporter
	loyalty  *yotpo.Loyalty
}

func newYotpoClients(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*yotpoClients, error) {
	factory := registry.NewFactory(cfg, registry.WithLogger(logger), registry.WithMetrics(m))

	authSvc, err := factory.CreateService(config.ServiceAuth, yotpo.AuthDefinition)
	if err != nil {
		return nil, err
	}
	exportSvc, err := factory.CreateService(config.ServiceExportOrders, yotpo.ExportDefinition)
	if err != nil {
		return nil, err
	}
	settings, err := yotpo.NewSettings(cfg.Yotpo.Locales)
	if err != nil {
		return nil, err
	}

	c := &yotpoClients{
		settings: settings,
		exporter: yotpo.NewExporter(yotpo.NewAuthenticator(authSvc), exportSvc, cfg.Yotpo.Platform, logger, m),
	}
	if loyaltyEnabled(cfg.Yotpo.Locales) {
		loyaltySvc, err := factory.CreateService(config.ServiceLoyalty, yotpo.LoyaltyDefinition)
		if err != nil {
			return nil, err
		}
		c.loyalty = yotpo.NewLoyalty(loyaltySvc, logger, m)
	}
	return c, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	m := metrics.New()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	clients, err := newYotpoClients(cfg, logger, m)
	if err != nil {
		return err
	}
	renderer, err := render.New(logger)
	if err != nil {
		return err
	}
	catalog, err := storefront.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	platform := storefront.NewMemoryPlatform(catalog, st.orders)

	// Интерфейсы остаются nil, если Loyalty выключен.
	var (
		loyalty storefront.LoyaltyClient
		sender  job.LoyaltySender
	)
	if clients.loyalty != nil {
		loyalty, sender = clients.loyalty, clients.loyalty
	}

	p := pipeline.New()
	storefront.NewBase(platform).Register(p)
	storefront.NewEnricher(clients.settings, loyalty, renderer, st.orders, platform, logger).Register(p)

	reporter := health.NewReporter(logger, job.ExportJobID)
	runner := job.NewRunner(st.history, logger, job.WithMetrics(m), job.WithHealth(reporter))
	if err := runner.Register(job.NewExportJob(st.orders, clients.settings, clients.exporter, sender, cfg.ExportBatchSize, logger)); err != nil {
		return err
	}
	logger.Info("Задания зарегистрированы",
		zap.Strings("jobs", runner.Jobs()),
		zap.Strings("locales", cfg.LocaleIDs()),
	)
	scheduler := job.NewScheduler(runner, logger)
	if cfg.ExportSchedule != "" {
		if _, err := scheduler.Schedule(cfg.ExportSchedule, job.ExportJobID, nil); err != nil {
			return err
		}
	}

	handler := storefront.NewHandler(p, platform, runner, st.db, logger)
	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router.NewRouter(handler, auth.New(cfg.SessionSecret), m, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcServer := health.NewServer(reporter, logger)
	var grpcLis net.Listener
	if cfg.GRPCAddress != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddress); err != nil {
			return fmt.Errorf("listen gRPC %s: %w", cfg.GRPCAddress, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("address", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			logger.Info("gRPC сервер запущен", zap.String("address", cfg.GRPCAddress))
			return grpcServer.Serve(grpcLis)
		})
	}

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	// Остановка по сигналу или при ошибке любого из серверов
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Остановка сервиса")
		reporter.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
