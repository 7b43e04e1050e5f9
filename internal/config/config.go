package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/Totarae/YotpoBridge/internal/registry"
)

// Режимы хранения.
const (
	ModeDatabase = "database"
	ModeFile     = "file"
	ModeMemory   = "in-memory"
)

// Идентификаторы сервисов Yotpo.
const (
	ServiceAuth           = "yotpo.https.post.token.api"
	ServiceExportOrders   = "yotpo.https.post.export.purchase.api"
	ServiceLoyalty        = "yotpo.https.loyalty.api"
	defaultExportPlatform = "commerce_cloud"
)

// LocaleConfig: настройки Yotpo для одной локали витрины.
type LocaleConfig struct {
	Locale                    string `json:"locale" mapstructure:"locale" validate:"required"`
	AppKey                    string `json:"app_key" mapstructure:"app_key" validate:"required"`
	ClientSecret              string `json:"client_secret" mapstructure:"client_secret" validate:"required_if=PurchaseExportEnabled true"`
	ReviewsEnabled            bool   `json:"reviews_enabled" mapstructure:"reviews_enabled"`
	RatingsEnabled            bool   `json:"ratings_enabled" mapstructure:"ratings_enabled"`
	ConversionTrackingEnabled bool   `json:"conversion_tracking_enabled" mapstructure:"conversion_tracking_enabled"`
	PurchaseExportEnabled     bool   `json:"purchase_export_enabled" mapstructure:"purchase_export_enabled"`
	LoyaltyEnabled            bool   `json:"loyalty_enabled" mapstructure:"loyalty_enabled"`
	LoyaltyAPIKey             string `json:"loyalty_api_key" mapstructure:"loyalty_api_key" validate:"required_if=LoyaltyEnabled true"`
	LoyaltyGUID               string `json:"loyalty_guid" mapstructure:"loyalty_guid" validate:"required_if=LoyaltyEnabled true"`
}

// YotpoConfig: общие настройки интеграции.
type YotpoConfig struct {
	Platform string         `json:"platform" mapstructure:"platform"`
	Locales  []LocaleConfig `json:"locales" mapstructure:"locales" validate:"dive"`
}

// Config хранит конфигурацию сервиса
type Config struct {
	ServerAddress   string                            `json:"server_address" validate:"required"`
	GRPCAddress     string                            `json:"grpc_address"`
	DatabaseDSN     string                            `json:"database_dsn"`
	PgMigrations    bool                              `json:"pg_migrations"`
	JobHistoryPath  string                            `json:"job_history_path"`
	CatalogPath     string                            `json:"catalog_path"`
	SessionSecret   string                            `json:"session_secret" validate:"required"`
	ExportSchedule  string                            `json:"export_schedule"`
	ExportBatchSize int                               `json:"export_batch_size" validate:"gte=1,lte=1000"`
	LogLevel        string                            `json:"log_level" validate:"oneof=debug info warn error"`
	Mode            string                            `json:"-"`
	Services        map[string]registry.ServiceConfig `json:"services" validate:"dive"`
	Yotpo           YotpoConfig                       `json:"yotpo"`
}

// DefaultServices: рабочие точки Yotpo, если таблица сервисов не задана.
func DefaultServices() map[string]registry.ServiceConfig {
	return map[string]registry.ServiceConfig{
		ServiceAuth: {
			URL:     "https://api.yotpo.com/oauth/token",
			Method:  "POST",
			Timeout: 10 * time.Second,
		},
		ServiceExportOrders: {
			URL:     "https://api.yotpo.com/apps",
			Method:  "POST",
			Timeout: 60 * time.Second,
		},
		ServiceLoyalty: {
			URL:     "https://loyalty.yotpo.com/api/v2",
			Method:  "POST",
			Timeout: 10 * time.Second,
		},
	}
}

// Load разбирает args и окружение. Приоритет: окружение > флаг > JSON-файл > умолчание.
func Load(args []string) (*Config, error) {
	env := viper.New()
	env.SetDefault("SERVER_ADDRESS", "localhost:8080") // Значения по умолчанию
	env.SetDefault("GRPC_ADDRESS", "localhost:9090")
	env.SetDefault("DATABASE_DSN", "")
	env.SetDefault("PG_MIGRATIONS", true)
	env.SetDefault("JOB_HISTORY_PATH", "")
	env.SetDefault("CATALOG_PATH", "catalog.json")
	env.SetDefault("SESSION_SECRET", "")
	env.SetDefault("EXPORT_SCHEDULE", "0 */6 * * *")
	env.SetDefault("EXPORT_BATCH_SIZE", 100)
	env.SetDefault("LOG_LEVEL", "info")
	env.AutomaticEnv()

	// Читаем .env, если есть (не переопределяет переменные окружения!)
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	_ = env.ReadInConfig() // Ошибку игнорируем, если файла нет

	// Определяем флаги, но НЕ задаем в них значения по умолчанию
	fs := flag.NewFlagSet("yotpo-bridge", flag.ContinueOnError)
	serverAddress := fs.String("a", "", "server address")
	grpcAddress := fs.String("g", "", "gRPC admin address")
	databaseDSN := fs.String("d", "", "PostgreSQL DSN")
	historyPath := fs.String("f", "", "job history file (JSON lines)")
	catalogPath := fs.String("catalog", "", "storefront catalog seed file")
	schedule := fs.String("schedule", "", "order export cron schedule")
	configPath := fs.String("c", "", "path to JSON config file")
	fs.StringVar(configPath, "config", "", "path to JSON config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Загружаем JSON-конфигурацию (если указана)
	if *configPath == "" {
		*configPath = os.Getenv("CONFIG")
	}
	file := viper.NewWithOptions(viper.KeyDelimiter("::"))
	if *configPath != "" {
		file.SetConfigFile(*configPath)
		file.SetConfigType("json")
		if err := file.ReadInConfig(); err != nil {
			log.Printf("Не удалось прочитать JSON-файл конфигурации %q: %v", *configPath, err)
		}
	}

	pick := func(key, flagValue string) string {
		if _, ok := os.LookupEnv(key); ok {
			return env.GetString(key)
		}
		if flagValue != "" {
			return flagValue
		}
		if jsonKey := strings.ToLower(key); file.IsSet(jsonKey) {
			return file.GetString(jsonKey)
		}
		return env.GetString(key)
	}
	pickInt := func(key string) int {
		if _, ok := os.LookupEnv(key); !ok && file.IsSet(strings.ToLower(key)) {
			return file.GetInt(strings.ToLower(key))
		}
		return env.GetInt(key)
	}
	pickBool := func(key string) bool {
		if _, ok := os.LookupEnv(key); !ok && file.IsSet(strings.ToLower(key)) {
			return file.GetBool(strings.ToLower(key))
		}
		return env.GetBool(key)
	}

	cfg := &Config{
		ServerAddress:   pick("SERVER_ADDRESS", *serverAddress),
		GRPCAddress:     pick("GRPC_ADDRESS", *grpcAddress),
		DatabaseDSN:     pick("DATABASE_DSN", *databaseDSN),
		JobHistoryPath:  pick("JOB_HISTORY_PATH", *historyPath),
		CatalogPath:     pick("CATALOG_PATH", *catalogPath),
		SessionSecret:   pick("SESSION_SECRET", ""),
		ExportSchedule:  pick("EXPORT_SCHEDULE", *schedule),
		LogLevel:        strings.ToLower(pick("LOG_LEVEL", "")),
		ExportBatchSize: pickInt("EXPORT_BATCH_SIZE"),
		PgMigrations:    pickBool("PG_MIGRATIONS"),
		Services:        DefaultServices(),
	}

	// Таблица сервисов и настройки Yotpo задаются только в JSON
	if file.IsSet("services") {
		services := map[string]registry.ServiceConfig{}
		if err := file.UnmarshalKey("services", &services); err != nil {
			return cfg, fmt.Errorf("разбор services: %w", err)
		}
		cfg.Services = services
	}
	if err := file.UnmarshalKey("yotpo", &cfg.Yotpo); err != nil {
		return cfg, fmt.Errorf("разбор yotpo: %w", err)
	}
	if cfg.Yotpo.Platform == "" {
		cfg.Yotpo.Platform = defaultExportPlatform
	}

	// Определяем режим работы
	if cfg.DatabaseDSN != "" {
		cfg.Mode = ModeDatabase
	} else if cfg.JobHistoryPath != "" {
		cfg.Mode = ModeFile
	} else {
		cfg.Mode = ModeMemory
	}

	log.Printf("Инициализация конфигурации: ServerAddress=%s", cfg.ServerAddress)
	log.Printf("Инициализация конфигурации: GRPCAddress=%s", cfg.GRPCAddress)
	log.Printf("Инициализация конфигурации: Mode=%s", cfg.Mode)
	log.Printf("Инициализация конфигурации: ExportSchedule=%s", cfg.ExportSchedule)
	log.Printf("Инициализация конфигурации: Services=%d Locales=%d", len(cfg.Services), len(cfg.Yotpo.Locales))

	// Проверка корректности конфигурации
	return cfg, cfg.Validate()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет корректность конфигурации
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("некорректная конфигурация: %w", verrs)
		}
		return err
	}
	if cfg.ExportSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ExportSchedule); err != nil {
			return fmt.Errorf("расписание выгрузки %q: %w", cfg.ExportSchedule, err)
		}
	}
	seen := make(map[string]struct{}, len(cfg.Yotpo.Locales))
	for _, lc := range cfg.Yotpo.Locales {
		if _, dup := seen[lc.Locale]; dup {
			return fmt.Errorf("локаль %q указана дважды", lc.Locale)
		}
		seen[lc.Locale] = struct{}{}
	}
	return nil
}

// ServiceConfig реализует registry.ConfigSource.
func (cfg *Config) ServiceConfig(serviceID string) (registry.ServiceConfig, bool) {
	return registry.StaticSource(cfg.Services).ServiceConfig(serviceID)
}

// LocaleIDs возвращает список настроенных локалей.
func (cfg *Config) LocaleIDs() []string {
	ids := make([]string, 0, len(cfg.Yotpo.Locales))
	for _, lc := range cfg.Yotpo.Locales {
		ids = append(ids, lc.Locale)
	}
	return ids
}
