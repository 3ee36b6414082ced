package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации сервиса.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tiering   TieringConfig   `mapstructure:"tiering"`
	Estimator EstimatorConfig `mapstructure:"estimator"`
	Journal   JournalConfig   `mapstructure:"journal"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	MetricsPort  int           `mapstructure:"metrics_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (Pub/Sub и Cache).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig — RSA-ключ identity-сервиса CRM для проверки входящих токенов.
// Приватного ключа у сервиса нет: токены выпускаются не здесь.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// LadderRung — пороги входа на одну ступень лестницы доверия.
type LadderRung struct {
	MinSignals int     `mapstructure:"min_signals"`
	MinRate    float64 `mapstructure:"min_rate"`
}

// TieringConfig — инжектируемая настройка движка переходов.
// Боевые пороги принадлежат бекенд-контракту, в коде их нет.
type TieringConfig struct {
	// Ladder: ключ — целевая ступень ("approve", "auto", ...).
	Ladder   map[string]LadderRung `mapstructure:"ladder"`
	Cooldown time.Duration         `mapstructure:"cooldown"`
}

// EstimatorConfig — веса «минут на действие» для оценки экономии времени.
type EstimatorConfig struct {
	// Weights: ключ — тип действия, значение — минуты на одно действие.
	Weights        map[string]float64 `mapstructure:"weights"`
	DefaultMinutes float64            `mapstructure:"default_minutes"`
}

// JournalConfig — настройки асинхронного журнала сырых сигналов.
type JournalConfig struct {
	BufferSize    int           `mapstructure:"buffer_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// NotifyConfig — доставка событий переходов в бекенд CRM (webhook).
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   int           `mapstructure:"attempts"`

	// Rate limiter исходящих вызовов
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`

	// Circuit Breaker
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Переменные окружения перекрывают файл:
	// SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Публичный ключ: либо PEM прямо в ENV (Docker/K8s),
	// либо файл по пути из конфига.
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	// Лестница доверия для dev-стенда; прод задает свою.
	v.SetDefault("tiering.cooldown", 72*time.Hour)
	v.SetDefault("tiering.ladder.approve.min_signals", 25)
	v.SetDefault("tiering.ladder.approve.min_rate", 0.85)
	v.SetDefault("tiering.ladder.auto.min_signals", 50)
	v.SetDefault("tiering.ladder.auto.min_rate", 0.95)

	v.SetDefault("estimator.default_minutes", 3.0)

	v.SetDefault("journal.buffer_size", 10000)
	v.SetDefault("journal.batch_size", 100)
	v.SetDefault("journal.flush_interval", 500*time.Millisecond)

	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("notify.attempts", 3)
	v.SetDefault("notify.rate_limit", 50)
	v.SetDefault("notify.burst", 10)
	v.SetDefault("notify.cb_max_requests", 3)
	v.SetDefault("notify.cb_interval", 5*time.Second)
	v.SetDefault("notify.cb_timeout", 30*time.Second)
}

// loadKeyResource — ключ либо напрямую из ENV, либо файлом по пути.
func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
