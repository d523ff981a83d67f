package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// HTTPサーバ設定
	HTTP HTTPConfig

	// タスクエンジン設定
	Tasks TasksConfig

	// データセット設定
	Dataset DatasetConfig

	// タスクストア設定
	Store StoreConfig

	// 自然言語フィルタ変換用LLM設定
	Translate TranslateConfig

	// ログ設定
	Log LogConfig
}

// HTTPConfig はHTTPサーバの設定
type HTTPConfig struct {
	Addr        string
	CORSOrigins []string
}

// TasksConfig はタスクエンジンの設定
type TasksConfig struct {
	QueueSize int
	Workers   int
}

// DatasetConfig はデータセットファイルの設定
type DatasetConfig struct {
	// UnifiedPath は統合済み CSV のパス
	UnifiedPath string

	// CarsJSONPath / MPGCSVPath は dataset build の入力
	CarsJSONPath string
	MPGCSVPath   string
}

// StoreConfig はタスクストアの設定
type StoreConfig struct {
	// Backend は "memory" または "postgres"
	Backend string

	Database DatabaseConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TranslateConfig はOpenAI API設定(natural-language フィルタ変換用)
type TranslateConfig struct {
	APIKey string
	Model  string
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string
	Format string
}

// ストアバックエンドの識別子
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない(環境変数のみで動作可能)
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":5001"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Tasks: TasksConfig{
			QueueSize: getEnvAsInt("TASK_QUEUE_SIZE", 100),
			Workers:   getEnvAsInt("TASK_WORKERS", 1),
		},
		Dataset: DatasetConfig{
			UnifiedPath:  getEnv("DATASET_PATH", "data/unified_cars.csv"),
			CarsJSONPath: getEnv("DATASET_CARS_JSON", "data/cars.json"),
			MPGCSVPath:   getEnv("DATASET_MPG_CSV", "data/mpg.csv"),
		},
		Store: StoreConfig{
			Backend: getEnv("TASK_STORE", StoreBackendMemory),
			Database: DatabaseConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnvAsInt("DB_PORT", 5432),
				User:     getEnv("DB_USER", "autoview"),
				Password: getEnv("DB_PASSWORD", ""),
				DBName:   getEnv("DB_NAME", "autoview"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
			},
		},
		Translate: TranslateConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	switch cfg.Store.Backend {
	case StoreBackendMemory, StoreBackendPostgres:
	default:
		return nil, fmt.Errorf("unknown task store backend: %q", cfg.Store.Backend)
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList は環境変数をカンマ区切りのリストとして取得します
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}
