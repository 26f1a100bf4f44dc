// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Weights  WeightsConfig  `mapstructure:"weights"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// EngineConfig holds the resolution-engine feature switches and budgets.
type EngineConfig struct {
	EnableSemanticAnalysis bool    `mapstructure:"enable_semantic_analysis"`
	EnableContextAnalysis  bool    `mapstructure:"enable_context_analysis"`
	EnableDynamicWeights   bool    `mapstructure:"enable_dynamic_weights"`
	EnableLearning         bool    `mapstructure:"enable_learning"`
	ParallelProcessing     bool    `mapstructure:"parallel_processing"`
	MaxWorkers             int     `mapstructure:"max_workers"`
	TimeoutSeconds         int     `mapstructure:"timeout_seconds"` // per placeholder
	DocumentTimeoutSeconds int     `mapstructure:"document_timeout_seconds"`
	CacheEnabled           bool    `mapstructure:"cache_enabled"`
	CacheTTLSeconds        int     `mapstructure:"cache_ttl_seconds"`
	MaxRetryAttempts       int     `mapstructure:"max_retry_attempts"`
	MaxNestingDepth        int     `mapstructure:"max_nesting_depth"`
	MinIntentConfidence    float64 `mapstructure:"min_intent_confidence"`
	LearningAlpha          float64 `mapstructure:"learning_alpha"`
}

// WeightsConfig holds the aggregation weights for the weight calculator.
// The five weights must sum to 1.0; validated at load time.
type WeightsConfig struct {
	Paragraph float64 `mapstructure:"paragraph"`
	Section   float64 `mapstructure:"section"`
	Document  float64 `mapstructure:"document"`
	Business  float64 `mapstructure:"business"`
	Semantic  float64 `mapstructure:"semantic"`
}

// Sum returns the total of the five aggregation weights.
func (w WeightsConfig) Sum() float64 {
	return w.Paragraph + w.Section + w.Document + w.Business + w.Semantic
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
