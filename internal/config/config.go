package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Security    SecurityConfig    `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		Interactions    string `mapstructure:"interactions"`
		RecipeIngestion string `mapstructure:"recipe_ingestion"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommenderConfig holds the tuning knobs of the candidate selection engine.
// The component weights define how each interaction kind contributes to the
// user preference vector; they are deliberately configuration, not literals,
// so the weighting policy stays auditable.
type RecommenderConfig struct {
	Weights  ComponentWeights `mapstructure:"weights"`
	CacheTTL time.Duration    `mapstructure:"cache_ttl"`
}

type ComponentWeights struct {
	Like       float64 `mapstructure:"like"`
	Dislike    float64 `mapstructure:"dislike"`
	View       float64 `mapstructure:"view"`
	DetailView float64 `mapstructure:"detail_view"`
}

type EmbeddingConfig struct {
	ProviderURL string        `mapstructure:"provider_url"`
	Model       string        `mapstructure:"model"`
	Dimensions  int           `mapstructure:"dimensions"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.topics.interactions", "recipe-interactions")
	viper.SetDefault("kafka.topics.recipe_ingestion", "recipe-ingestion")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommender defaults. Likes dominate, dislikes push away, plain and
	// detail views nudge gently.
	viper.SetDefault("recommender.weights.like", 2.0)
	viper.SetDefault("recommender.weights.dislike", -1.0)
	viper.SetDefault("recommender.weights.view", 0.2)
	viper.SetDefault("recommender.weights.detail_view", 0.2)
	viper.SetDefault("recommender.cache_ttl", "15m")

	// Embedding provider defaults
	viper.SetDefault("embedding.provider_url", "http://localhost:8090/v1/embeddings")
	viper.SetDefault("embedding.model", "bge-m3")
	viper.SetDefault("embedding.dimensions", 1024)
	viper.SetDefault("embedding.timeout", "10s")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
