package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey           string        `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel         string        `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingFallbackModel string        `envconfig:"EMBEDDING_FALLBACK_MODEL" default:"text-embedding-ada-002"`
	ChatModel              string        `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ProviderTimeout        time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	RetrievalLimit     int     `envconfig:"RETRIEVAL_LIMIT" default:"5"`
	RetrievalThreshold float64 `envconfig:"RETRIEVAL_THRESHOLD" default:"0.5"`
	RetrievalFloor     float64 `envconfig:"RETRIEVAL_FLOOR" default:"0.3"`
	RetrievalScanLimit int     `envconfig:"RETRIEVAL_SCAN_LIMIT" default:"200"`

	SummaryWindowTurns int `envconfig:"SUMMARY_WINDOW_TURNS" default:"5"`
	SummaryCadence     int `envconfig:"SUMMARY_CADENCE" default:"5"`

	AgentContextLimit     int     `envconfig:"AGENT_CONTEXT_LIMIT" default:"10"`
	AgentContextThreshold float64 `envconfig:"AGENT_CONTEXT_THRESHOLD" default:"0.5"`
	AgentHistoryTurns     int     `envconfig:"AGENT_HISTORY_TURNS" default:"8"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"roomctx-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ROOMCTX", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
