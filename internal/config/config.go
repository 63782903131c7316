// Package config loads pipeline configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Config carries every externally tunable setting. It is built once in the
// CLI and injected into the components that need it; nothing reads the
// environment after startup.
type Config struct {
	LLMProvider string
	LLMModel    string
	MaxTokens   int
	Temperature float64

	EmbedModel string

	QdrantURL    string
	QdrantAPIKey string
	Collection   string

	RerankEndpoint string
	RerankModel    string
	RerankAPIKey   string

	DBPath string

	PublishOnSuccess bool
	ReviewLimit      int
}

// FromEnv builds a Config from environment variables, applying defaults
// for everything unset. API keys for the LLM providers are read by the
// provider constructors themselves.
func FromEnv() Config {
	return Config{
		LLMProvider: envOr("DRAFTFORGE_LLM_PROVIDER", "anthropic"),
		LLMModel:    envOr("DRAFTFORGE_LLM_MODEL", "claude-sonnet-4-5"),
		MaxTokens:   envInt("DRAFTFORGE_MAX_TOKENS", 4096),
		Temperature: envFloat("DRAFTFORGE_TEMPERATURE", 0.2),

		EmbedModel: envOr("DRAFTFORGE_EMBED_MODEL", "text-embedding-3-small"),

		QdrantURL:    envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),
		Collection:   envOr("DRAFTFORGE_COLLECTION", "case_documents"),

		RerankEndpoint: os.Getenv("RERANK_ENDPOINT"),
		RerankModel:    envOr("RERANK_MODEL", "BAAI/bge-reranker-v2-m3"),
		RerankAPIKey:   os.Getenv("RERANK_API_KEY"),

		DBPath: envOr("DRAFTFORGE_DB", "draftforge.db"),

		PublishOnSuccess: envBool("DRAFTFORGE_PUBLISH", true),
		ReviewLimit:      envInt("DRAFTFORGE_REVIEW_LIMIT", 2),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
