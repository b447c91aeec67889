package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable the application reads.
const EnvPrefix = "SCRY"

// Load configuration from environment variables and optionally a config file.
// The file is taken from $SCRY_CONFIG or ./config.yaml when present.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly so Unmarshal sees them.
	for _, key := range []string{"database.url", "database.seed_file", "llm.gemini_api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.max_sessions", 100)
	v.SetDefault("server.session_idle_timeout", "30m")
	v.SetDefault("server.query_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.embedding_model_name", "text-embedding-004")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_output_tokens", 2048)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	engine := DefaultEngineConfig()
	v.SetDefault("engine.max_states", engine.MaxStates)
	v.SetDefault("engine.error_budget", engine.ErrorBudget)
	v.SetDefault("engine.chunk_size", engine.ChunkSize)
	v.SetDefault("engine.fuzzy_threshold", engine.FuzzyThreshold)
	v.SetDefault("engine.verify_sample_size", engine.VerifySampleSize)
	v.SetDefault("engine.question_top_k", engine.QuestionTopK)
	v.SetDefault("engine.content_top_k", engine.ContentTopK)
	v.SetDefault("engine.attempts.classification", engine.Attempts.Classification)
	v.SetDefault("engine.attempts.parameters", engine.Attempts.Parameters)
	v.SetDefault("engine.attempts.execution", engine.Attempts.Execution)
	v.SetDefault("engine.attempts.study_deck", engine.Attempts.StudyDeck)
	v.SetDefault("engine.attempts.chunk_errors", engine.Attempts.ChunkErrors)
	v.SetDefault("engine.attempts.chunk_messages", engine.Attempts.ChunkMessages)
}
