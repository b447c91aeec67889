package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`

	// MaxSessions caps the number of concurrent assistant sessions.
	MaxSessions        int           `mapstructure:"max_sessions" validate:"gte=1"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout" validate:"gte=0"`
	// QueryTimeout bounds a single assistant run started over HTTP.
	QueryTimeout    time.Duration `mapstructure:"query_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the flashcard repository. An empty URL selects the
// in-memory repository, optionally seeded from a YAML file.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	SeedFile string `mapstructure:"seed_file"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string  `mapstructure:"gemini_api_key" validate:"required"`
	ModelName          string  `mapstructure:"model_name" validate:"required"`
	EmbeddingModelName string  `mapstructure:"embedding_model_name" validate:"required"`
	Temperature        float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxOutputTokens    int32   `mapstructure:"max_output_tokens" validate:"gte=0"`
	MaxRetries         int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds  int     `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// EngineConfig contains the limits of the conversation state machine.
type EngineConfig struct {
	// MaxStates cuts a run off after this many state transitions.
	MaxStates int `mapstructure:"max_states" validate:"gte=1"`

	// ErrorBudget is the number of model, repository and search-index
	// failures tolerated per run.
	ErrorBudget int `mapstructure:"error_budget" validate:"gte=0"`

	ChunkSize        int     `mapstructure:"chunk_size" validate:"gte=1"`
	FuzzyThreshold   float64 `mapstructure:"fuzzy_threshold" validate:"gt=0,lte=1"`
	VerifySampleSize int     `mapstructure:"verify_sample_size" validate:"gte=1"`
	QuestionTopK     int     `mapstructure:"question_top_k" validate:"gte=1"`
	ContentTopK      int     `mapstructure:"content_top_k" validate:"gte=1"`

	Attempts AttemptsConfig `mapstructure:"attempts" validate:"required"`
}

// Validate checks the limits with the same rules Load applies.
func (c EngineConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}

// AttemptsConfig holds the per-state retry caps.
type AttemptsConfig struct {
	Classification int `mapstructure:"classification" validate:"gte=1"`
	Parameters     int `mapstructure:"parameters" validate:"gte=1"`
	Execution      int `mapstructure:"execution" validate:"gte=1"`
	StudyDeck      int `mapstructure:"study_deck" validate:"gte=1"`
	ChunkErrors    int `mapstructure:"chunk_errors" validate:"gte=1"`
	ChunkMessages  int `mapstructure:"chunk_messages" validate:"gte=1"`
}

// DefaultEngineConfig returns the engine limits used when nothing is configured.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxStates:        50,
		ErrorBudget:      5,
		ChunkSize:        5,
		FuzzyThreshold:   0.8,
		VerifySampleSize: 5,
		QuestionTopK:     10,
		ContentTopK:      10,
		Attempts: AttemptsConfig{
			Classification: 3,
			Parameters:     3,
			Execution:      3,
			StudyDeck:      5,
			ChunkErrors:    3,
			ChunkMessages:  10,
		},
	}
}
