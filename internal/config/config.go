// Package config resolves the worker's environment-variable configuration,
// with AWS Secrets Manager-backed overrides loaded once at startup,
// grounded on the teacher's mcpserver/server.go DefaultConfig/loadSecrets.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Config holds the worker's resolved configuration.
type Config struct {
	Port      int
	AWSRegion string
	TableName string
	S3Bucket  string
	CDNBaseURL string

	VoicevoxEndpoint string
	UserAgent        string
	KeepWorkDir      bool

	SecretPrefix string

	AnthropicAPIKey string
	AnthropicModel  string

	Environment    string
	LogLevel       slog.Level
	OTelEndpoint   string
	OTelLogHeaders string

	LLMAssistantPollTimeout time.Duration
}

// FromEnv populates a Config from environment variables, applying the
// same defaults the teacher's DefaultConfig uses where this worker
// carries the equivalent setting.
func FromEnv() Config {
	return Config{
		Port:                    envInt("PORT", 9001),
		AWSRegion:               envOr("AWS_REGION", "us-east-1"),
		TableName:               envOr("DYNAMODB_TABLE", "botcast-worker-prod"),
		S3Bucket:                envOr("S3_BUCKET", ""),
		CDNBaseURL:              envOr("CDN_BASE_URL", ""),
		VoicevoxEndpoint:        envOr("VOICEVOX_ENDPOINT", "http://localhost:50021"),
		UserAgent:               envOr("USER_AGENT", "botcast-worker/1.0"),
		KeepWorkDir:             envBool("KEEP_WORKDIR", false),
		SecretPrefix:            envOr("SECRET_PREFIX", "/botcast/worker/"),
		Environment:             envOr("ENVIRONMENT", "production"),
		LogLevel:                envLogLevel("LOG_LEVEL", slog.LevelInfo),
		AnthropicAPIKey:         os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:          envOr("ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
		OTelEndpoint:            os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelLogHeaders:          os.Getenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS"),
		LLMAssistantPollTimeout: envDuration("LLM_ASSISTANT_POLL_TIMEOUT", 120*time.Second),
	}
}

// LoadSecrets overrides any unset credential fields from AWS Secrets
// Manager under SecretPrefix, mirroring the teacher's loadSecrets: best
// effort, logging and falling back to the environment on any failure so
// a cold worker still starts without Secrets Manager access.
func (c *Config) LoadSecrets(ctx context.Context, logger *slog.Logger) {
	if c.SecretPrefix == "" {
		return
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWSRegion))
	if err != nil {
		logger.Warn("load aws config for secrets", "error", err)
		return
	}
	client := secretsmanager.NewFromConfig(awsCfg)

	fetch := func(name string, dst *string) {
		if *dst != "" {
			return
		}
		id := c.SecretPrefix + name
		out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &id})
		if err != nil {
			logger.Info("secret not found", "secret_id", id, "error", err)
			return
		}
		if out.SecretString != nil {
			*dst = aws.ToString(out.SecretString)
			logger.Info("loaded secret", "secret_id", id)
		}
	}

	fetch("ANTHROPIC_API_KEY", &c.AnthropicAPIKey)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envLogLevel parses LOG_LEVEL ("debug", "info", "warn", "error", case
// insensitive) into a slog.Level, falling back on anything unrecognized
// so a typo in the environment never silences the logger entirely.
func envLogLevel(key string, fallback slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// Validate checks the settings required to actually run the worker: only
// S3_BUCKET is required; an empty CDN base URL is accepted.
func (c Config) Validate() error {
	if c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET environment variable is required")
	}
	return nil
}
