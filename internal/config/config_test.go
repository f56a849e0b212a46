package config

import "testing"

func TestFromEnvAppliesDefaults(t *testing.T) {
	t.Setenv("DYNAMODB_TABLE", "")
	t.Setenv("PORT", "")
	t.Setenv("S3_BUCKET", "")

	cfg := FromEnv()

	if cfg.Port != 9001 {
		t.Fatalf("expected default port 9001, got %d", cfg.Port)
	}
	if cfg.TableName != "botcast-worker-prod" {
		t.Fatalf("expected default table name, got %q", cfg.TableName)
	}
	if cfg.AWSRegion != "us-east-1" {
		t.Fatalf("expected default region, got %q", cfg.AWSRegion)
	}
}

func TestFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KEEP_WORKDIR", "true")
	t.Setenv("DYNAMODB_TABLE", "custom-table")

	cfg := FromEnv()

	if cfg.Port != 9090 {
		t.Fatalf("expected overridden port 9090, got %d", cfg.Port)
	}
	if !cfg.KeepWorkDir {
		t.Fatalf("expected KeepWorkDir true")
	}
	if cfg.TableName != "custom-table" {
		t.Fatalf("expected overridden table name, got %q", cfg.TableName)
	}
}

func TestValidateRequiresS3Bucket(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing S3 bucket")
	}

	cfg.S3Bucket = "episodes"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnvIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	if got := envInt("PORT", 8000); got != 8000 {
		t.Fatalf("expected fallback 8000, got %d", got)
	}
}
