package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── helpers ────────────────────────────────────────────────────────────────

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORE_DRIVER", "DATABASE_URL", "REDIS_URL", "RABBITMQ_URL",
		"ORACLE_PROVIDER", "GEMINI_API_KEY", "OPENAI_API_KEY", "STAGE_TEMPLATE_FILE",
	} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	clearConfigEnv(t)

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("ORACLE_PROVIDER", "mock")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

func TestRun_FailsOnUnreachableRedis(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://127.0.0.1:1")
	t.Setenv("ORACLE_PROVIDER", "mock")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

// ─── command tests ──────────────────────────────────────────────────────────

func TestMigrate_RequiresPostgres(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("ORACLE_PROVIDER", "mock")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER=postgres")
}

func TestBackfill_FlagValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no subject", []string{"backfill"}, "candidate"},
		{"both subjects", []string{"backfill", "--candidate", "a", "--job", "b"}, "none of the others"},
		{"bad candidate", []string{"backfill", "--candidate", "nope"}, "--candidate must be a valid UUID"},
		{"bad job", []string{"backfill", "--job", "nope"}, "--job must be a valid UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBackfill_FailsOnMissingConfig(t *testing.T) {
	clearConfigEnv(t)

	_, err := execute(t, "backfill", "--job", "6f1c2b4e-8a3d-4d6e-9b1a-0c2d3e4f5a6b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
