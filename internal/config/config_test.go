package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var configEnvVars = []string{
	"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME",
	"DB_PATH", "QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
	"CONTEXT_CHAR_BUDGET", "RAG_TOP_K", "RAG_ACTIVITY_TOP_K",
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// resetEnv clears all config env vars and restores them after the test.
func resetEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		original, wasSet := os.LookupEnv(key)
		_ = os.Unsetenv(key)
		if wasSet {
			t.Cleanup(func() { _ = os.Setenv(key, original) })
		}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		wantErr     bool
		checkConfig func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults with required vector size",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "1024")
				_ = os.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.QdrantVectorSize != 1024 {
					t.Errorf("QdrantVectorSize = %d, want 1024", cfg.QdrantVectorSize)
				}
				if cfg.ContextCharBudget != 4000 {
					t.Errorf("ContextCharBudget = %d, want default 4000", cfg.ContextCharBudget)
				}
				if cfg.TopK != 5 || cfg.ActivityTopK != 10 {
					t.Errorf("TopK = %d, ActivityTopK = %d, want defaults 5 and 10", cfg.TopK, cfg.ActivityTopK)
				}
				if cfg.QdrantCollection != "memories" {
					t.Errorf("QdrantCollection = %q, want memories", cfg.QdrantCollection)
				}
				if cfg.LogLevel != slog.LevelInfo {
					t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
				}
			},
		},
		{
			name:     "missing vector size",
			setupEnv: func(t *testing.T) {},
			wantErr:  true,
		},
		{
			name: "invalid vector size",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "not-a-number")
			},
			wantErr: true,
		},
		{
			name: "negative vector size",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "-1")
			},
			wantErr: true,
		},
		{
			name: "invalid context budget",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "1024")
				_ = os.Setenv("CONTEXT_CHAR_BUDGET", "0")
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "1024")
				_ = os.Setenv("LOG_LEVEL", "loud")
			},
			wantErr: true,
		},
		{
			name: "overridden tuning values",
			setupEnv: func(t *testing.T) {
				_ = os.Setenv("QDRANT_VECTOR_SIZE", "768")
				_ = os.Setenv("DB_PATH", filepath.Join(t.TempDir(), "test.db"))
				_ = os.Setenv("CONTEXT_CHAR_BUDGET", "2500")
				_ = os.Setenv("RAG_TOP_K", "8")
				_ = os.Setenv("RAG_ACTIVITY_TOP_K", "20")
				_ = os.Setenv("LOG_LEVEL", "debug")
				_ = os.Setenv("LOG_FORMAT", "json")
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.ContextCharBudget != 2500 {
					t.Errorf("ContextCharBudget = %d, want 2500", cfg.ContextCharBudget)
				}
				if cfg.TopK != 8 || cfg.ActivityTopK != 20 {
					t.Errorf("TopK = %d, ActivityTopK = %d, want 8 and 20", cfg.TopK, cfg.ActivityTopK)
				}
				if cfg.LogLevel != slog.LevelDebug {
					t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
				}
				if cfg.LogFormat != "json" {
					t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.checkConfig != nil {
				tt.checkConfig(t, cfg)
			}
		})
	}
}
