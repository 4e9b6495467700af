package postgres

import (
	"testing"
	"time"

	"github.com/ironvault/sentryiam/pkg/storage"
)

func TestNewPostgresStorage_RequiresPrimaryURL(t *testing.T) {
	_, err := NewPostgresStorage(storage.Config{})
	if err == nil {
		t.Fatal("expected error when no postgres URL is configured")
	}
}

func TestPostgresStorage_ConnectionConfig(t *testing.T) {
	t.Run("connection pool settings", func(t *testing.T) {
		maxConns := 25
		minConns := 5

		if maxConns <= 0 {
			t.Error("MaxConns should be positive")
		}
		if minConns < 0 {
			t.Error("MinConns should be non-negative")
		}
		if minConns > maxConns {
			t.Error("MinConns should not exceed MaxConns")
		}
	})

	t.Run("connection timeout", func(t *testing.T) {
		timeout := 30 * time.Second
		if timeout <= 0 {
			t.Error("Timeout should be positive")
		}
		if timeout > 5*time.Minute {
			t.Error("Timeout seems too long")
		}
	})
}

// Integration tests against a real PostgreSQL + Redis would live in a
// postgres_integration_test.go with a build tag, using testcontainers.
