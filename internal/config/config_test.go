package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "")

	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "@tcp(localhost:3306)/copal")
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "copal:matches", cfg.Notify.MatchChannel)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
}

func TestNew_PostgresDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "db.internal")

	cfg := New()

	assert.Contains(t, cfg.DB.DSN, "host=db.internal port=5432")
	assert.Contains(t, cfg.DB.DSN, "dbname=copal")
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("WS_SEND_BUFFER", "not-a-number")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_SOURCE", "yes")

	cfg := New()

	assert.Equal(t, "file::memory:", cfg.DB.DSN)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.Log.Source)
}
