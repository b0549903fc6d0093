package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/raporhub/rapor-hub/config"
)

func TestPostgresConfig_KeepsDefaultsForUnsetFields(t *testing.T) {
	cfg := postgresConfig(config.DatabaseConfig{
		Host:            "db",
		Name:            "rapor",
		MaxConns:        20,
		ConnMaxLifetime: time.Hour,
	})

	assert.Equal(t, "db", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "rapor", cfg.Database)
	assert.Equal(t, int32(20), cfg.MaxConns)
	assert.Equal(t, time.Hour, cfg.MaxConnLifetime)
}

func TestRedisConfig_Overrides(t *testing.T) {
	cfg := redisConfig(config.RedisConfig{Host: "cache", DB: 2})

	assert.Equal(t, "cache:6379", cfg.Addr())
	assert.Equal(t, 2, cfg.DB)
}

func TestHTMLName(t *testing.T) {
	assert.Equal(t, "Rapor_Siti_Rahmawati_2024-genap.html", htmlName("Rapor_Siti_Rahmawati_2024-genap.pdf"))
	assert.Equal(t, "rapor.html", htmlName("rapor"))
}
