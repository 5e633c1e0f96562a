package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 8080
database:
  host: localhost
  port: 5432
  user: autograde
  database: autograde
jwt:
  secret: "0123456789abcdef0123456789abcdef"
storage:
  upload_dir: /tmp/uploads
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.GRPCPort)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "mock", cfg.Storage.Type)
	assert.Equal(t, "fixture", cfg.Registration.Source)
	assert.Equal(t, "https://vpic.nhtsa.dot.gov/api", cfg.Enrichment.VPICBaseURL)
	assert.Equal(t, 1024, cfg.Enrichment.ImageMaxDim)
	assert.Equal(t, 70, cfg.Enrichment.ImageJPEGQuality)
	assert.Equal(t, 30*time.Second, cfg.EnrichmentTimeout())
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL())
	assert.Equal(t, 365, cfg.Scheduler.RetentionDays)
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REGISTRATION_SOURCE", "postgres")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "postgres", cfg.Registration.Source)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "postgres://autograde:@db.internal:5432/autograde?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Parse([]byte(minimalYAML))
		require.NoError(t, err)
		return cfg
	}

	t.Run("Short JWT secret", func(t *testing.T) {
		cfg := base()
		cfg.JWT.Secret = "short"
		assert.ErrorContains(t, cfg.Validate(), "at least 32")
	})

	t.Run("Unknown registration source", func(t *testing.T) {
		cfg := base()
		cfg.Registration.Source = "carjam"
		assert.ErrorContains(t, cfg.Validate(), "registration source")
	})

	t.Run("SendGrid needs sender", func(t *testing.T) {
		cfg := base()
		cfg.SendGrid.APIKey = "SG.key"
		cfg.SendGrid.FromEmail = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Clashing ports", func(t *testing.T) {
		cfg := base()
		cfg.Server.GRPCPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})
}
