package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, 14400*time.Second, cfg.AuthTokenExpiration)
				assert.Equal(t, 10, cfg.LockoutMaxAttempts)
				assert.Equal(t, 30*time.Minute, cfg.LockoutDuration)
				assert.Equal(t, 10*time.Minute, cfg.OTPExpiration)
				assert.Equal(t, 6, cfg.OTPLength)
				assert.Equal(t, 30*time.Minute, cfg.SessionTokenExpiration)
				assert.Equal(t, "file:///var/lib/esign", cfg.StorageURL)
				assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
				assert.Equal(t, "us", cfg.ComplianceJurisdiction)
				assert.Equal(t, 24.0, cfg.FooterBandHeight)
				assert.Equal(t, "log", cfg.Notifier)
				assert.True(t, cfg.WorkerEnabled)
				assert.Equal(t, 5, cfg.WorkerMaxRetries)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/esign",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/esign", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom signing configuration",
			envVars: map[string]string{
				"OTP_EXPIRATION_MINUTES":           "3",
				"SESSION_TOKEN_SECRET":             "session-secret",
				"SESSION_TOKEN_EXPIRATION_MINUTES": "5",
				"COMPLIANCE_JURISDICTION":          "eu",
				"STORAGE_URL":                      "mem://",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3*time.Minute, cfg.OTPExpiration)
				assert.Equal(t, "session-secret", cfg.SessionTokenSecret)
				assert.Equal(t, 5*time.Minute, cfg.SessionTokenExpiration)
				assert.Equal(t, "eu", cfg.ComplianceJurisdiction)
				assert.Equal(t, "mem://", cfg.StorageURL)
			},
		},
		{
			name: "load webhook notifier configuration",
			envVars: map[string]string{
				"NOTIFIER":                         "webhook",
				"NOTIFIER_WEBHOOK_URL":             "https://hooks.example.com/esign",
				"NOTIFIER_WEBHOOK_TIMEOUT_SECONDS": "2",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "webhook", cfg.Notifier)
				assert.Equal(t, "https://hooks.example.com/esign", cfg.NotifierWebhookURL)
				assert.Equal(t, 2*time.Second, cfg.NotifierWebhookTimeout)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "bogus"}).GetGinMode())
}
