package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presenca-bot/internal/models"
)

func setGoogleEnv(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "google")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-id")
	t.Setenv("GOOGLE_DRIVE_FOLDER_ID", "folder-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "/secrets/sa.json")
}

func TestFromEnv_Defaults(t *testing.T) {
	setGoogleEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "Presencas", c.SheetName)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, 10*time.Minute, c.CacheTTL)
	assert.Equal(t, models.StatusInReview, c.TerminalStatus)
	assert.Equal(t, int64(2*1024*1024), c.MaxUploadBytes)
	assert.Equal(t, "attendance", c.AMQPExchange)
	assert.Empty(t, c.AdminTGIDs)
	assert.Empty(t, c.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	setGoogleEnv(t)
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("TERMINAL_STATUS", "CONFIRMED")
	t.Setenv("ADMIN_TG_IDS", " 42, x, 7 ,")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, c.CacheTTL)
	assert.Equal(t, models.StatusConfirmed, c.TerminalStatus)
	assert.Equal(t, map[int64]bool{42: true, 7: true}, c.AdminTGIDs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins)
}

func TestFromEnv_RequiredGoogleSettings(t *testing.T) {
	for _, key := range []string{"GOOGLE_SHEETS_SPREADSHEET_ID", "GOOGLE_DRIVE_FOLDER_ID", "GOOGLE_SERVICE_ACCOUNT_JSON"} {
		t.Run(key, func(t *testing.T) {
			setGoogleEnv(t)
			t.Setenv(key, "")

			_, err := FromEnv()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestFromEnv_MemoryBackendNeedsNoCredentials(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_DRIVE_FOLDER_ID", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, c.StorageBackend)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"CACHE_TTL":        "soon",
		"TERMINAL_STATUS":  "pending",
		"MAX_UPLOAD_BYTES": "-1",
		"STORAGE_BACKEND":  "s3",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			setGoogleEnv(t)
			t.Setenv(key, val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
