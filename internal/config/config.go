package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"presenca-bot/internal/models"
)

const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

type Config struct {
	Env      string
	LogLevel string

	StorageBackend string

	SpreadsheetID            string
	SheetName                string
	DriveFolderID            string
	GoogleServiceAccountJSON string

	TelegramToken string
	AdminTGIDs    map[int64]bool

	HTTPAddr    string
	CORSOrigins []string

	CacheTTL       time.Duration
	TerminalStatus models.Status
	MaxUploadBytes int64

	AMQPURL      string
	AMQPExchange string
}

func FromEnv() (Config, error) {
	var c Config
	c.Env = envOr("GO_ENV", "development")
	c.LogLevel = envOr("LOG_LEVEL", "info")

	c.StorageBackend = strings.ToLower(envOr("STORAGE_BACKEND", BackendGoogle))
	c.SpreadsheetID = strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	c.SheetName = envOr("GOOGLE_SHEETS_SHEET_NAME", "Presencas")
	c.DriveFolderID = strings.TrimSpace(os.Getenv("GOOGLE_DRIVE_FOLDER_ID"))
	c.GoogleServiceAccountJSON = strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))

	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.AdminTGIDs = parseAdminIDs(os.Getenv("ADMIN_TG_IDS"))

	c.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	c.CORSOrigins = parseList(os.Getenv("CORS_ORIGINS"))

	c.AMQPURL = strings.TrimSpace(os.Getenv("AMQP_URL"))
	c.AMQPExchange = envOr("AMQP_EXCHANGE", "attendance")

	ttl, err := time.ParseDuration(envOr("CACHE_TTL", "10m"))
	if err != nil {
		return c, fmt.Errorf("CACHE_TTL: %w", err)
	}
	if ttl < 0 {
		return c, fmt.Errorf("CACHE_TTL must not be negative")
	}
	c.CacheTTL = ttl

	switch strings.ToLower(envOr("TERMINAL_STATUS", "in_review")) {
	case "in_review":
		c.TerminalStatus = models.StatusInReview
	case "confirmed":
		c.TerminalStatus = models.StatusConfirmed
	default:
		return c, fmt.Errorf("TERMINAL_STATUS must be in_review or confirmed")
	}

	maxBytes, err := strconv.ParseInt(envOr("MAX_UPLOAD_BYTES", "2097152"), 10, 64)
	if err != nil || maxBytes <= 0 {
		return c, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}
	c.MaxUploadBytes = maxBytes

	switch c.StorageBackend {
	case BackendMemory:
	case BackendGoogle:
		if c.SpreadsheetID == "" {
			return c, fmt.Errorf("GOOGLE_SHEETS_SPREADSHEET_ID is empty")
		}
		if c.DriveFolderID == "" {
			return c, fmt.Errorf("GOOGLE_DRIVE_FOLDER_ID is empty")
		}
		if c.GoogleServiceAccountJSON == "" {
			return c, fmt.Errorf("GOOGLE_SERVICE_ACCOUNT_JSON is empty")
		}
	default:
		return c, fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}

	return c, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func parseList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAdminIDs(raw string) map[int64]bool {
	m := map[int64]bool{}
	for _, p := range parseList(raw) {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		m[v] = true
	}
	return m
}
