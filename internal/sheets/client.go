package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

const DefaultSheet = "Presencas"

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	sheet         string
}

func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID, sheet string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return NewWithService(srv, spreadsheetID, sheet), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(srv *sheetsv4.Service, spreadsheetID, sheet string) *Client {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, sheet: sheet}
}
