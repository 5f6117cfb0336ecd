package drive

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"presenca-bot/internal/attendance"
)

type Client struct {
	srv *drivev3.Service
}

var _ attendance.BlobStore = (*Client)(nil)

func New(ctx context.Context, serviceAccountJSONPath string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := drivev3.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(drivev3.DriveFileScope),
	)
	if err != nil {
		return nil, err
	}
	return NewWithService(srv), nil
}

func NewWithService(srv *drivev3.Service) *Client {
	return &Client{srv: srv}
}

// Upload creates name under folderID and returns the Drive file id.
func (c *Client) Upload(ctx context.Context, folderID, name string, data []byte) (string, error) {
	meta := &drivev3.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	f, err := c.srv.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType(name, data))).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive create %s: %w", name, err)
	}
	return f.Id, nil
}

func contentType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
