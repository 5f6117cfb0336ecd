package drive

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type captured struct {
	path     string
	meta     drivev3.File
	media    []byte
	mimeType string
}

func newTestClient(t *testing.T, status int, got *captured) *Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		if status != http.StatusOK {
			http.Error(w, `{"error":{"code":403,"message":"insufficient permissions"}}`, status)
			return
		}

		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		mr := multipart.NewReader(r.Body, params["boundary"])

		part, err := mr.NextPart()
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(part).Decode(&got.meta))

		part, err = mr.NextPart()
		require.NoError(t, err)
		got.mimeType = part.Header.Get("Content-Type")
		got.media, err = io.ReadAll(part)
		require.NoError(t, err)

		_ = json.NewEncoder(w).Encode(&drivev3.File{Id: "file-123"})
	}))
	t.Cleanup(ts.Close)

	srv, err := drivev3.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)
	return NewWithService(srv)
}

func TestClient_Upload(t *testing.T) {
	got := &captured{}
	c := newTestClient(t, http.StatusOK, got)

	id, err := c.Upload(context.Background(), "folder-1", "19042025_120000_ana_silva.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "file-123", id)

	assert.True(t, strings.HasSuffix(got.path, "/upload/drive/v3/files"), got.path)
	assert.Equal(t, "19042025_120000_ana_silva.pdf", got.meta.Name)
	assert.Equal(t, []string{"folder-1"}, got.meta.Parents)
	assert.Equal(t, "application/pdf", got.mimeType)
	assert.Equal(t, []byte("%PDF-1.4"), got.media)
}

func TestClient_Upload_Error(t *testing.T) {
	c := newTestClient(t, http.StatusForbidden, &captured{})

	_, err := c.Upload(context.Background(), "folder-1", "x.png", []byte("png"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("a.png", nil))
	assert.Equal(t, "application/pdf", contentType("a.pdf", nil))
	assert.Equal(t, "text/plain; charset=utf-8", contentType("noext", []byte("hello")))
}
