package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chatbees/chatbees-go/internal/model"
)

// MaxFileSize is the largest document the service accepts.
const MaxFileSize = 9_500_000

// UploadDocument uploads a local file or a web document into a collection.
// URLs must start with http:// or https://. A leading "~/" in a path is
// expanded to the home directory.
func (c *Client) UploadDocument(ctx context.Context, collection, pathOrURL string) error {
	if c.apiKey == "" {
		return ErrAPIKeyRequired
	}

	var (
		name string
		src  io.ReadCloser
		err  error
	)
	if isURL(pathOrURL) {
		name, src, err = c.openURL(ctx, pathOrURL)
	} else {
		name, src, err = openFile(pathOrURL)
	}
	if err != nil {
		return err
	}
	defer src.Close()

	// One byte past the limit tells an oversized stream apart from one that
	// fits exactly.
	content, err := io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", pathOrURL, err)
	}
	if len(content) > MaxFileSize {
		return fmt.Errorf("%w: %s is larger than %d bytes", ErrFileTooLarge, pathOrURL, MaxFileSize)
	}

	request, err := json.Marshal(model.AddDocRequest{CollectionBaseRequest: c.collectionRequest(collection)})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.WriteField("request", string(request)); err != nil {
		return fmt.Errorf("failed to write request field: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/docs/add", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, "/docs/add", nil, true)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func openFile(p string) (string, io.ReadCloser, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil, fmt.Errorf("failed to expand %s: %w", p, err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	info, err := os.Stat(p)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", p)
	}
	if info.Size() > MaxFileSize {
		return "", nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, p, info.Size())
	}

	f, err := os.Open(p)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(p), f, nil
}

// openURL checks the advertised size of a web document and opens it. A
// server that does not answer HEAD is not an error; the body is still
// bounded while reading.
func (c *Client) openURL(ctx context.Context, rawURL string) (string, io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid url %s: %w", rawURL, err)
	}

	head, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	if resp, err := c.http.Do(head); err == nil {
		resp.Body.Close()
		if resp.ContentLength > MaxFileSize {
			return "", nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, rawURL, resp.ContentLength)
		}
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(get)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil, fmt.Errorf("failed to fetch %s: %s", rawURL, resp.Status)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = u.Hostname()
	}
	return name, resp.Body, nil
}

// DeleteDocument deletes a document from a collection.
func (c *Client) DeleteDocument(ctx context.Context, collection, docName string) error {
	req := model.DeleteDocRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		DocName:               docName,
	}
	return c.postJSON(ctx, "/docs/delete", req, nil, true)
}

// ListDocuments returns the names of the documents in a collection.
func (c *Client) ListDocuments(ctx context.Context, collection string) ([]string, error) {
	var resp model.ListDocsResponse
	req := model.ListDocsRequest{CollectionBaseRequest: c.collectionRequest(collection)}
	if err := c.postJSON(ctx, "/docs/list", req, &resp, true); err != nil {
		return nil, err
	}
	return resp.DocNames, nil
}

// SummarizeDocument returns the summary of a document.
func (c *Client) SummarizeDocument(ctx context.Context, collection, docName string) (string, error) {
	var resp model.SummaryResponse
	req := model.SummaryRequest{
		CollectionBaseRequest: c.collectionRequest(collection),
		DocName:               docName,
	}
	if err := c.postJSON(ctx, "/docs/summary", req, &resp, true); err != nil {
		return "", err
	}
	return resp.Summary, nil
}
