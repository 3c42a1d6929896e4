package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/relaydesk/relay-go/transport"
)

// UploadFiles sends a project's files as one multipart request. Uploads
// are bulkhead-gated so a burst cannot monopolize the connection pool.
// Errors are propagated: the caller must know an upload failed.
func (c *Client) UploadFiles(ctx context.Context, name string, files []File) (*Project, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("upload %q: no files", name)
	}

	if err := c.uploads.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}
	defer c.uploads.Release()

	body, contentType, err := encodeMultipart(name, files)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}

	var resp uploadResponse
	err = c.transport.Do(ctx, transport.RequestSpec{
		Method:      http.MethodPost,
		Path:        "/api/files/upload",
		RawBody:     body,
		ContentType: contentType,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", name, err)
	}
	if !resp.Success || resp.Project == nil {
		return nil, fmt.Errorf("upload %q: backend reported failure", name)
	}
	return resp.Project, nil
}

// AnalyzeProject requests static analysis of an uploaded project.
func (c *Client) AnalyzeProject(ctx context.Context, projectID string) (*Analysis, error) {
	var resp analyzeResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/files/analyze/" + url.PathEscape(projectID),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("analyze project %q: %w", projectID, err)
	}
	if resp.Analysis == nil {
		return nil, fmt.Errorf("analyze project %q: empty analysis", projectID)
	}
	return resp.Analysis, nil
}

// encodeMultipart builds the upload body. Encoding happens before the
// first attempt so retries replay identical bytes.
func encodeMultipart(name string, files []File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("projectName", name); err != nil {
		return nil, "", fmt.Errorf("encoding project name: %w", err)
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("encoding %q: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("encoding %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
