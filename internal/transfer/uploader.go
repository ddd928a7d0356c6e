package transfer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"nimbus/internal/domain"
)

// HTTPUploader puts encrypted blocks to presigned URLs.
type HTTPUploader struct {
	HTTP *http.Client
}

// NewHTTPUploader returns an uploader backed by the default HTTP client.
func NewHTTPUploader() *HTTPUploader {
	return &HTTPUploader{HTTP: http.DefaultClient}
}

// UploadBlock PUTs body to url. The URL embeds its own authorisation; no
// headers beyond the content type are added.
func (u *HTTPUploader) UploadBlock(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := u.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("block upload failed: %s", resp.Status)
	}
	return nil
}

// Compile-time assertion that HTTPUploader implements domain.BlockUploader.
var _ domain.BlockUploader = (*HTTPUploader)(nil)
