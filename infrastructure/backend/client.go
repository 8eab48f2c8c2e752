// Package backend talks to the external log analysis service.
package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const uploadEndpoint = "/api/logs/upload"

// Client posts log files as multipart forms. Requests are throttled so a
// burst of dropped files does not flood the backend.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(log *slog.Logger, baseURL string, timeout time.Duration, requestsPerSecond float64, burst int) *Client {
	return &Client{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1)),
	}
}

// UploadLogFile streams content in the "file" form field.
func (c *Client) UploadLogFile(ctx context.Context, name string, content io.Reader) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, contentType := multipartBody(name, content)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadEndpoint, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", contentType)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("backend returned %d", response.StatusCode)
	}
	c.log.Debug("Log file sent to backend", "name", name, "status", response.StatusCode)
	return nil
}

// multipartBody writes the form in a goroutine so the file is never held
// in memory.
func multipartBody(name string, content io.Reader) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err = io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()
	return pr, writer.FormDataContentType()
}
