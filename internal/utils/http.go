package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// ErrResponseTooLarge is returned when a successful response body exceeds
// maxResponseBodySize. The body is never returned cut short.
var ErrResponseTooLarge = fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)

// HeaderOption is one extra request header. Providers use it for their
// authentication scheme (Bearer, x-api-key, x-goog-api-key, Token) and
// version pins.
type HeaderOption struct {
	Key   string
	Value string
}

// BearerAuth returns the Authorization header for bearer-token APIs, or no
// header when apiKey is empty.
func BearerAuth(apiKey string) []HeaderOption {
	if apiKey == "" {
		return nil
	}
	return []HeaderOption{{Key: "Authorization", Value: "Bearer " + apiKey}}
}

// StatusError is returned for non-2xx responses. Body is capped at
// maxResponseBodySize.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(e.Body, DefaultMaxStringLength))
}

// DoPostSync marshals body as JSON, POSTs it to url and returns the raw
// response body. Decoding is left to the caller so that provider adapters can
// inspect the payload before mapping it.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - HTTP errors (connection failures) are wrapped and returned
//   - Non-2xx responses return a *StatusError carrying the body
//   - Response body close errors are logged but don't override primary errors
func DoPostSync(ctx context.Context, client *http.Client, url string, body any, headers ...HeaderOption) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}
	return DoPostRaw(ctx, client, url, "application/json", jsonBody, headers...)
}

// DoPostRaw POSTs an already encoded body with the given content type and
// returns the raw response body.
func DoPostRaw(ctx context.Context, client *http.Client, url string, contentType string, body []byte, headers ...HeaderOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return do(client, req, headers)
}

// MultipartFile is the file field of a multipart upload.
type MultipartFile struct {
	Field    string
	Filename string
	Data     []byte
}

// DoPostMultipart POSTs a multipart/form-data body made of the given text
// fields and one file, and returns the raw response body. Empty field values
// are skipped.
func DoPostMultipart(ctx context.Context, client *http.Client, url string, fields map[string]string, file MultipartFile, headers ...HeaderOption) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("error writing multipart field %q: %w", name, err)
		}
	}

	part, err := writer.CreateFormFile(file.Field, file.Filename)
	if err != nil {
		return nil, fmt.Errorf("error creating multipart file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("error writing multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("error closing multipart body: %w", err)
	}

	return DoPostRaw(ctx, client, url, writer.FormDataContentType(), body.Bytes(), headers...)
}

// DoGet performs a GET request and returns the raw response body.
func DoGet(ctx context.Context, client *http.Client, url string, headers ...HeaderOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	return do(client, req, headers)
}

func do(client *http.Client, req *http.Request, headers []HeaderOption) ([]byte, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	for _, header := range headers {
		req.Header.Set(header.Key, header.Value)
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	oversized := int64(len(respBody)) > maxResponseBodySize
	if oversized {
		respBody = respBody[:maxResponseBodySize]
	}

	slog.Debug("http response received",
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
		slog.Int("status", res.StatusCode),
		slog.Int("body_size", len(respBody)),
		slog.Duration("duration", time.Since(requestStart)),
	)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(respBody)}
	}
	if oversized {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), ErrResponseTooLarge)
	}

	return respBody, nil
}

// CloseWithLog closes c and logs a warning on failure. It is used in deferred
// cleanup where a close error must not replace the function's primary error.
func CloseWithLog(c io.Closer) {
	if closeErr := c.Close(); closeErr != nil {
		slog.Warn("failed to close response body", "error", closeErr.Error())
	}
}
