package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/nknandakumar/tablet-scheduler/internal/pkg/processor"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFieldName = "image"

	maxResponseBytes = 1 << 20
)

var ErrEmptyResponse = errors.New("empty response body")

// StatusError is returned for any non-2xx answer from the analysis endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

type Config struct {
	Endpoint  string
	FieldName string
	// Timeout bounds the whole request; zero means no limit.
	Timeout time.Duration
	// MaxDimension enables downscaling before upload when positive.
	MaxDimension int
}

// Client posts the selected image as multipart/form-data.
type Client struct {
	endpoint     string
	fieldName    string
	maxDimension int
	httpClient   *http.Client
	processor    processor.ImageProcessor
}

func NewClient(cfg Config, imgProcessor processor.ImageProcessor) *Client {
	fieldName := cfg.FieldName
	if fieldName == "" {
		fieldName = DefaultFieldName
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		fieldName:    fieldName,
		maxDimension: cfg.MaxDimension,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		processor:    imgProcessor,
	}
}

func (c *Client) Upload(ctx context.Context, file *entity.SelectedFile) (string, error) {
	body, contentType, err := c.encode(file)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return DecodeResult(respBody)
}

func (c *Client) encode(file *entity.SelectedFile) (*bytes.Buffer, string, error) {
	data, contentType, err := c.payload(file)
	if err != nil {
		return nil, "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(c.fieldName), escapeQuotes(file.Name)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// payload returns the bytes to send, downscaled when configured and possible.
func (c *Client) payload(file *entity.SelectedFile) ([]byte, string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("reading selected file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("reading selected file: %w", err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if c.maxDimension <= 0 || c.processor == nil {
		return data, contentType, nil
	}

	resized, resizedType, err := c.processor.Downscale(bytes.NewReader(data), file.Name, c.maxDimension)
	if err != nil {
		logrus.WithField("file", file.Name).Debugf("sending original, downscale skipped: %v", err)
		return data, contentType, nil
	}
	if resized == nil {
		return data, contentType, nil
	}
	return resized, resizedType, nil
}

// DecodeResult turns a 2xx body into the result text. A JSON string yields its
// value, any other JSON value its compact form. Empty, null or malformed bodies
// are errors.
func DecodeResult(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", ErrEmptyResponse
	}

	var value interface{}
	if err := sonic.Unmarshal(trimmed, &value); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if value == nil {
		// JSON null carries no result
		return "", ErrEmptyResponse
	}
	if s, ok := value.(string); ok {
		return s, nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return compact.String(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
