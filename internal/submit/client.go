package submit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/zombor/invoice-review/internal/intake"
)

// FieldName is the multipart field the OCR service reads the image from
const FieldName = "file"

// DefaultBaseURL is where a locally run OCR service listens
const DefaultBaseURL = "http://127.0.0.1:8000"

// UploadPath is appended to the service base URL
const UploadPath = "/upload/"

// Response is the structured result of a successful upload
type Response struct {
	RawCSV         string
	AnnotatedImage []byte
}

// Submitter sends one invoice to the OCR service
type Submitter interface {
	Submit(ctx context.Context, file *intake.File) (*Response, error)
}

// Client implements Submitter over HTTP
type Client struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewClient creates a Client for the service at baseURL. A zero timeout
// leaves the call unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithHTTP(baseURL, timeout, &http.Client{})
}

// NewClientWithHTTP creates a Client with a custom http.Client for testing
func NewClientWithHTTP(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		endpoint: strings.TrimSuffix(baseURL, "/") + UploadPath,
		timeout:  timeout,
		client:   httpClient,
	}
}

// Endpoint returns the full upload URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// uploadResponse mirrors the service's JSON body. Pointers tell a missing
// key apart from an empty one.
type uploadResponse struct {
	CSVData              *string `json:"csv_data"`
	AnnotatedImageBase64 *string `json:"annotated_image_base64"`
}

// Submit posts the file as a single multipart part and classifies the outcome.
// It makes exactly one request and never retries; every failure is a *Error.
func (c *Client) Submit(ctx context.Context, file *intake.File) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return nil, fmt.Errorf("encoding upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		if c.timedOut(err) {
			return nil, timeoutError(c.endpoint, c.timeout, err)
		}
		return nil, unreachableError(c.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		slog.Warn("OCR service returned an error",
			"status", resp.StatusCode,
			"body", string(text),
			"filename", file.Name,
		)
		return nil, httpError(resp.StatusCode, strings.TrimSpace(string(text)))
	}

	result, err := decodeResponse(resp.Body)
	if err != nil {
		if c.timedOut(err) {
			return nil, timeoutError(c.endpoint, c.timeout, err)
		}
		return nil, malformedError(err)
	}
	return result, nil
}

// encodeMultipart writes file as the only part. The part carries the file's
// declared MIME type; the request Content-Type carries the boundary.
func encodeMultipart(file *intake.File) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldName, escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("creating part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("writing part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func decodeResponse(r io.Reader) (*Response, error) {
	var body uploadResponse
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if body.CSVData == nil {
		return nil, errors.New("response is missing csv_data")
	}
	if body.AnnotatedImageBase64 == nil {
		return nil, errors.New("response is missing annotated_image_base64")
	}

	image, err := base64.StdEncoding.DecodeString(*body.AnnotatedImageBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding annotated image: %w", err)
	}

	return &Response{
		RawCSV:         *body.CSVData,
		AnnotatedImage: image,
	}, nil
}

// timedOut reports whether err came from the client's own deadline. OS-level
// dial timeouts stay Unreachable.
func (c *Client) timedOut(err error) bool {
	return c.timeout > 0 && errors.Is(err, context.DeadlineExceeded)
}
