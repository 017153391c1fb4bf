package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"image-jobs/internal/codec"
	"image-jobs/internal/domain"
	"image-jobs/internal/http-server/handler/job/dto"
)

const defaultTimeout = 60 * time.Second

// SubmitOptions selects the transformations applied to a submitted image.
type SubmitOptions struct {
	FileName  string
	Grayscale bool
	Invert    bool
	Blur      bool
	Resize    bool
	Watermark string
}

// Client talks to the image-jobs HTTP API. It satisfies the poller's
// StatusSource and Retriever.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Submit uploads content as a new image job and returns the job id.
func (c *Client) Submit(ctx context.Context, content []byte, opts SubmitOptions) (string, error) {
	fileName := opts.FileName
	if fileName == "" {
		fileName = "upload"
	}

	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	fields := map[string]string{"type": domain.JobTypeImage}
	for name, on := range map[string]bool{
		"grayscale": opts.Grayscale,
		"invert":    opts.Invert,
		"blur":      opts.Blur,
		"resize":    opts.Resize,
	} {
		if on {
			fields[name] = "true"
		}
	}
	if opts.Watermark != "" {
		fields["watermark"] = opts.Watermark
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	part, err := mw.CreateFormFile("content", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("failed to write content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tasks/upload", body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out dto.SubmitResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("submit response carries no id")
	}
	return out.ID, nil
}

// JobStatus reads the current job record. An unknown id yields an error
// wrapping ErrJobNotFound.
func (c *Client) JobStatus(ctx context.Context, id string) (*domain.Job, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var out dto.StatusResponse
	if err := c.doJSON(req, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isTaskNotFound(apiErr) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, err
	}

	status := domain.JobStatus(out.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("unknown job status %q", out.Status)
	}

	return &domain.Job{
		ID:        out.ID,
		Status:    status,
		ResultKey: out.ResultKey,
		Error:     out.Error,
	}, nil
}

// Download fetches the blob at key and decodes it.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrEmptyID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download?key="+url.QueryEscape(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readAPIError(resp)
	}

	encoded, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}

	data, err := codec.Decode(strings.TrimSpace(string(encoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode download: %w", err)
	}
	return data, nil
}

// Upload stores content as the input of taskID through the JSON leg and
// returns the storage key.
func (c *Client) Upload(ctx context.Context, taskID, fileName string, content []byte) (string, error) {
	payload, err := json.Marshal(dto.UploadInputRequest{
		TaskID:      taskID,
		FileName:    fileName,
		FileContent: codec.Encode(content),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out dto.UploadInputResponse
	if err := c.doJSON(req, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// isTaskNotFound tells the handler's unknown-task answer apart from a 404 for
// a route that does not exist.
func isTaskNotFound(apiErr *APIError) bool {
	return apiErr.StatusCode == http.StatusNotFound && apiErr.Message == dto.MsgTaskNotFound
}

func readAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var body dto.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err == nil {
		apiErr.Message = body.Error
		if body.Message != "" {
			apiErr.Message = body.Message
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}

	return apiErr
}
