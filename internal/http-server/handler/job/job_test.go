package job_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"image-jobs/internal/codec"
	"image-jobs/internal/domain"
	"image-jobs/internal/http-server/handler/job"
	"image-jobs/internal/http-server/handler/job/dto"
	"image-jobs/internal/http-server/router"
	repoJob "image-jobs/internal/repository/job"
	job_uc "image-jobs/internal/usecase/job"

	"github.com/rs/zerolog"
)

const testMaxUpload = 1 << 20

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memBackend struct {
	mu      sync.Mutex
	jobs    map[string]*domain.Job
	objects map[string][]byte
	puts    int
	tasks   []*domain.ProcessingTask
}

func newMemBackend() *memBackend {
	return &memBackend{jobs: make(map[string]*domain.Job), objects: make(map[string][]byte)}
}

func (m *memBackend) Create(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memBackend) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repoJob.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memBackend) MarkFailed(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return repoJob.ErrJobNotFound
	}
	j.Status, j.Error = domain.StatusFailed, reason
	return nil
}

func (m *memBackend) PutObject(_ context.Context, key string, data []byte, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBackend) GetObject(_ context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, 0, repoJob.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (m *memBackend) Publish(_ context.Context, task *domain.ProcessingTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memBackend) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func newServer(t *testing.T, backend *memBackend) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	uc := job_uc.NewJobUsecase(backend, backend, backend, &logger, testMaxUpload)
	h := job.NewJobHandler(uc, &logger, testMaxUpload)
	srv := httptest.NewServer(router.SetupRouter(&router.Handler{JobHandler: h}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var body dto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestUploadInputMissingFileNameWritesNothing(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	srv := newServer(t, backend)

	resp := postJSON(t, srv.URL+"/api/upload", map[string]string{
		"taskId":      "task-1",
		"fileContent": codec.Encode(pngHeader),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body := decodeError(t, resp); !strings.Contains(body.Error, "fileName") {
		t.Fatalf("error = %q, want it to name fileName", body.Error)
	}
	if backend.writes() != 0 {
		t.Fatalf("writes = %d, want 0", backend.writes())
	}
}

func TestUploadInputStoresDecodedBytes(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	srv := newServer(t, backend)

	resp := postJSON(t, srv.URL+"/api/upload", dto.UploadInputRequest{
		TaskID:      "task-2",
		FileName:    "cat.png",
		FileContent: codec.Encode(pngHeader),
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body dto.UploadInputResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Key != "uploads/task-2" {
		t.Fatalf("key = %q", body.Key)
	}
	if !bytes.Equal(backend.objects[body.Key], pngHeader) || backend.writes() != 1 {
		t.Fatalf("stored %x in %d writes", backend.objects[body.Key], backend.writes())
	}
}

func TestUploadInputMalformedPayload(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	srv := newServer(t, backend)

	resp := postJSON(t, srv.URL+"/api/upload", dto.UploadInputRequest{
		TaskID: "task-3", FileName: "cat.png", FileContent: "%%%not-base64",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest || backend.writes() != 0 {
		t.Fatalf("status = %d, writes = %d", resp.StatusCode, backend.writes())
	}
}

func TestDownloadMissingKey(t *testing.T) {
	t.Parallel()

	srv := newServer(t, newMemBackend())

	resp, err := http.Get(srv.URL + "/api/download")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDownloadUnknownKeyIs500(t *testing.T) {
	t.Parallel()

	srv := newServer(t, newMemBackend())

	resp, err := http.Get(srv.URL + "/api/download?key=results/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body := decodeError(t, resp); !strings.Contains(body.Error, "not found") {
		t.Fatalf("error = %q, want backend diagnostic", body.Error)
	}
}

func TestDownloadReturnsEncodedBlob(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	backend.objects["results/job-1"] = pngHeader
	srv := newServer(t, backend)

	resp, err := http.Get(srv.URL + "/api/download?key=results/job-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type"); got != "image/png" {
		t.Fatalf("content type hint = %q", got)
	}
	raw, _ := io.ReadAll(resp.Body)
	data, err := codec.Decode(string(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Fatalf("downloaded bytes differ")
	}
}

func submit(t *testing.T, url string, fields map[string]string, content []byte) *http.Response {
	t.Helper()

	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if content != nil {
		fw, err := mw.CreateFormFile("content", "cat.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	return resp
}

func TestSubmitTaskAndQueryStatus(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	srv := newServer(t, backend)

	resp := submit(t, srv.URL+"/api/tasks/upload", map[string]string{
		"type":      "image",
		"grayscale": "true",
		"resize":    "true",
		"watermark": "hello",
	}, pngHeader)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var created dto.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil || created.ID == "" {
		t.Fatalf("decode: %v, id %q", err, created.ID)
	}

	if len(backend.tasks) != 1 || len(backend.tasks[0].Operations) != 3 {
		t.Fatalf("published tasks = %+v", backend.tasks)
	}

	statusResp, err := http.Get(srv.URL + "/api/tasks/" + created.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer statusResp.Body.Close()

	var status dto.StatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != string(domain.StatusPending) || status.ResultKey != "" || status.Error != "" {
		t.Fatalf("status = %+v", status)
	}
}

func TestSubmitTaskValidation(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	srv := newServer(t, backend)

	for name, tc := range map[string]struct {
		fields  map[string]string
		content []byte
	}{
		"missing type":    {fields: map[string]string{}, content: pngHeader},
		"unknown type":    {fields: map[string]string{"type": "video"}, content: pngHeader},
		"missing content": {fields: map[string]string{"type": "image"}},
	} {
		resp := submit(t, srv.URL+"/api/tasks/upload", tc.fields, tc.content)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
	if backend.writes() != 0 {
		t.Fatalf("writes = %d, want 0", backend.writes())
	}
}

func TestGetTaskUnknown(t *testing.T) {
	t.Parallel()

	srv := newServer(t, newMemBackend())

	resp, err := http.Get(srv.URL + "/api/tasks/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetTaskFailedCarriesError(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	backend.jobs["j1"] = &domain.Job{ID: "j1", Status: domain.StatusFailed, Error: "failed to decode image"}
	srv := newServer(t, backend)

	resp, err := http.Get(srv.URL + "/api/tasks/j1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var status dto.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Status != "failed" || status.Error != "failed to decode image" || status.ResultKey != "" {
		t.Fatalf("status = %+v", status)
	}
}
