package job_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"image-jobs/internal/domain"
	repoJob "image-jobs/internal/repository/job"
	"image-jobs/internal/usecase/job"

	"github.com/rs/zerolog"
)

type storedObject struct {
	data        []byte
	contentType string
	fileName    string
}

type memFiles struct {
	mu      sync.Mutex
	objects map[string]storedObject
	puts    int
	putErr  error
}

func newMemFiles() *memFiles {
	return &memFiles{objects: make(map[string]storedObject)}
}

func (m *memFiles) PutObject(_ context.Context, key string, data []byte, contentType, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.objects[key] = storedObject{data: append([]byte(nil), data...), contentType: contentType, fileName: fileName}
	return nil
}

func (m *memFiles) GetObject(_ context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", repoJob.ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), int64(len(obj.data)), nil
}

func (m *memFiles) writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

type memJobs struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	createErr error
	failed    map[string]string
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: make(map[string]*domain.Job), failed: make(map[string]string)}
}

func (m *memJobs) Create(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.jobs[j.ID]; ok {
		return repoJob.ErrDuplicateJob
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, repoJob.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) MarkFailed(_ context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return repoJob.ErrJobNotFound
	}
	if !j.Status.CanTransitionTo(domain.StatusFailed) {
		return repoJob.ErrInvalidTransition
	}
	j.Status = domain.StatusFailed
	j.Error = reason
	m.failed[id] = reason
	return nil
}

type memProducer struct {
	mu    sync.Mutex
	tasks []*domain.ProcessingTask
	err   error
}

func (p *memProducer) Publish(_ context.Context, task *domain.ProcessingTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

var errBackend = errors.New("backend unavailable")

const testMaxPayload = 1 << 20

func newUsecase(files *memFiles, jobs *memJobs, producer *memProducer) *job.JobUsecase {
	logger := zerolog.Nop()
	return job.NewJobUsecase(jobs, files, producer, &logger, testMaxPayload)
}
