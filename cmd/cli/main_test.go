package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"image-jobs/internal/codec"
)

func newFakeAPI(t *testing.T, statuses ...string) *httptest.Server {
	t.Helper()

	var mu sync.Mutex
	queries := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1"})
	})
	mux.HandleFunc("/api/tasks/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		status := statuses[len(statuses)-1]
		if queries < len(statuses) {
			status = statuses[queries]
		}
		queries++
		mu.Unlock()

		resp := map[string]string{"id": "job-1", "status": status}
		switch status {
		case "completed":
			resp["resultKey"] = "results/job-1"
		case "failed":
			resp["error"] = "failed to decode image"
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/download", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, codec.Encode([]byte("processed-bytes")))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProcessWritesResult(t *testing.T) {
	srv := newFakeAPI(t, "pending", "processing", "completed")

	dir := t.TempDir()
	input := filepath.Join(dir, "cat.png")
	if err := os.WriteFile(input, []byte("raw"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := runCLI(t, "--api", srv.URL, "--interval", "1ms", "process", input, "--grayscale")
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}

	got, err := os.ReadFile(filepath.Join(dir, "cat_processed.png"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "processed-bytes" {
		t.Fatalf("result = %q", got)
	}
	if !strings.Contains(out, "Submitted job job-1") {
		t.Fatalf("output = %q", out)
	}
}

func TestProcessReportsJobFailure(t *testing.T) {
	srv := newFakeAPI(t, "failed")

	input := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(input, []byte("raw"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := runCLI(t, "--api", srv.URL, "--interval", "1ms", "process", input)
	if err == nil {
		t.Fatalf("expected an error, output %q", out)
	}
	if !strings.Contains(err.Error(), "failed to decode image") {
		t.Fatalf("error = %v", err)
	}
}

func TestStatusPrintsJob(t *testing.T) {
	srv := newFakeAPI(t, "completed")

	out, err := runCLI(t, "--api", srv.URL, "status", "job-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "completed") || !strings.Contains(out, "results/job-1") {
		t.Fatalf("output = %q", out)
	}
}
