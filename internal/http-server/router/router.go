package router

import (
	"net/http"
	"strings"

	"image-jobs/internal/http-server/handler/job"
	"image-jobs/internal/http-server/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	JobHandler *job.JobHandler
}

func SetupRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RecoveryMiddleware)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" || strings.HasSuffix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}
			middleware.LoggingMiddleware(next).ServeHTTP(w, r)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/upload", h.JobHandler.SubmitTask)
			r.Get("/{id}", h.JobHandler.GetTask)
		})

		r.Post("/upload", h.JobHandler.UploadInput)
		r.Get("/download", h.JobHandler.Download)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
	})

	return r
}
