package job

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"image-jobs/internal/codec"
	"image-jobs/internal/domain"
	"image-jobs/internal/http-server/handler/job/dto"
	job_uc "image-jobs/internal/usecase/job"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const (
	maxMemory = 32 << 20
	// room for multipart boundaries and the JSON envelope around the payload
	bodyOverhead = 1 << 20

	contentTypeHeader = "X-Content-Type"
)

type JobHandler struct {
	usecase       jobUsecase
	validate      *validator.Validate
	logger        *zlog.Zerolog
	maxUploadSize int64
}

func NewJobHandler(usecase jobUsecase, logger *zlog.Zerolog, maxUploadSize int64) *JobHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &JobHandler{
		usecase:       usecase,
		validate:      validate,
		logger:        logger,
		maxUploadSize: maxUploadSize,
	}
}

// SubmitTask accepts a multipart submission and answers with the job id.
func (h *JobHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+bodyOverhead)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to parse multipart form")
		if isTooLarge(err) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "File too large", nil)
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	form := dto.SubmitForm{
		Type:      r.FormValue("type"),
		Grayscale: r.FormValue("grayscale") == "true",
		Invert:    r.FormValue("invert") == "true",
		Blur:      r.FormValue("blur") == "true",
		Resize:    r.FormValue("resize") == "true",
		Watermark: strings.TrimSpace(r.FormValue("watermark")),
	}
	if err := h.validate.Struct(form); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err), nil)
		return
	}

	file, header, err := r.FormFile("content")
	if err != nil {
		h.logger.Warn().Err(err).Msg("Content not found in request")
		h.respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error().Err(err).Str("filename", header.Filename).Msg("Failed to read file")
		h.respondError(w, http.StatusInternalServerError, "Failed to read file", err)
		return
	}

	job, err := h.usecase.SubmitJob(ctx, job_uc.SubmitRequest{
		Type:       form.Type,
		FileName:   header.Filename,
		Content:    content,
		Operations: operationsFromForm(form),
	})
	if err != nil {
		h.handleSubmitError(w, err, header.Filename)
		return
	}

	h.logger.Info().
		Str("job_id", job.ID).
		Str("filename", job.FileName).
		Msg("Task submitted")

	h.respondJSON(w, http.StatusOK, dto.SubmitResponse{ID: job.ID})
}

func (h *JobHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "Task ID is required", nil)
		return
	}

	job, err := h.usecase.GetStatus(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, job_uc.ErrJobNotFound):
			h.respondError(w, http.StatusNotFound, dto.MsgTaskNotFound, nil)
		default:
			h.logger.Error().Err(err).Str("job_id", id).Msg("Failed to get status")
			h.respondError(w, http.StatusInternalServerError, "Failed to get status", err)
		}
		return
	}

	response := dto.StatusResponse{ID: job.ID, Status: string(job.Status)}
	switch job.Status {
	case domain.StatusCompleted:
		response.ResultKey = job.ResultKey
	case domain.StatusFailed:
		response.Error = job.Error
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Download returns the blob at ?key= as base64 text.
func (h *JobHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.respondProtocolError(w, http.StatusBadRequest, "key is required")
		return
	}

	result, err := h.usecase.Retrieve(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, job_uc.ErrInvalidRequest):
			h.respondProtocolError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, job_uc.ErrPayloadTooLarge):
			h.respondProtocolError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			h.logger.Error().Err(err).Str("key", key).Msg("Download failed")
			h.respondProtocolError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(contentTypeHeader, result.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, result.Encoded); err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("Failed to write download")
	}
}

// UploadInput stores a base64 encoded input under the task's input key.
func (h *JobHandler) UploadInput(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(codec.EncodedLen(int(h.maxUploadSize)))+bodyOverhead)

	var req dto.UploadInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			h.respondProtocolError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.respondProtocolError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.respondProtocolError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	key, err := h.usecase.StoreInput(r.Context(), job_uc.StoreInputRequest{
		TaskID:   req.TaskID,
		FileName: req.FileName,
		Encoded:  req.FileContent,
	})
	if err != nil {
		switch {
		case errors.Is(err, job_uc.ErrInvalidRequest), errors.Is(err, job_uc.ErrMalformedPayload):
			h.respondProtocolError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, job_uc.ErrPayloadTooLarge):
			h.respondProtocolError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			h.logger.Error().Err(err).Str("task_id", req.TaskID).Msg("Upload failed")
			h.respondProtocolError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusOK, dto.UploadInputResponse{Key: key})
}

func operationsFromForm(form dto.SubmitForm) []domain.OperationParams {
	var operations []domain.OperationParams

	if form.Grayscale {
		operations = append(operations, domain.OperationParams{Type: domain.OpGrayscale})
	}
	if form.Invert {
		operations = append(operations, domain.OperationParams{Type: domain.OpInvert})
	}
	if form.Blur {
		operations = append(operations, domain.OperationParams{
			Type:       domain.OpBlur,
			Parameters: map[string]interface{}{domain.ParamRadius: domain.DefaultBlurRadius},
		})
	}
	if form.Resize {
		operations = append(operations, domain.OperationParams{
			Type:       domain.OpResize,
			Parameters: map[string]interface{}{domain.ParamMaxDimension: domain.DefaultMaxDimension},
		})
	}
	if form.Watermark != "" {
		operations = append(operations, domain.OperationParams{
			Type: domain.OpWatermark,
			Parameters: map[string]interface{}{
				domain.ParamText:     form.Watermark,
				domain.ParamPosition: string(domain.WatermarkBottomRight),
				domain.ParamOpacity:  domain.DefaultWatermarkOpacity,
			},
		})
	}

	return operations
}

func (h *JobHandler) handleSubmitError(w http.ResponseWriter, err error, filename string) {
	switch {
	case errors.Is(err, job_uc.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, job_uc.ErrPayloadTooLarge):
		h.logger.Warn().Str("filename", filename).Msg("File too large")
		h.respondError(w, http.StatusRequestEntityTooLarge, "File too large", nil)
	case errors.Is(err, job_uc.ErrStorageWriteFailed):
		h.respondError(w, http.StatusInternalServerError, "Failed to store file", err)
	case errors.Is(err, job_uc.ErrEnqueueFailed):
		h.respondError(w, http.StatusInternalServerError, "Failed to queue task", err)
	default:
		h.logger.Error().Err(err).Str("filename", filename).Msg("Submit failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to submit task", err)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing or invalid fields: " + strings.Join(fields, ", ")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *JobHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}

// respondProtocolError writes the bare {"error": ...} body used by the
// upload and download legs.
func (h *JobHandler) respondProtocolError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, dto.ErrorResponse{Error: message})
}
