package httptransport

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"video-generator-service/internal/service"
)

type Handler struct {
	jobSvc *service.JobService
	log    zerolog.Logger
}

func NewHandler(jobSvc *service.JobService, log zerolog.Logger) *Handler {
	return &Handler{jobSvc: jobSvc, log: log}
}

// generateDTO uses pointers so a missing keyword can be told apart from an
// empty one.
type generateDTO struct {
	Keyword         *string `json:"keyword"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

type indexResp struct {
	Service   string            `json:"service"`
	Endpoints map[string]string `json:"endpoints"`
}

// Index godoc
// @Summary Service description
// @Tags meta
// @Produce json
// @Success 200 {object} indexResp
// @Router / [get]
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResp{
		Service: "video generator",
		Endpoints: map[string]string{
			"POST /generate":          "start a video job for a keyword",
			"GET /status/{job_id}":    "job status and progress",
			"GET /download/{job_id}":  "download the finished mp4",
			"GET /swagger/index.html": "API documentation",
		},
	})
}

// Generate godoc
// @Summary Start a video job
// @Description Records a processing job and runs the pipeline in the background. duration_minutes defaults to 12.
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body generateDTO true "keyword and target duration"
// @Success 200 {object} entity.Job
// @Failure 400 {object} apiError
// @Failure 500 {object} apiError
// @Router /generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var dto generateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.Keyword == nil {
		writeErr(w, http.StatusBadRequest, "keyword is required")
		return
	}

	req := service.SubmitRequest{Keyword: *dto.Keyword}
	if dto.DurationMinutes != nil {
		req.DurationMinutes = *dto.DurationMinutes
	}

	job, err := h.jobSvc.Submit(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Str("keyword", req.Keyword).Msg("submit job")
		writeErr(w, http.StatusInternalServerError, "could not start job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// Status godoc
// @Summary Job status
// @Description Unknown ids return status not_found with 200.
// @Tags jobs
// @Produce json
// @Param job_id path string true "job id"
// @Success 200 {object} entity.Job
// @Router /status/{job_id} [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jobSvc.Query(r.Context(), chi.URLParam(r, "job_id")))
}

// Download godoc
// @Summary Download the finished video
// @Tags jobs
// @Produce video/mp4
// @Param job_id path string true "job id"
// @Success 200 {file} file
// @Failure 404 {object} apiError
// @Router /download/{job_id} [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "job_id")
	path, ok := h.jobSvc.Fetch(r.Context(), id)
	if !ok {
		writeErr(w, http.StatusNotFound, "video not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeErr(w, http.StatusNotFound, "video not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeErr(w, http.StatusNotFound, "video not found")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.mp4"`)
	http.ServeContent(w, r, id+".mp4", info.ModTime(), f)
}
