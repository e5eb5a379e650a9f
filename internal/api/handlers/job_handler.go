package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geocover/internal/api/middleware"
	"geocover/internal/domain/entities"
	"geocover/internal/services"
)

type JobHandler struct {
	jobs     *services.JobService
	coverage *services.CoverageService
}

func NewJobHandler(jobs *services.JobService, coverage *services.CoverageService) *JobHandler {
	return &JobHandler{jobs: jobs, coverage: coverage}
}

// jobResponse adds the progress percentage to a job's JSON.
//
// Go Learning Note — Embedded Pointers in JSON:
// Embedding *entities.CoverageJob promotes its fields into the response
// object, so the client sees one flat document with "progress" alongside
// "status", "rows_done" and the rest.
type jobResponse struct {
	*entities.CoverageJob
	Progress float64 `json:"progress"`
}

func newJobResponse(job *entities.CoverageJob) jobResponse {
	return jobResponse{CoverageJob: job, Progress: job.Progress()}
}

// Submit handles POST /v1/jobs
func (h *JobHandler) Submit(c *gin.Context) {
	cfg, err := coverageConfigFromQuery(c, h.coverage.Defaults())
	if err != nil {
		respondError(c, err)
		return
	}
	in, err := readRegion(c)
	if err != nil {
		respondError(c, err)
		return
	}

	job, err := h.jobs.Submit(c.Request.Context(), middleware.GetOwnerID(c), in, cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/v1/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, newJobResponse(job))
}

// List handles GET /v1/jobs
func (h *JobHandler) List(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, newJobResponse(j))
	}
	c.JSON(http.StatusOK, gin.H{"jobs": out})
}

// Get handles GET /v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), middleware.GetOwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newJobResponse(job))
}

// Result handles GET /v1/jobs/:id/result
func (h *JobHandler) Result(c *gin.Context) {
	format := c.Query("format")
	if err := checkFormat(format); err != nil {
		respondError(c, err)
		return
	}
	job, err := h.jobs.Result(c.Request.Context(), middleware.GetOwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	renderCodes(c, job.Result, format, coverageMeta{
		Precision: job.Spec.Precision,
		CacheHit:  job.CacheHit,
		Warning:   job.Warning,
	})
}

// Cancel handles DELETE /v1/jobs/:id
func (h *JobHandler) Cancel(c *gin.Context) {
	job, err := h.jobs.Cancel(c.Request.Context(), middleware.GetOwnerID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newJobResponse(job))
}
