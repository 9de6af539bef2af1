package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/linknote/internal/model"
	"github.com/xxxsen/linknote/internal/pkg/response"
	"github.com/xxxsen/linknote/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type ingestOptionsRequest struct {
	SummaryLength    string `json:"summary_length"`
	AutoCategory     *bool  `json:"auto_category"`
	StoreFullContent *bool  `json:"store_full_content"`
}

func (r ingestOptionsRequest) toOptions() model.IngestOptions {
	opts := model.DefaultIngestOptions()
	if r.SummaryLength != "" {
		opts.SummaryLength = r.SummaryLength
	}
	if r.AutoCategory != nil {
		opts.AutoCategory = *r.AutoCategory
	}
	if r.StoreFullContent != nil {
		opts.StoreFullContent = *r.StoreFullContent
	}
	return opts
}

type submitRequest struct {
	URLs    []string             `json:"urls"`
	Options ingestOptionsRequest `json:"options"`
}

func (h *IngestHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	job, err := h.ingest.Submit(c.Request.Context(), req.URLs, req.Options.toOptions())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}

type submitTextRequest struct {
	Text    string               `json:"text"`
	Options ingestOptionsRequest `json:"options"`
}

func (h *IngestHandler) SubmitText(c *gin.Context) {
	var req submitTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	job, err := h.ingest.SubmitText(c.Request.Context(), req.Text, req.Options.toOptions())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, job)
}

func (h *IngestHandler) Get(c *gin.Context) {
	job, items, err := h.ingest.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job": job, "items": items})
}

func (h *IngestHandler) List(c *gin.Context) {
	jobs, err := h.ingest.List(c.Request.Context(), queryUint(c, "limit", 20), queryUint(c, "offset", 0))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"jobs": jobs})
}

func (h *IngestHandler) Retry(c *gin.Context) {
	job, retried, err := h.ingest.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"job": job, "retried": retried})
}
