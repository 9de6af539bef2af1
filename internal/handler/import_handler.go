package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/linknote/internal/pkg/response"
	"github.com/xxxsen/linknote/internal/service"
)

const maxUploadBytes = 16 << 20

type ImportHandler struct {
	imports *service.ImportService
}

func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

func openCSVUpload(c *gin.Context) (io.ReadCloser, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file required")
		return nil, false
	}
	if !strings.HasSuffix(strings.ToLower(file.Filename), ".csv") {
		response.Error(c, http.StatusBadRequest, "only csv uploads are accepted")
		return nil, false
	}
	if file.Size > maxUploadBytes {
		response.Error(c, http.StatusBadRequest, "file too large")
		return nil, false
	}
	reader, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "read upload failed")
		return nil, false
	}
	return reader, true
}

// URLs ingests a CSV of links as a background job.
func (h *ImportHandler) URLs(c *gin.Context) {
	reader, ok := openCSVUpload(c)
	if !ok {
		return
	}
	defer reader.Close()

	var opts ingestOptionsRequest
	opts.SummaryLength = c.Query("summary_length")
	if v := c.Query("auto_category"); v != "" {
		parsed := v == "true" || v == "1"
		opts.AutoCategory = &parsed
	}
	if v := c.Query("store_full_content"); v != "" {
		parsed := v == "true" || v == "1"
		opts.StoreFullContent = &parsed
	}
	skipDuplicates := c.DefaultQuery("skip_duplicates", "true") != "false"

	report, err := h.imports.ImportURLs(c.Request.Context(), reader, skipDuplicates, opts.toOptions())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}

// Chat imports a messenger transcript CSV as ready-made notes.
func (h *ImportHandler) Chat(c *gin.Context) {
	reader, ok := openCSVUpload(c)
	if !ok {
		return
	}
	defer reader.Close()

	report, err := h.imports.ImportChat(c.Request.Context(), reader, c.Query("category"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
