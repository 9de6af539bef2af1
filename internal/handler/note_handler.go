package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/linknote/internal/pkg/response"
	"github.com/xxxsen/linknote/internal/service"
)

type NoteHandler struct {
	notes *service.NoteService
}

func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

func (h *NoteHandler) List(c *gin.Context) {
	params := service.ListNotesParams{
		Query:     c.Query("q"),
		Scope:     c.Query("scope"),
		Category:  c.Query("category"),
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
		Tag:       c.Query("tag"),
		FromCtime: queryInt64(c, "from"),
		ToCtime:   queryInt64(c, "to"),
		Sort:      c.Query("sort"),
		Limit:     queryUint(c, "limit", 20),
		Offset:    queryUint(c, "offset", 0),
	}
	notes, total, err := h.notes.List(c.Request.Context(), params)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"notes":  notes,
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.notes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

type updateNoteRequest struct {
	Title        *string   `json:"title"`
	SummaryShort *string   `json:"summary_short"`
	SummaryLong  *string   `json:"summary_long"`
	ContentFull  *string   `json:"content_full"`
	Category     *string   `json:"category"`
	Tags         *[]string `json:"tags"`
	Hashtags     *[]string `json:"hashtags"`
}

func (h *NoteHandler) Update(c *gin.Context) {
	var req updateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	note, err := h.notes.Update(c.Request.Context(), c.Param("id"), service.UpdateNoteParams{
		Title:        req.Title,
		SummaryShort: req.SummaryShort,
		SummaryLong:  req.SummaryLong,
		ContentFull:  req.ContentFull,
		Category:     req.Category,
		Tags:         req.Tags,
		Hashtags:     req.Hashtags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, note)
}

type batchPatchRequest struct {
	NoteIDs    []string `json:"note_ids"`
	Category   *string  `json:"category"`
	AddTags    []string `json:"add_tags"`
	RemoveTags []string `json:"remove_tags"`
}

func (h *NoteHandler) BatchPatch(c *gin.Context) {
	var req batchPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Category == nil && len(req.AddTags) == 0 && len(req.RemoveTags) == 0 {
		response.Error(c, http.StatusBadRequest, "missing patch fields")
		return
	}
	result, err := h.notes.BatchPatch(c.Request.Context(), req.NoteIDs, service.BatchPatchParams{
		Category:   req.Category,
		AddTags:    req.AddTags,
		RemoveTags: req.RemoveTags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *NoteHandler) DeleteAll(c *gin.Context) {
	if c.Query("confirm") != "true" {
		response.Error(c, http.StatusBadRequest, "confirm=true required")
		return
	}
	removed, err := h.notes.DeleteAll(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": removed})
}

func (h *NoteHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, http.StatusBadRequest, "q required")
		return
	}
	hits, err := h.notes.Search(c.Request.Context(), query, c.Query("scope"), queryUint(c, "limit", 20))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"hits": hits, "total": len(hits)})
}

func (h *NoteHandler) KindSummary(c *gin.Context) {
	counts, total, err := h.notes.KindCounts(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"kinds": counts, "note_total": total})
}

func (h *NoteHandler) TagFrequency(c *gin.Context) {
	tags, err := h.notes.TagFrequency(c.Request.Context(), int(queryUint(c, "limit", 50)))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"tags": tags})
}

// BackfillKinds triggers one synchronous classification round for legacy
// notes, in addition to the scheduled runs. max_rows keeps the request-bound
// run from walking the whole table.
func (h *NoteHandler) BackfillKinds(c *gin.Context) {
	scanned, updated, err := h.notes.BackfillKinds(
		c.Request.Context(),
		queryUint(c, "batch_size", 200),
		queryUint(c, "max_rows", 1000),
	)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"scanned": scanned, "updated": updated})
}
