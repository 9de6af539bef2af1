package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/linknote/internal/pkg/response"
)

type RouterDeps struct {
	Notes      *NoteHandler
	Ingest     *IngestHandler
	Categories *CategoryHandler
	Import     *ImportHandler
	// Throttle guards the endpoints that trigger outbound fetching.
	Throttle gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api.GET("/notes", deps.Notes.List)
	api.GET("/notes/kinds/summary", deps.Notes.KindSummary)
	api.PATCH("/notes/batch", deps.Notes.BatchPatch)
	api.GET("/notes/:id", deps.Notes.Get)
	api.PATCH("/notes/:id", deps.Notes.Update)
	api.DELETE("/notes/:id", deps.Notes.Delete)
	api.DELETE("/notes", deps.Notes.DeleteAll)
	api.GET("/search", deps.Notes.Search)
	api.GET("/tags/frequency", deps.Notes.TagFrequency)
	api.POST("/admin/backfill-kinds", deps.Notes.BackfillKinds)

	ingestGroup := api.Group("")
	if deps.Throttle != nil {
		ingestGroup.Use(deps.Throttle)
	}
	ingestGroup.POST("/ingest", deps.Ingest.Submit)
	ingestGroup.POST("/ingest/text", deps.Ingest.SubmitText)
	api.GET("/jobs", deps.Ingest.List)
	api.GET("/jobs/:id", deps.Ingest.Get)
	api.POST("/jobs/:id/retry", deps.Ingest.Retry)

	api.POST("/categories", deps.Categories.Create)
	api.GET("/categories", deps.Categories.List)
	api.PATCH("/categories/:id", deps.Categories.Update)
	api.POST("/categories/:id/merge", deps.Categories.Merge)
	api.DELETE("/categories/:id", deps.Categories.Delete)

	ingestGroup.POST("/import/urls-csv", deps.Import.URLs)
	ingestGroup.POST("/import/chat-csv", deps.Import.Chat)
}
