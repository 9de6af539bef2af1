package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/linknote/internal/pkg/response"
	"github.com/xxxsen/linknote/internal/service"
)

type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, category)
}

func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"categories": categories})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Name == "" && req.Color == "" {
		response.Error(c, http.StatusBadRequest, "name or color required")
		return
	}
	category, err := h.categories.Update(c.Request.Context(), c.Param("id"), req.Name, req.Color)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, category)
}

type mergeRequest struct {
	Into string `json:"into"`
}

func (h *CategoryHandler) Merge(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	target, err := h.categories.Merge(c.Request.Context(), c.Param("id"), req.Into)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, target)
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
