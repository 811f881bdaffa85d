// internal/api/v2/vocabulary.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initVocabularyRoutes registers the vocabulary administration endpoints.
func (c *Controller) initVocabularyRoutes() {
	c.Group.GET("/:domain/vocabulary", c.ListVocabulary)
	c.Group.POST("/:domain/vocabulary", c.AddVocabularyEntity)
}

// VocabularyRequest is the body of POST /:domain/vocabulary.
type VocabularyRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ListVocabulary handles GET /api/v2/:domain/vocabulary. By default only
// active entities are returned; pass ?all=true to include retired ones.
func (c *Controller) ListVocabulary(ctx echo.Context) error {
	domain := ctx.Param("domain")
	registry := c.Orchestrator.Vocabulary()

	var err error
	var entities []EntityResponse
	if ctx.QueryParam("all") == "true" {
		all, listErr := registry.ListAll(ctx.Request().Context(), domain)
		err = listErr
		entities = toEntityResponses(all)
	} else {
		active, listErr := registry.ListActive(ctx.Request().Context(), domain)
		err = listErr
		entities = toEntityResponses(active)
	}
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list vocabulary")
	}

	return ctx.JSON(http.StatusOK, entities)
}

// AddVocabularyEntity handles POST /api/v2/:domain/vocabulary
func (c *Controller) AddVocabularyEntity(ctx echo.Context) error {
	domain := ctx.Param("domain")

	var req VocabularyRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body")
	}

	entity, err := c.Orchestrator.Vocabulary().Add(ctx.Request().Context(), domain, req.Name, req.Code, req.Description)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to add vocabulary entity")
	}

	return ctx.JSON(http.StatusCreated, toEntityResponse(entity))
}
