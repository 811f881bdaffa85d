// internal/api/v2/selections.go
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/selection"
)

// initSelectionRoutes registers the selection and detection endpoints.
func (c *Controller) initSelectionRoutes() {
	c.Group.POST("/:domain/selections", c.CreateSelection)
	c.Group.POST("/:domain/detect", c.Detect)
	c.Group.GET("/:domain/selections/:identity/current", c.GetCurrentSelection)
	c.Group.GET("/:domain/selections/:identity", c.ListSelections)
	c.Group.DELETE("/:domain/selections/:identity/:entityID", c.DeleteSelection)
}

// SelectionRequest is the body of POST /:domain/selections.
type SelectionRequest struct {
	IdentityKey string `json:"identity_key"`
	RawText     string `json:"raw_text"`
	InputType   string `json:"input_type"`
}

// EntityResponse represents a vocabulary entity in API responses.
type EntityResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

func toEntityResponse(e *datastore.Entity) EntityResponse {
	return EntityResponse{
		ID:          e.ID,
		Name:        e.Name,
		Code:        e.Code,
		Description: e.Description,
		Active:      e.Active,
	}
}

func toEntityResponses(entities []datastore.Entity) []EntityResponse {
	out := make([]EntityResponse, 0, len(entities))
	for i := range entities {
		out = append(out, toEntityResponse(&entities[i]))
	}
	return out
}

// SelectionResponse is the envelope for selection results.
type SelectionResponse struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	IdentityKey string           `json:"identity_key"`
	Selected    EntityResponse   `json:"selected"`
	Detected    []EntityResponse `json:"detected"`
	Fallback    bool             `json:"fallback"`
}

// CreateSelection handles POST /api/v2/:domain/selections
func (c *Controller) CreateSelection(ctx echo.Context) error {
	domain := ctx.Param("domain")

	var req SelectionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body")
	}

	input, err := selection.ParseInputType(req.InputType)
	if err != nil {
		return c.HandleError(ctx, err, "Unsupported input type")
	}

	// Callers without a session yet get one assigned here, never inside the
	// engine.
	identity := req.IdentityKey
	if identity == "" {
		identity = uuid.NewString()
	}

	result, err := c.Orchestrator.Select(ctx.Request().Context(), domain, identity, req.RawText, input)
	if err != nil {
		return c.HandleError(ctx, err, "Selection failed")
	}

	return ctx.JSON(http.StatusOK, SelectionResponse{
		Success:     true,
		Message:     "Selection recorded",
		IdentityKey: identity,
		Selected:    toEntityResponse(&result.Primary),
		Detected:    toEntityResponses(result.Detected),
		Fallback:    result.Fallback,
	})
}

// DetectRequest is the body of POST /:domain/detect.
type DetectRequest struct {
	RawText string `json:"raw_text"`
}

// DetectResponse is the envelope for read-only detection results.
type DetectResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Primary  EntityResponse   `json:"primary"`
	Detected []EntityResponse `json:"detected"`
	Fallback bool             `json:"fallback"`
}

// Detect handles POST /api/v2/:domain/detect. It runs the voice pipeline
// without writing anything, for inspecting classifier and merger behavior.
func (c *Controller) Detect(ctx echo.Context) error {
	domain := ctx.Param("domain")

	var req DetectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body")
	}

	result, err := c.Orchestrator.Detect(ctx.Request().Context(), domain, req.RawText)
	if err != nil {
		return c.HandleError(ctx, err, "Detection failed")
	}

	return ctx.JSON(http.StatusOK, DetectResponse{
		Success:  true,
		Message:  "Detection completed",
		Primary:  toEntityResponse(&result.Primary),
		Detected: toEntityResponses(result.Detected),
		Fallback: result.Fallback,
	})
}

// SelectionRecord represents one persisted selection row.
type SelectionRecord struct {
	ID          uint           `json:"id"`
	IdentityKey string         `json:"identity_key"`
	Entity      EntityResponse `json:"entity"`
	InputType   string         `json:"input_type,omitempty"`
	SelectedAt  string         `json:"selected_at"`
}

func toSelectionRecord(s *datastore.Selection) SelectionRecord {
	return SelectionRecord{
		ID:          s.ID,
		IdentityKey: s.IdentityKey,
		Entity:      toEntityResponse(&s.Entity),
		InputType:   s.InputType,
		SelectedAt:  s.SelectedAt.Format(time.RFC3339),
	}
}

// GetCurrentSelection handles GET /api/v2/:domain/selections/:identity/current
func (c *Controller) GetCurrentSelection(ctx echo.Context) error {
	domain := ctx.Param("domain")
	identity := ctx.Param("identity")

	current, err := c.Orchestrator.GetCurrent(ctx.Request().Context(), domain, identity)
	if err != nil {
		return c.HandleError(ctx, err, "No current selection")
	}

	return ctx.JSON(http.StatusOK, toSelectionRecord(current))
}

// ListSelections handles GET /api/v2/:domain/selections/:identity
func (c *Controller) ListSelections(ctx echo.Context) error {
	domain := ctx.Param("domain")
	identity := ctx.Param("identity")

	selections, err := c.Orchestrator.ListAll(ctx.Request().Context(), domain, identity)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list selections")
	}

	records := make([]SelectionRecord, 0, len(selections))
	for i := range selections {
		records = append(records, toSelectionRecord(&selections[i]))
	}
	return ctx.JSON(http.StatusOK, records)
}

// DeleteSelection handles DELETE /api/v2/:domain/selections/:identity/:entityID
func (c *Controller) DeleteSelection(ctx echo.Context) error {
	domain := ctx.Param("domain")
	identity := ctx.Param("identity")

	entityID, err := strconv.ParseUint(ctx.Param("entityID"), 10, 32)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, NewErrorResponse(err, "Invalid entity ID", http.StatusBadRequest))
	}

	if err := c.Orchestrator.Remove(ctx.Request().Context(), domain, identity, uint(entityID)); err != nil {
		return c.HandleError(ctx, err, "Failed to remove selection")
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "Selection removed",
	})
}
