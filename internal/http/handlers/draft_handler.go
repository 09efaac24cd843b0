// README: AI itinerary draft handler; optional, 503 when no model configured.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"charter/internal/ai"
)

type DraftHandler struct {
	provider *ai.GeminiProvider
}

func NewDraftHandler(provider *ai.GeminiProvider) *DraftHandler {
	return &DraftHandler{provider: provider}
}

type draftReq struct {
	Message string `json:"message"`
}

func (h *DraftHandler) Draft(c *gin.Context) {
	if h.provider == nil {
		writeError(c, http.StatusServiceUnavailable, "itinerary drafting is not configured")
		return
	}
	var req draftReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		writeError(c, http.StatusBadRequest, "message is required")
		return
	}
	result, err := h.provider.DraftItinerary(c.Request.Context(), req.Message, time.Now())
	if err != nil {
		writeError(c, http.StatusBadGateway, "draft generation failed")
		return
	}
	writeJSON(c, http.StatusOK, result)
}
