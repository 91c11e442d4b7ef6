package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hungerapp/hunger/internal/logging"
	"github.com/hungerapp/hunger/internal/models"
	"github.com/hungerapp/hunger/internal/recommend"
)

type RecommendHandler struct {
	Gateway *recommend.Gateway
}

func (h *RecommendHandler) Recommend(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recommend")

	var req struct {
		Query               string               `json:"query"`
		ConversationHistory []models.ChatMessage `json:"conversationHistory"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid body")
	}

	suggestions, err := h.Gateway.Recommend(ctx, req.Query, req.ConversationHistory)
	if err != nil {
		if errors.Is(err, recommend.ErrInvalidInput) {
			return errorResponse(c, http.StatusBadRequest, "missing or invalid query")
		}
		// Upstream detail stays in the logs, the client gets a fixed line.
		l.Error("recommend_error", "status", 500, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "failed to fetch recommendations")
	}

	return c.JSON(http.StatusOK, map[string]any{"suggestions": suggestions})
}
