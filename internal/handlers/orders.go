package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hungerapp/hunger/internal/cartstore"
	"github.com/hungerapp/hunger/internal/logging"
	"github.com/hungerapp/hunger/internal/metrics"
	"github.com/hungerapp/hunger/internal/session"
)

type OrderHandler struct {
	Store   *cartstore.Store
	Metrics *metrics.Registry
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}
	return c.JSON(http.StatusOK, h.Store.PastOrders(sid))
}

func (h *OrderHandler) Reorder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reorder")

	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}

	conflict, err := h.Store.Reorder(sid, c.Param("id"))
	if err != nil {
		if errors.Is(err, cartstore.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "order not found")
		}
		l.Error("reorder_error", "status", 500, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}
	if conflict != nil {
		h.Metrics.CartConflicts.Inc()
		return c.JSON(http.StatusConflict, conflictBody{
			Error:    "cart is locked to another restaurant",
			Conflict: conflict,
		})
	}

	return c.JSON(http.StatusOK, h.Store.Cart(sid))
}
