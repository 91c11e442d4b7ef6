package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hungerapp/hunger/internal/cartstore"
	"github.com/hungerapp/hunger/internal/catalog"
	"github.com/hungerapp/hunger/internal/events"
	"github.com/hungerapp/hunger/internal/logging"
	"github.com/hungerapp/hunger/internal/metrics"
	"github.com/hungerapp/hunger/internal/session"
)

type CartHandler struct {
	Store    *cartstore.Store
	Catalog  *catalog.Service
	Producer *events.Producer
	Metrics  *metrics.Registry
}

type conflictBody struct {
	Error    string              `json:"error"`
	Conflict *cartstore.Conflict `json:"conflict"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}
	return c.JSON(http.StatusOK, h.Store.Cart(sid))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart.item")

	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}

	var req struct {
		ItemID string `json:"itemId"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid body")
	}
	if req.ItemID == "" {
		return errorResponse(c, http.StatusBadRequest, "itemId required")
	}

	line, err := h.Catalog.Line(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return errorResponse(c, http.StatusBadRequest, "unknown menu item")
		}
		l.Error("add_cart_item_error", "status", 500, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}

	conflict, err := h.Store.AddItem(sid, *line)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid item")
	}
	if conflict != nil {
		h.Metrics.CartConflicts.Inc()
		l.Info("cart_conflict", "current", conflict.Current.ID, "attempted", conflict.Attempted.ID)
		return c.JSON(http.StatusConflict, conflictBody{
			Error:    "cart is locked to another restaurant",
			Conflict: conflict,
		})
	}

	return c.JSON(http.StatusCreated, h.Store.Cart(sid))
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid body")
	}

	if err := h.Store.SetQuantity(sid, c.Param("id"), req.Quantity); err != nil {
		if errors.Is(err, cartstore.ErrNotFound) {
			return errorResponse(c, http.StatusNotFound, "item not in cart")
		}
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, h.Store.Cart(sid))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}
	h.Store.RemoveItem(sid, c.Param("id"))
	return c.JSON(http.StatusOK, h.Store.Cart(sid))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}
	h.Store.Clear(sid)
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")

	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}

	order, err := h.Store.CompleteOrder(sid)
	if err != nil {
		if errors.Is(err, cartstore.ErrEmptyCart) {
			return errorResponse(c, http.StatusConflict, "cart is empty")
		}
		l.Error("checkout_error", "status", 500, "error", err)
		return errorResponse(c, http.StatusInternalServerError, "internal error")
	}

	h.Metrics.OrdersCompleted.Inc()
	h.Producer.OrderCompleted(ctx, sid, *order)
	l.Info("order completed", "order_id", order.ID, "total", order.Total)
	return c.JSON(http.StatusOK, order)
}

// Resolve settles a parked cross-restaurant conflict from AddItem or
// Reorder: replace=true empties the cart and applies the pending action.
func (h *CartHandler) Resolve(c echo.Context) error {
	sid := session.FromContext(c)
	if sid == "" {
		return errorResponse(c, http.StatusUnauthorized, "no session")
	}

	var req struct {
		Token   string `json:"token"`
		Replace bool   `json:"replace"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid body")
	}
	if req.Token == "" {
		return errorResponse(c, http.StatusBadRequest, "token required")
	}

	if err := h.Store.Resolve(sid, req.Token, req.Replace); err != nil {
		return errorResponse(c, http.StatusNotFound, "unknown or expired resolution token")
	}
	return c.JSON(http.StatusOK, h.Store.Cart(sid))
}
