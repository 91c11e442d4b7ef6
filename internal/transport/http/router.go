package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/hungerapp/hunger/internal/handlers"
	"github.com/hungerapp/hunger/internal/metrics"
	"github.com/hungerapp/hunger/internal/session"
)

type Deps struct {
	Sessions          *session.Manager
	RestaurantHandler *handlers.RestaurantHandler
	CartHandler       *handlers.CartHandler
	OrderHandler      *handlers.OrderHandler
	RecommendHandler  *handlers.RecommendHandler
	SearchHandler     *handlers.SearchHandler
	Metrics           *metrics.Registry
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	v1 := e.Group("/api/v1")

	v1.GET("/restaurants", d.RestaurantHandler.GetRestaurants)
	v1.GET("/restaurants/:id", d.RestaurantHandler.GetRestaurant)
	v1.GET("/search", d.SearchHandler.Search)
	v1.POST("/recommend", d.RecommendHandler.Recommend)

	cart := v1.Group("/cart", d.Sessions.Middleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.PATCH("/items/:id", d.CartHandler.UpdateItem)
	cart.DELETE("/items/:id", d.CartHandler.RemoveItem)
	cart.DELETE("", d.CartHandler.ClearCart)
	cart.POST("/checkout", d.CartHandler.Checkout)
	cart.POST("/resolve", d.CartHandler.Resolve)

	orders := v1.Group("/orders", d.Sessions.Middleware)
	orders.GET("", d.OrderHandler.GetOrders)
	orders.POST("/:id/reorder", d.OrderHandler.Reorder)
}
