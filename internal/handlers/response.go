package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

type errorBody struct {
	Error string `json:"error"`
}

func errorResponse(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorBody{Error: msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
