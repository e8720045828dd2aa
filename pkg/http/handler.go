package http

import "github.com/labstack/echo/v4"

// Handler is anything that can mount routes on the Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
