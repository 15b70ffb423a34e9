package api

import "github.com/gofiber/fiber/v2"

// Route is implemented by every feature's API module; Setup registers
// its routes on the shared Fiber app.
type Route interface {
	Setup(app *fiber.App)
}
