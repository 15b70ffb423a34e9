package connection

import (
	"github.com/gofiber/fiber/v2"
)

type ConnectionController struct {
	Service ConnectionService
}

func NewConnectionController(service ConnectionService) *ConnectionController {
	return &ConnectionController{
		Service: service,
	}
}

// CreateConnection godoc
func (ctrl *ConnectionController) CreateConnection(c *fiber.Ctx) error {
	var conn IntegrationConnection
	if err := c.BodyParser(&conn); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateConnection(c.Context(), &conn); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Connection created successfully",
		"data":    conn,
	})
}

// ListConnections godoc
func (ctrl *ConnectionController) ListConnections(c *fiber.Ctx) error {
	conns, err := ctrl.Service.ListConnections(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": conns,
	})
}

// GetConnection godoc
func (ctrl *ConnectionController) GetConnection(c *fiber.Ctx) error {
	id := c.Params("id")

	conn, err := ctrl.Service.GetConnection(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(conn)
}

// UpdateConnection godoc
func (ctrl *ConnectionController) UpdateConnection(c *fiber.Ctx) error {
	id := c.Params("id")

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.UpdateConnection(c.Context(), id, updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Connection updated successfully",
	})
}

// DeleteConnection godoc
func (ctrl *ConnectionController) DeleteConnection(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.DeleteConnection(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Connection deleted successfully",
	})
}

// GetTokenStatus godoc
func (ctrl *ConnectionController) GetTokenStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	status, err := ctrl.Service.TokenStatus(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(status)
}
