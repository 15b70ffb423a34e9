package sync

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

type SyncController struct {
	Service SyncService
}

func NewSyncController(service SyncService) *SyncController {
	return &SyncController{
		Service: service,
	}
}

// CreateMapping godoc
func (ctrl *SyncController) CreateMapping(c *fiber.Ctx) error {
	var mapping SyncMapping
	if err := c.BodyParser(&mapping); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.CreateMapping(c.Context(), &mapping); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Sync mapping created successfully",
		"data":    mapping,
	})
}

// ListMappings godoc
func (ctrl *SyncController) ListMappings(c *fiber.Ctx) error {
	mappings, err := ctrl.Service.ListMappings(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": mappings,
	})
}

// GetMapping godoc
func (ctrl *SyncController) GetMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	mapping, err := ctrl.Service.GetMapping(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(mapping)
}

// UpdateMapping godoc
func (ctrl *SyncController) UpdateMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	var updates map[string]interface{}
	if err := c.BodyParser(&updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := ctrl.Service.UpdateMapping(c.Context(), id, updates); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sync mapping updated successfully",
	})
}

// DeleteMapping godoc
func (ctrl *SyncController) DeleteMapping(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := ctrl.Service.DeleteMapping(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sync mapping deleted successfully",
	})
}

// RunSync godoc
func (ctrl *SyncController) RunSync(c *fiber.Ctx) error {
	id := c.Params("id")

	result, err := ctrl.Service.RunSync(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sync run finished",
		"data":    result,
	})
}

// ListRunLogs godoc
func (ctrl *SyncController) ListRunLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	limit := int64(c.QueryInt("limit", 50))

	logs, err := ctrl.Service.ListRunLogs(c.Context(), id, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": logs,
	})
}

// ExportRunLogs godoc
func (ctrl *SyncController) ExportRunLogs(c *fiber.Ctx) error {
	id := c.Params("id")
	limit := int64(c.QueryInt("limit", 200))

	file, err := ctrl.Service.ExportRunLogs(c.Context(), id, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	filename := fmt.Sprintf("sync-runs-%s-%s.xlsx", id, time.Now().Format("20060102"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
