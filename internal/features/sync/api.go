package sync

import (
	"go-bms/internal/common/api"
	"go-bms/internal/config"
	"go-bms/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SyncApi struct {
	controller *SyncController
	hub        *ProgressHub
	config     *config.Config
	logger     *zap.Logger
}

func NewSyncApi(controller *SyncController, hub *ProgressHub, config *config.Config, logger *zap.Logger) api.Route {
	return &SyncApi{
		controller: controller,
		hub:        hub,
		config:     config,
		logger:     logger,
	}
}

// Setup registers all sync routes
func (h *SyncApi) Setup(app *fiber.App) {
	group := app.Group("/api/sync", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/mappings", h.controller.CreateMapping)
	group.Get("/mappings", h.controller.ListMappings)
	group.Get("/mappings/:id", h.controller.GetMapping)
	group.Put("/mappings/:id", h.controller.UpdateMapping)
	group.Delete("/mappings/:id", h.controller.DeleteMapping)

	group.Post("/mappings/:id/run", h.controller.RunSync)
	group.Get("/mappings/:id/logs", h.controller.ListRunLogs)
	group.Get("/mappings/:id/logs/export", h.controller.ExportRunLogs)

	ws := app.Group("/ws/sync", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/:id", websocket.New(ProgressSocket(h.hub, h.logger)))
}
