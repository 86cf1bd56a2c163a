package controllers

import (
	"mathboard/backend/services"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	Service *services.ProgressService
}

func NewHealthController(svc *services.ProgressService) *HealthController {
	return &HealthController{Service: svc}
}

// Health godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /health [get]
func (hc *HealthController) Health(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"status": "ok",
		"today":  hc.Service.Today(),
	})
}
