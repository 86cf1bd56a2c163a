package controllers

import (
	"errors"
	"log/slog"

	"mathboard/backend/middleware"
	"mathboard/backend/services"
	"mathboard/backend/store"
	"mathboard/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Service *services.ProgressService
	Logger  *slog.Logger
}

func NewProgressController(svc *services.ProgressService, logger *slog.Logger) *ProgressController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressController{Service: svc, Logger: logger}
}

type CompletionRequest struct {
	XP *int64 `json:"xp" example:"25" minimum:"0" maximum:"100000"`
}

// GetProgress godoc
// @Summary Get user progress
// @Description Returns the caller's XP, level and streak for today
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ProfileSummary}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	summary, err := pc.Service.GetProfile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return pc.fail(c, "Get progress failed", err)
	}
	return utils.Success(c, fiber.StatusOK, summary)
}

// RecordCompletion godoc
// @Summary Record a qualifying action
// @Description Awards XP and advances the daily streak
// @Tags progress
// @Accept json
// @Produce json
// @Param request body CompletionRequest true "XP to award"
// @Success 201 {object} utils.SuccessResponse{data=services.CompletionResult}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress/completions [post]
func (pc *ProgressController) RecordCompletion(c *fiber.Ctx) error {
	var req CompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if req.XP == nil {
		return utils.ValidationError(c, map[string]string{"xp": "is required"})
	}

	result, err := pc.Service.RecordCompletion(c.UserContext(), middleware.UserID(c), *req.XP)
	if err != nil {
		return pc.fail(c, "Record completion failed", err)
	}
	return utils.Created(c, result)
}

func (pc *ProgressController) fail(c *fiber.Ctx, msg string, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidXP):
		return utils.ValidationError(c, map[string]string{"xp": services.ErrInvalidXP.Error()})
	case errors.Is(err, services.ErrXPTooLarge):
		return utils.ValidationError(c, map[string]string{"xp": services.ErrXPTooLarge.Error()})
	case errors.Is(err, services.ErrMissingUser):
		return utils.Unauthorized(c, "Unauthorized")
	case errors.Is(err, store.ErrConflict):
		return utils.Conflict(c, "Progress was updated concurrently, try again")
	}

	pc.Logger.Error(msg,
		slog.String("type", "http"),
		slog.String("user_id", middleware.UserID(c)),
		slog.Any("error", err),
	)
	return utils.InternalServerError(c, "Internal server error")
}
