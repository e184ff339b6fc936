package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peer-eval-api/internal/middleware"
	"github.com/noah-isme/peer-eval-api/internal/service"
	"github.com/noah-isme/peer-eval-api/internal/utils"
)

// GradingHandler exposes grade publication and score lookups.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints under /assignments.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:id/grades/publish", middleware.RequireTeacher(), h.publish)
	router.Get("/:id/grades", middleware.RequireTeacher(), h.grades)
	router.Get("/:id/my-score", middleware.RequireStudent(), h.myScore)
}

func (h *GradingHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.PublishGrades(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "grades published", result)
}

func (h *GradingHandler) grades(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grades, err := h.service.GetGrades(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.OK(c, grades, "grades retrieved", fiber.Map{"students": len(grades)})
}

func (h *GradingHandler) myScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	score, err := h.service.GetStudentScore(c.UserContext(), id, usernameFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "score retrieved", score)
}
