package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/middleware"
	"github.com/noah-isme/peer-eval-api/internal/service"
	"github.com/noah-isme/peer-eval-api/internal/utils"
)

// AssignmentHandler wires assignment authoring, publication and progress routes.
type AssignmentHandler struct {
	assignments service.AssignmentService
	publication service.PublicationService
	submissions service.SubmissionService
	logger      zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments service.AssignmentService, publication service.PublicationService, submissions service.SubmissionService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		publication: publication,
		submissions: submissions,
		logger:      logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireTeacher(), h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/publish", middleware.RequireTeacher(), h.publish)
	router.Get("/:id/progress", middleware.RequireTeacher(), h.progress)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.assignments.Create(c.UserContext(), payload, usernameFromContext(c))
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.assignments.Get(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AssignmentHandler) publish(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.publication.Publish(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("assignment_id", id).Int("submissions_created", result.SubmissionsCreated).Msg("assignment published via api")
	return utils.SendSuccess(c, "assignment published", result)
}

func (h *AssignmentHandler) progress(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	progress, err := h.submissions.ListForOwner(c.UserContext(), id)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	completed := 0
	for _, entry := range progress {
		if entry.Evaluators > 0 && entry.Submitted == entry.Evaluators {
			completed++
		}
	}

	return utils.OK(c, progress, "progress retrieved", fiber.Map{"evaluatees": len(progress), "completed": completed})
}
