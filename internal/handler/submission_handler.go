package handler

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peer-eval-api/internal/dto"
	"github.com/noah-isme/peer-eval-api/internal/middleware"
	"github.com/noah-isme/peer-eval-api/internal/service"
	"github.com/noah-isme/peer-eval-api/internal/utils"
)

// SubmissionHandler exposes the evaluator-facing routes.
type SubmissionHandler struct {
	service     service.SubmissionService
	logger      zerolog.Logger
	answerLimit fiber.Handler
}

// NewSubmissionHandler constructs the handler. Answer writes are throttled to rateMax per
// rateWindow per evaluator.
func NewSubmissionHandler(service service.SubmissionService, rateMax int, rateWindow time.Duration, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:     service,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
		answerLimit: middleware.RateLimit("answers", rateMax, rateWindow),
	}
}

// RegisterAssignmentRoutes attaches the evaluation listing routes under /assignments.
func (h *SubmissionHandler) RegisterAssignmentRoutes(router fiber.Router) {
	router.Get("/:id/evaluations", middleware.RequireStudent(), h.listGroups)
	router.Get("/:id/evaluations/groups/:groupId", middleware.RequireStudent(), h.groupTargets)
	router.Get("/:id/submissions/:submissionId", middleware.RequireStudent(), h.view)
}

// Register attaches the answer routes under /submissions.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Put("/:id/answers", middleware.RequireStudent(), h.answerLimit, h.save)
	router.Post("/:id/submit", middleware.RequireStudent(), h.answerLimit, h.submit)
}

func (h *SubmissionHandler) save(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AnswersRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ack, err := h.service.SaveDraft(c.UserContext(), id, usernameFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "answers saved", ack)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.AnswersRequest{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if payload.Answers == nil {
		payload.Answers = map[uint]json.RawMessage{}
	}

	ack, err := h.service.Finalize(c.UserContext(), id, usernameFromContext(c), payload)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission submitted", ack)
}

func (h *SubmissionHandler) view(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	view, err := h.service.ViewForEvaluator(c.UserContext(), assignmentID, usernameFromContext(c), submissionID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission retrieved", view)
}

func (h *SubmissionHandler) groupTargets(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	groupID, err := parseUintParam(c, "groupId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	targets, err := h.service.GroupEvaluationTargets(c.UserContext(), usernameFromContext(c), groupID, assignmentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", targets)
}

func (h *SubmissionHandler) listGroups(c *fiber.Ctx) error {
	assignmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	groups, err := h.service.ListEvaluationGroups(c.UserContext(), usernameFromContext(c), assignmentID)
	if err != nil {
		return writeServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluation groups retrieved", groups)
}
