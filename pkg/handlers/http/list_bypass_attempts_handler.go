package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/bypass"
	"github.com/LeadFlux/AbuseGate/pkg/domain/bypassattempt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listBypassAttemptsHandler struct {
	logger   *logrus.Logger
	detector *bypass.Detector
}

func NewListBypassAttemptsHandler(logger *logrus.Logger, detector *bypass.Detector) Handler {
	return &listBypassAttemptsHandler{logger: logger, detector: detector}
}

// Handle lists recorded bypass attempts, optionally filtered by type via the
// "type" query parameter.
func (h *listBypassAttemptsHandler) Handle(ctx *fiber.Ctx) error {
	attemptType := bypassattempt.Type(ctx.Query("type"))

	attempts, err := h.detector.Attempts(ctx.Context(), attemptType)
	if err != nil {
		h.logger.WithError(err).Error("failed to list bypass attempts")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list attempts"})
	}
	return ctx.Status(fiber.StatusOK).JSON(attempts)
}
