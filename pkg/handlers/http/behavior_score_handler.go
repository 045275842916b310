package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/behavior"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type behaviorScoreHandler struct {
	logger   *logrus.Logger
	analyzer *behavior.Analyzer
}

func NewBehaviorScoreHandler(logger *logrus.Logger, analyzer *behavior.Analyzer) Handler {
	return &behaviorScoreHandler{logger: logger, analyzer: analyzer}
}

// Handle reports the current behavior score for a user id or an IP address.
func (h *behaviorScoreHandler) Handle(ctx *fiber.Ctx) error {
	userCtx := &types.UserContext{}
	switch {
	case ctx.Query("user_id") != "":
		userCtx.Authenticated = true
		userCtx.UserID = ctx.Query("user_id")
	case ctx.Query("ip") != "":
		userCtx.IPAddress = ctx.Query("ip")
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id or ip is required"})
	}

	score := h.analyzer.Score(ctx.Context(), userCtx)
	return ctx.Status(fiber.StatusOK).JSON(score)
}
