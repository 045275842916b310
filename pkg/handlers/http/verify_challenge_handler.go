package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/captcha"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type verifyChallengeRequest struct {
	ChallengeID string `json:"challenge_id"`
	Response    string `json:"response"`
}

type verifyChallengeHandler struct {
	logger  *logrus.Logger
	manager *captcha.Manager
}

func NewVerifyChallengeHandler(logger *logrus.Logger, manager *captcha.Manager) Handler {
	return &verifyChallengeHandler{logger: logger, manager: manager}
}

func (h *verifyChallengeHandler) Handle(ctx *fiber.Ctx) error {
	var req verifyChallengeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.ChallengeID == "" || req.Response == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "challenge_id and response are required"})
	}

	userCtx := &types.UserContext{
		IPAddress: ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}
	outcome := h.manager.VerifyChallenge(ctx.Context(), req.ChallengeID, req.Response, userCtx)
	if !outcome.Success {
		return ctx.Status(fiber.StatusForbidden).JSON(outcome)
	}
	return ctx.Status(fiber.StatusOK).JSON(outcome)
}
